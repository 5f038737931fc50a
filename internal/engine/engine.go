package engine

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/ehrstore/internal/ir"
	"github.com/roach88/ehrstore/internal/querysql"
	"github.com/roach88/ehrstore/internal/store"
)

// tracerName identifies spans created by the engine.
const tracerName = "github.com/roach88/ehrstore/internal/engine"

// Engine executes path queries and record operations.
type Engine struct {
	store    *store.Store
	compiler *querysql.SQLCompiler
	recordID IDGenerator // EHR and composition ids
	queryID  IDGenerator // per-execution query ids
	clock    Clock
	systemID string
	explain  bool
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithRecordIDs sets the generator for EHR and composition ids.
// Default: UUIDv4Generator.
func WithRecordIDs(gen IDGenerator) Option {
	return func(e *Engine) {
		e.recordID = gen
	}
}

// WithQueryIDs sets the generator for query execution ids.
// Default: UUIDv7Generator.
func WithQueryIDs(gen IDGenerator) Option {
	return func(e *Engine) {
		e.queryID = gen
	}
}

// WithClock sets the time source. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithSystemID sets the system id embedded in version uids.
// Default: ir.DefaultSystemID.
func WithSystemID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.systemID = id
		}
	}
}

// WithExplain makes every query collect its SQLite query plan.
// Individual requests can also ask for it.
func WithExplain(enabled bool) Option {
	return func(e *Engine) {
		e.explain = enabled
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		compiler: querysql.NewSQLCompiler(),
		recordID: UUIDv4Generator{},
		queryID:  UUIDv7Generator{},
		clock:    SystemClock{},
		systemID: ir.DefaultSystemID,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// SystemID returns the system id used in version uids.
func (e *Engine) SystemID() string {
	return e.systemID
}
