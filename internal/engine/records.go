package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/ehrstore/internal/ir"
)

// CreateEHR creates an EHR. An empty id is replaced by a generated one.
func (e *Engine) CreateEHR(ctx context.Context, id string) (ir.EHR, error) {
	ctx, span := e.tracer.Start(ctx, "engine.CreateEHR")
	defer span.End()

	if id == "" {
		id = e.recordID.Generate()
	}
	ehr := ir.EHR{
		ID:        id,
		SystemID:  e.systemID,
		CreatedAt: e.clock.Now(),
	}
	if err := e.store.CreateEHR(ctx, ehr); err != nil {
		span.RecordError(err)
		return ir.EHR{}, err
	}

	recordWrites.WithLabelValues("create_ehr").Inc()
	e.logger.Info("ehr created", "ehr_id", ehr.ID)
	return ehr, nil
}

// GetEHR returns an EHR by id.
func (e *Engine) GetEHR(ctx context.Context, id string) (ir.EHR, error) {
	return e.store.ReadEHR(ctx, id)
}

// Commit stores document as version 1 of a new composition in the EHR.
//
// The document must be a JSON object with an archetype_node_id and a
// template id; failures wrap ErrInvalidDocument.
func (e *Engine) Commit(ctx context.Context, ehrID string, document []byte) (ir.Composition, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Commit", trace.WithAttributes(
		attribute.String("ehrstore.ehr_id", ehrID),
	))
	defer span.End()

	comp, err := e.prepare(ehrID, document)
	if err != nil {
		span.RecordError(err)
		return ir.Composition{}, err
	}
	comp.UID = ir.ObjectVersionID{ID: e.recordID.Generate(), SystemID: e.systemID, Version: 1}

	if err := e.store.WriteComposition(ctx, comp); err != nil {
		span.RecordError(err)
		return ir.Composition{}, err
	}

	recordWrites.WithLabelValues("commit").Inc()
	e.logger.Info("composition committed",
		"ehr_id", ehrID,
		"uid", comp.UID.String(),
		"template_id", comp.TemplateID,
	)
	return comp, nil
}

// Update stores document as the version following preceding.
// Returns store.ErrVersionConflict when preceding is not the latest version.
func (e *Engine) Update(ctx context.Context, ehrID string, preceding ir.ObjectVersionID, document []byte) (ir.Composition, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Update", trace.WithAttributes(
		attribute.String("ehrstore.ehr_id", ehrID),
		attribute.String("ehrstore.preceding", preceding.String()),
	))
	defer span.End()

	comp, err := e.prepare(ehrID, document)
	if err != nil {
		span.RecordError(err)
		return ir.Composition{}, err
	}
	comp.UID = preceding.Next()

	if err := e.store.UpdateComposition(ctx, preceding, comp); err != nil {
		span.RecordError(err)
		return ir.Composition{}, err
	}

	recordWrites.WithLabelValues("update").Inc()
	e.logger.Info("composition updated",
		"ehr_id", ehrID,
		"uid", comp.UID.String(),
	)
	return comp, nil
}

// Get returns the latest version of a composition.
func (e *Engine) Get(ctx context.Context, ehrID, id string) (ir.Composition, error) {
	return e.store.ReadComposition(ctx, ehrID, id)
}

// GetVersion returns one specific version of a composition.
func (e *Engine) GetVersion(ctx context.Context, uid ir.ObjectVersionID) (ir.Composition, error) {
	return e.store.ReadCompositionVersion(ctx, uid)
}

// History returns every version of a composition, oldest first.
func (e *Engine) History(ctx context.Context, ehrID, id string) ([]ir.Composition, error) {
	return e.store.ListVersions(ctx, ehrID, id)
}

// List returns the latest version of every composition in an EHR.
func (e *Engine) List(ctx context.Context, ehrID string) ([]ir.Composition, error) {
	return e.store.ListCompositions(ctx, ehrID)
}

// AdminDelete physically removes every version of a composition.
func (e *Engine) AdminDelete(ctx context.Context, ehrID, id string) (int64, error) {
	ctx, span := e.tracer.Start(ctx, "engine.AdminDelete")
	defer span.End()

	n, err := e.store.AdminDeleteComposition(ctx, ehrID, id)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	recordWrites.WithLabelValues("admin_delete").Inc()
	e.logger.Warn("composition physically deleted",
		"ehr_id", ehrID,
		"composition_id", id,
		"versions", n,
	)
	return n, nil
}

// prepare inspects and canonicalizes a document into an unversioned Composition.
func (e *Engine) prepare(ehrID string, document []byte) (ir.Composition, error) {
	info, err := ir.InspectDocument(document)
	if err != nil {
		return ir.Composition{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	canonical, err := ir.CompactDocument(document)
	if err != nil {
		return ir.Composition{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	hash, err := ir.ContentHash(canonical)
	if err != nil {
		return ir.Composition{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return ir.Composition{
		EhrID:           ehrID,
		TemplateID:      info.TemplateID,
		ArchetypeNodeID: info.ArchetypeNodeID,
		ContentHash:     hash,
		Document:        canonical,
		CommittedAt:     e.clock.Now(),
	}, nil
}
