package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/ehrstore/internal/aqlpath"
)

// ResolveStep is the output shape of one resolved step.
type ResolveStep struct {
	Container     string  `json:"container"`
	NodeID        string  `json:"node_id,omitempty"`
	Index         *int    `json:"index,omitempty"`
	NamePredicate *string `json:"name_predicate,omitempty"`
}

// ResolveResult is the output of the resolve command.
type ResolveResult struct {
	Expression string        `json:"expression"`
	Steps      []ResolveStep `json:"steps"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <raw-part>...",
		Short: "Resolve a raw AQL path into navigation steps",
		Long: `Resolve a path in the string-array form emitted by the AQL parser and
print the resulting steps. No database is opened.

Example:
  ehrstore resolve '/content[openEHR-EHR-OBSERVATION.blood_pressure.v1]' \
    '/data[at0001]' '/events[at0006]' 0 '/data[at0003]' \
    '/items[at0004]' '$AQL_NODE_NAME_PREDICATE$' "'Systolic'" '/value'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(rootOpts, args, cmd)
		},
	}
}

func runResolve(opts *RootOptions, parts []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	expr, err := aqlpath.ResolveRaw(parts)
	if err != nil {
		_ = f.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "path did not resolve", err)
	}

	result := ResolveResult{Expression: expr.String()}
	for _, s := range expr.Steps() {
		result.Steps = append(result.Steps, ResolveStep{
			Container:     s.Container,
			NodeID:        s.NodeID,
			Index:         s.Index,
			NamePredicate: s.NamePredicate,
		})
	}

	if f.Format == "json" {
		return f.Success(result)
	}

	w := f.Writer
	fmt.Fprintln(w, result.Expression)
	for i, s := range result.Steps {
		index := "*"
		if s.Index != nil {
			index = strconv.Itoa(*s.Index)
		}
		name := ""
		if s.NamePredicate != nil {
			name = fmt.Sprintf(" name=%q", *s.NamePredicate)
		}
		fmt.Fprintf(w, "  %d: %s node=%s index=%s%s\n", i, s.Container, s.NodeID, index, name)
	}
	return nil
}
