package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteResult reports a physical deletion.
type DeleteResult struct {
	EhrID         string `json:"ehr_id"`
	CompositionID string `json:"composition_id"`
	Versions      int64  `json:"versions"`
}

// NewAdminCommand creates the admin command group.
func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative operations",
	}

	cmd.AddCommand(newAdminDeleteCompositionCommand(rootOpts))

	return cmd
}

func newAdminDeleteCompositionCommand(opts *RootOptions) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "delete-composition <ehr-id> <composition-id>",
		Short: "Physically delete every version of a composition",
		Long: `Physically delete every version of a composition. The deletion cannot
be undone and requires --confirm.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminDelete(opts, args[0], args[1], confirm, cmd)
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm the physical deletion")
	return cmd
}

func runAdminDelete(opts *RootOptions, ehrID, id string, confirm bool, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if !confirm {
		_ = f.Error(ErrCodeInvalidInput, "refusing to delete without --confirm", nil)
		return NewExitError(ExitCommandError, "refusing to delete without --confirm")
	}

	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	n, err := s.engine.AdminDelete(cmd.Context(), ehrID, id)
	if err != nil {
		return fail(f, "failed to delete composition", err)
	}

	if f.Format == "json" {
		return f.Success(DeleteResult{EhrID: ehrID, CompositionID: id, Versions: n})
	}
	fmt.Fprintf(f.Writer, "deleted %d version(s) of %s\n", n, id)
	return nil
}
