package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ehrstore/internal/ir"
)

// EHRView is the output shape of an EHR with its latest compositions.
type EHRView struct {
	EHR          ir.EHR            `json:"ehr"`
	Compositions []CompositionView `json:"compositions,omitempty"`
}

// NewEHRCommand creates the ehr command group.
func NewEHRCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ehr",
		Short: "Create and inspect EHRs",
	}

	cmd.AddCommand(newEHRCreateCommand(rootOpts))
	cmd.AddCommand(newEHRGetCommand(rootOpts))

	return cmd
}

func newEHRCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create [ehr-id]",
		Short: "Create an EHR",
		Long: `Create an empty EHR. A random id is generated when none is given.

Example:
  ehrstore ehr create
  ehrstore ehr create 7d44b88c-4199-4bad-97dc-d78268e01398`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runEHRCreate(opts, id, cmd)
		},
	}
}

func runEHRCreate(opts *RootOptions, id string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ehr, err := s.engine.CreateEHR(cmd.Context(), id)
	if err != nil {
		return fail(f, "failed to create EHR", err)
	}

	if f.Format == "json" {
		return f.Success(ehr)
	}
	fmt.Fprintln(f.Writer, ehr.ID)
	return nil
}

func newEHRGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <ehr-id>",
		Short:         "Show an EHR and its latest compositions",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEHRGet(opts, args[0], cmd)
		},
	}
}

func runEHRGet(opts *RootOptions, id string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ehr, err := s.engine.GetEHR(cmd.Context(), id)
	if err != nil {
		return fail(f, "failed to read EHR", err)
	}
	comps, err := s.engine.List(cmd.Context(), id)
	if err != nil {
		return fail(f, "failed to list compositions", err)
	}

	view := EHRView{EHR: ehr}
	for _, c := range comps {
		view.Compositions = append(view.Compositions, newCompositionView(c, false))
	}

	if f.Format == "json" {
		return f.Success(view)
	}

	w := f.Writer
	fmt.Fprintf(w, "EHR %s\n", ehr.ID)
	fmt.Fprintf(w, "  system:  %s\n", ehr.SystemID)
	fmt.Fprintf(w, "  created: %s\n", ehr.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  compositions: %d\n", len(comps))
	for _, c := range view.Compositions {
		fmt.Fprintf(w, "    %s  %s\n", c.UID, c.TemplateID)
	}
	return nil
}
