package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ehrstore/internal/ir"
	"github.com/roach88/ehrstore/internal/store"
)

// CompositionView is the output shape of one composition version.
type CompositionView struct {
	UID             string          `json:"uid"`
	EhrID           string          `json:"ehr_id"`
	TemplateID      string          `json:"template_id"`
	ArchetypeNodeID string          `json:"archetype_node_id"`
	ContentHash     string          `json:"content_hash"`
	CommittedAt     string          `json:"committed_at"`
	Document        json.RawMessage `json:"document,omitempty"`
}

func newCompositionView(c ir.Composition, withDocument bool) CompositionView {
	v := CompositionView{
		UID:             c.UID.String(),
		EhrID:           c.EhrID,
		TemplateID:      c.TemplateID,
		ArchetypeNodeID: c.ArchetypeNodeID,
		ContentHash:     c.ContentHash,
		CommittedAt:     c.CommittedAt.Format(time.RFC3339Nano),
	}
	if withDocument {
		v.Document = c.Document
	}
	return v
}

// NewCompositionCommand creates the composition command group.
func NewCompositionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "composition",
		Short: "Commit, update and read compositions",
	}

	cmd.AddCommand(newCompositionCommitCommand(rootOpts))
	cmd.AddCommand(newCompositionUpdateCommand(rootOpts))
	cmd.AddCommand(newCompositionGetCommand(rootOpts))
	cmd.AddCommand(newCompositionHistoryCommand(rootOpts))

	return cmd
}

func newCompositionCommitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "commit <ehr-id> <file|->",
		Short: "Commit a new composition",
		Long: `Commit a JSON composition document as version 1 of a new composition.
Use - to read the document from stdin.

Example:
  ehrstore composition commit 7d44b88c-4199-4bad-97dc-d78268e01398 bp.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompositionWrite(opts, args[0], "", args[1], cmd)
		},
	}
}

func newCompositionUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <ehr-id> <preceding-version-uid> <file|->",
		Short: "Commit a new version of a composition",
		Long: `Commit a new version of an existing composition. The preceding version
uid must name the current latest version, or the update is rejected.

Example:
  ehrstore composition update 7d44b88c-4199-4bad-97dc-d78268e01398 \
    8849182c-82ad-4088-a07f-48ead4180515::local.ehrstore::1 bp-v2.json`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompositionWrite(opts, args[0], args[1], args[2], cmd)
		},
	}
}

// runCompositionWrite commits (preceding empty) or updates a composition.
func runCompositionWrite(opts *RootOptions, ehrID, preceding, source string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	var precedingUID ir.ObjectVersionID
	if preceding != "" {
		var err error
		if precedingUID, err = ir.ParseObjectVersionID(preceding); err != nil {
			_ = f.Error(ErrCodeInvalidInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid version uid", err)
		}
	}

	doc, err := readDocument(source, cmd.InOrStdin())
	if err != nil {
		_ = f.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read document", err)
	}

	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	var comp ir.Composition
	if preceding == "" {
		comp, err = s.engine.Commit(cmd.Context(), ehrID, doc)
	} else {
		comp, err = s.engine.Update(cmd.Context(), ehrID, precedingUID, doc)
	}
	if err != nil {
		return fail(f, "failed to commit composition", err)
	}

	if f.Format == "json" {
		return f.Success(newCompositionView(comp, false))
	}
	fmt.Fprintln(f.Writer, comp.UID.String())
	return nil
}

// readDocument reads a document from a file, or from stdin when source is "-".
func readDocument(source string, stdin io.Reader) ([]byte, error) {
	if source == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

func newCompositionGetCommand(opts *RootOptions) *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "get <ehr-id> <composition-id>",
		Short: "Print the latest version of a composition",
		Long: `Print the latest version of a composition, or a specific version with
--version <uid>.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompositionGet(opts, args[0], args[1], version, cmd)
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "version uid to read instead of the latest")
	return cmd
}

func runCompositionGet(opts *RootOptions, ehrID, id, version string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	var uid ir.ObjectVersionID
	if version != "" {
		var err error
		if uid, err = ir.ParseObjectVersionID(version); err != nil {
			_ = f.Error(ErrCodeInvalidInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid version uid", err)
		}
		if uid.ID != id {
			err := fmt.Errorf("version %s does not belong to composition %s", version, id)
			_ = f.Error(ErrCodeInvalidInput, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid version uid", err)
		}
	}

	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	var comp ir.Composition
	if version == "" {
		comp, err = s.engine.Get(cmd.Context(), ehrID, id)
	} else {
		comp, err = s.engine.GetVersion(cmd.Context(), uid)
		if err == nil && comp.EhrID != ehrID {
			err = fmt.Errorf("composition version %s in EHR %s: %w", version, ehrID, store.ErrNotFound)
		}
	}
	if err != nil {
		return fail(f, "failed to read composition", err)
	}

	if f.Format == "json" {
		return f.Success(newCompositionView(comp, true))
	}
	fmt.Fprintln(f.Writer, string(comp.Document))
	return nil
}

func newCompositionHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "history <ehr-id> <composition-id>",
		Short:         "List every version of a composition",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompositionHistory(opts, args[0], args[1], cmd)
		},
	}
}

func runCompositionHistory(opts *RootOptions, ehrID, id string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	s, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	versions, err := s.engine.History(cmd.Context(), ehrID, id)
	if err != nil {
		return fail(f, "failed to read history", err)
	}

	views := make([]CompositionView, len(versions))
	for i, v := range versions {
		views[i] = newCompositionView(v, false)
	}

	if f.Format == "json" {
		return f.Success(views)
	}
	for _, v := range views {
		fmt.Fprintf(f.Writer, "%s  %s  %s\n", v.UID, v.CommittedAt, v.ContentHash)
	}
	return nil
}
