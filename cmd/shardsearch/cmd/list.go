package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/xkfz007/shardsearch/internal/output"
)

func newListCmd(st *state) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list <uid>...",
		Short: "Show documents by UID, ordered by title",
		Long: `Show the documents with the given UIDs, ordered by title.

A UID is "<shard id>/<path relative to the shard root>", as printed by
'shardsearch search --format json'. Unknown UIDs are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), cmd, st, args, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runList(ctx context.Context, cmd *cobra.Command, st *state, uids []string, format string) error {
	rt, err := openRuntime(ctx, st.cfg, st.logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	docs, err := rt.searcher.List(ctx, uids)
	if err != nil {
		return err
	}
	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		return out.JSON(docs)
	}
	out.Results(docs)
	return nil
}
