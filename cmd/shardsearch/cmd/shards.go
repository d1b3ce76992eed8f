package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	"github.com/xkfz007/shardsearch/internal/output"
	"github.com/xkfz007/shardsearch/internal/shard"
)

func newShardsCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shards",
		Short: "Manage registered index shards",
		Example: `  # Show registered shards and whether they open
  shardsearch shards list

  # Register an index built for ~/Documents
  shardsearch shards add /indexes/documents --root ~/Documents --name Documents

  # Register every index dropped into <data-dir>/shards
  shardsearch shards discover

  # Unregister a shard; storage under <data-dir>/shards is deleted
  shardsearch shards remove documents`,
	}

	cmd.AddCommand(newShardsListCmd(st))
	cmd.AddCommand(newShardsAddCmd(st))
	cmd.AddCommand(newShardsRemoveCmd(st))
	cmd.AddCommand(newShardsDiscoverCmd(st))
	return cmd
}

func newShardsListCmd(st *state) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered shards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShardsList(cmd.Context(), cmd, st, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

type addOptions struct {
	id      string
	root    string
	name    string
	snippet int
}

func newShardsAddCmd(st *state) *cobra.Command {
	var opts addOptions
	cmd := &cobra.Command{
		Use:   "add <index-dir>",
		Short: "Register an existing index directory",
		Long: `Register an existing index directory as a shard.

Values missing from the flags are read from the directory's shard.yaml
sidecar when present. The shard ID defaults to the directory name and the
root folder defaults to the index directory itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShardsAdd(cmd.Context(), cmd, st, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.id, "id", "", "Shard ID (default: sidecar ID or directory name)")
	cmd.Flags().StringVar(&opts.root, "root", "", "Folder the index was built from")
	cmd.Flags().StringVar(&opts.name, "name", "", "Display name")
	cmd.Flags().IntVar(&opts.snippet, "snippet-length", 0, "Snippet length for this shard")
	return cmd
}

func newShardsRemoveCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Unregister a shard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShardsRemove(cmd.Context(), cmd, st, args[0])
		},
	}
}

func newShardsDiscoverCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Register index directories found under <data-dir>/shards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShardsDiscover(cmd.Context(), cmd, st)
		},
	}
}

func runShardsList(ctx context.Context, cmd *cobra.Command, st *state, format string) error {
	rt, err := openRuntime(ctx, st.cfg, st.logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	shards, err := rt.registry.Shards(ctx)
	if err != nil {
		return err
	}
	corrupted := map[string]error{}
	for _, c := range rt.searcher.Corrupted() {
		corrupted[c.Shard.ID] = c.Err
	}

	rows := make([]output.ShardRow, 0, len(shards))
	for _, sh := range shards {
		row := output.ShardRow{ID: sh.ID, Name: sh.Name(), RootPath: sh.RootPath, IndexPath: sh.IndexPath}
		if cerr, ok := corrupted[sh.ID]; ok {
			row.Corrupted = true
			if cerr != nil {
				row.Error = cerr.Error()
			}
		}
		rows = append(rows, row)
	}

	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		return out.JSON(rows)
	}
	out.Shards(rows)
	return nil
}

// shardFromDir builds the shard to register for dir, preferring flags over
// the sidecar.
func shardFromDir(dir string, opts addOptions) (*shard.Shard, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	sh, err := shard.ReadSidecar(abs)
	if errors.Is(err, os.ErrNotExist) {
		sh, err = &shard.Shard{ID: filepath.Base(abs)}, nil
	}
	if err != nil {
		return nil, sserrors.Newf(sserrors.ErrCodeInvalidInput, err, "read %s: %v", shard.SidecarName, err)
	}

	sh.IndexPath = abs
	if opts.id != "" {
		sh.ID = opts.id
	}
	if opts.root != "" {
		if sh.RootPath, err = filepath.Abs(opts.root); err != nil {
			return nil, err
		}
	}
	if sh.RootPath == "" {
		sh.RootPath = abs
	}
	if opts.name != "" {
		sh.Config.DisplayName = opts.name
	}
	if opts.snippet > 0 {
		sh.Config.SnippetLength = opts.snippet
	}
	sh.AddedAt = time.Now().UTC()
	return sh, nil
}

func runShardsAdd(ctx context.Context, cmd *cobra.Command, st *state, dir string, opts addOptions) error {
	sh, err := shardFromDir(dir, opts)
	if err != nil {
		return err
	}

	reg, err := openRegistry(ctx, st.cfg, st.logger)
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := reg.Add(ctx, sh); err != nil {
		return err
	}
	output.New(cmd.OutOrStdout()).Successf("Registered shard %s (%s)", sh.ID, sh.IndexPath)
	return nil
}

func runShardsRemove(ctx context.Context, cmd *cobra.Command, st *state, id string) error {
	reg, err := openRegistry(ctx, st.cfg, st.logger)
	if err != nil {
		return err
	}
	defer reg.Close()

	d, err := reg.Remove(ctx, id)
	if err != nil {
		return err
	}
	if err := d.Wait(ctx); err != nil {
		return fmt.Errorf("wait for removal of %s: %w", id, err)
	}
	output.New(cmd.OutOrStdout()).Successf("Removed shard %s", id)
	return nil
}

func runShardsDiscover(ctx context.Context, cmd *cobra.Command, st *state) error {
	reg, err := openRegistry(ctx, st.cfg, st.logger)
	if err != nil {
		return err
	}
	defer reg.Close()

	added, err := reg.Discover(ctx)
	if err != nil {
		return err
	}
	out := output.New(cmd.OutOrStdout())
	if len(added) == 0 {
		out.Status("", "No new shards found.")
		return nil
	}
	for _, sh := range added {
		out.Successf("Registered shard %s (%s)", sh.ID, sh.IndexPath)
	}
	return nil
}
