// Package cmd provides the CLI commands for shardsearch.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xkfz007/shardsearch/internal/config"
	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	"github.com/xkfz007/shardsearch/internal/logging"
	"github.com/xkfz007/shardsearch/internal/profiling"
	"github.com/xkfz007/shardsearch/pkg/version"
)

// state is shared by the root command and its subcommands. It is filled in
// by the persistent pre-run hook.
type state struct {
	dataDir    string
	configPath string
	debug      bool
	cpuProfile string
	memProfile string

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func()
	profiler *profiling.Profiler
}

// NewRootCmd creates the root command for the shardsearch CLI.
func NewRootCmd() *cobra.Command {
	st := &state{}

	cmd := &cobra.Command{
		Use:   "shardsearch",
		Short: "Search across many full-text index shards at once",
		Long: `shardsearch unions a set of per-folder full-text indexes into one
searchable view. Shards can be added and removed while searches run.

Register an index with 'shardsearch shards add', then query it with
'shardsearch search'. 'shardsearch serve' exposes the same searches as
MCP tools over stdio.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: st.setup,
		PersistentPostRun: func(cmd *cobra.Command, _ []string) { st.teardown(cmd.ErrOrStderr()) },
	}
	cmd.SetVersionTemplate("shardsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&st.dataDir, "data-dir", "", "Data directory holding the shard registry (default from config)")
	cmd.PersistentFlags().StringVar(&st.configPath, "config", "", "Configuration file to load on top of the user config")
	cmd.PersistentFlags().BoolVar(&st.debug, "debug", false, "Enable debug logging (also written to stderr)")
	cmd.PersistentFlags().StringVar(&st.cpuProfile, "cpu-profile", "", "Write a CPU profile to this file")
	cmd.PersistentFlags().StringVar(&st.memProfile, "mem-profile", "", "Write a heap profile to this file on exit")
	_ = cmd.PersistentFlags().MarkHidden("cpu-profile")
	_ = cmd.PersistentFlags().MarkHidden("mem-profile")

	cmd.AddCommand(newSearchCmd(st))
	cmd.AddCommand(newListCmd(st))
	cmd.AddCommand(newShardsCmd(st))
	cmd.AddCommand(newServeCmd(st))
	cmd.AddCommand(newConfigCmd(st))
	cmd.AddCommand(newLogsCmd(st))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads configuration and installs the logger.
func (st *state) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(st.configPath)
	if err != nil {
		return err
	}
	if st.dataDir != "" {
		cfg.DataDir = st.dataDir
	}
	st.cfg = cfg

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.FilePath = cfg.Logging.File
	logCfg.WriteToStderr = false
	if st.debug {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// Without a writable log file, log nowhere rather than fail.
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: file logging disabled: %v\n", err)
		logCfg.FilePath = ""
		if logger, cleanup, err = logging.Setup(logCfg); err != nil {
			return err
		}
	}
	st.logger = logger
	st.closeLog = cleanup
	slog.SetDefault(logger)

	st.profiler = profiling.NewProfiler(st.cpuProfile, st.memProfile)
	if err := st.profiler.Start(); err != nil {
		return err
	}

	logger.Debug("cli_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("data_dir", cfg.DataDir),
		slog.String("version", version.Version))
	return nil
}

func (st *state) teardown(stderr io.Writer) {
	if st.profiler != nil {
		if err := st.profiler.Stop(); err != nil {
			fmt.Fprintf(stderr, "warning: %v\n", err)
		}
		st.profiler = nil
	}
	if st.closeLog != nil {
		st.closeLog()
		st.closeLog = nil
	}
}

// Execute runs the root command and prints failures in CLI form.
func Execute() error {
	return execute(NewRootCmd(), os.Stderr)
}

func execute(root *cobra.Command, stderr io.Writer) error {
	err := root.Execute()
	if err != nil {
		if _, ok := sserrors.As(err); ok {
			fmt.Fprint(stderr, sserrors.FormatForCLI(err))
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	}
	return err
}
