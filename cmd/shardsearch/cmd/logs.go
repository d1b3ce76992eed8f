package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xkfz007/shardsearch/internal/logging"
	"github.com/xkfz007/shardsearch/internal/output"
)

type logsOptions struct {
	follow bool
	lines  int
	level  string
	filter string
	file   string
}

// newLogsCmd creates the logs command.
func newLogsCmd(st *state) *cobra.Command {
	opts := logsOptions{}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the shardsearch log",
		Long: `Show the last lines of the shardsearch log file, optionally filtered.

Examples:
  shardsearch logs                     # last 50 lines
  shardsearch logs -n 200 --level warn # warnings and errors only
  shardsearch logs --filter shard_     # lines matching a regex
  shardsearch logs -f                  # follow new entries`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, st, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level to show (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only show lines matching this regex")
	cmd.Flags().StringVar(&opts.file, "file", "", "Log file to read (default from config)")

	return cmd
}

func runLogs(cmd *cobra.Command, st *state, opts logsOptions) error {
	path := opts.file
	if path == "" {
		path = st.cfg.Logging.File
	}
	if path == "" {
		return fmt.Errorf("no log file configured")
	}
	if opts.lines <= 0 {
		return fmt.Errorf("--lines must be positive, got %d", opts.lines)
	}
	if !logging.ValidLevel(opts.level) {
		return fmt.Errorf("unknown level %q (use debug, info, warn or error)", opts.level)
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		var err error
		if pattern, err = regexp.Compile(opts.filter); err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: !output.New(out).Color(),
	}, out)

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)
	if !opts.follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	followed := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)
	go func() { errCh <- viewer.Follow(ctx, path, followed) }()

	for {
		select {
		case entry := <-followed:
			fmt.Fprintln(out, viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		}
	}
}
