package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkfz007/shardsearch/internal/output"
	"github.com/xkfz007/shardsearch/internal/searcher"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	page     int
	pageSize int
	minSize  int64
	maxSize  int64
	types    []string
	scopes   []string
	useOr    bool
	format   string // "text", "json"
}

func newSearchCmd(st *state) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every registered shard",
		Long: `Search every registered shard with a full-text query.

Terms are joined with AND unless --or is given or the configuration sets
search.use_or_operator. Supported syntax: "quoted phrases", AND/OR/NOT,
+required, -excluded, (grouping), field:term, wildcards (rep*rt, *port),
fuzzy terms (colour~, colour~1), boosts (term^2) and ranges
(size:[1000 TO 5000], modified:[2020-01-01 TO 2021-01-01]).

Without paging or filter flags up to search.max_results documents are
printed. With any of --page, --page-size, --min-size, --max-size, --type,
--scope or --or one page is printed.

Examples:
  shardsearch search annual report
  shardsearch search '"annual report" -draft' --type pdf
  shardsearch search 'title:invoice*' --scope accounts --page 2
  shardsearch search budget --min-size 1024 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, st, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.page, "page", "p", 0, "Zero-based page index")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "Documents per page (default from config)")
	cmd.Flags().Int64Var(&opts.minSize, "min-size", 0, "Minimum document size in bytes")
	cmd.Flags().Int64Var(&opts.maxSize, "max-size", 0, "Maximum document size in bytes")
	cmd.Flags().StringSliceVarP(&opts.types, "type", "t", nil, "Allowed document type (repeatable, e.g. --type pdf)")
	cmd.Flags().StringSliceVarP(&opts.scopes, "scope", "s", nil, "Shard ID to search (repeatable)")
	cmd.Flags().BoolVar(&opts.useOr, "or", false, "Join bare terms with OR")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

// paged reports whether any flag asks for a single page.
func paged(cmd *cobra.Command) bool {
	for _, name := range []string{"page", "page-size", "min-size", "max-size", "type", "scope", "or"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// webQuery builds the paged request from the flags that were set.
func webQuery(cmd *cobra.Command, text string, opts searchOptions) searcher.WebQuery {
	wq := searcher.WebQuery{
		Text:      text,
		PageIndex: opts.page,
		PageSize:  opts.pageSize,
		UseOr:     opts.useOr,
	}
	f := cmd.Flags()
	if f.Changed("min-size") {
		v := opts.minSize
		wq.Filter.MinSize = &v
	}
	if f.Changed("max-size") {
		v := opts.maxSize
		wq.Filter.MaxSize = &v
	}
	if f.Changed("type") {
		wq.Filter.Types = opts.types
	}
	if f.Changed("scope") {
		wq.Filter.Scope = append([]string{}, opts.scopes...)
	}
	return wq
}

func runSearch(ctx context.Context, cmd *cobra.Command, st *state, text string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (supported: text, json)", opts.format)
	}

	rt, err := openRuntime(ctx, st.cfg, st.logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := output.New(cmd.OutOrStdout())
	st.logger.Info("search_started", slog.String("query", text), slog.Bool("paged", paged(cmd)))

	if paged(cmd) {
		page, err := rt.searcher.PagedSearch(ctx, webQuery(cmd, text, opts))
		if err != nil {
			return err
		}
		st.logger.Info("search_complete",
			slog.Int("hits", page.HitCount),
			slog.Int("page_index", page.PageIndex))
		if opts.format == "json" {
			return out.JSON(page)
		}
		out.Page(page)
		return nil
	}

	docs, err := rt.searcher.Search(ctx, text)
	if err != nil {
		return err
	}
	st.logger.Info("search_complete", slog.Int("hits", len(docs)))
	if opts.format == "json" {
		return out.JSON(docs)
	}
	out.Results(docs)
	return nil
}
