package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xkfz007/shardsearch/internal/config"
	"github.com/xkfz007/shardsearch/internal/engine"
	"github.com/xkfz007/shardsearch/internal/query"
	"github.com/xkfz007/shardsearch/internal/registry"
	"github.com/xkfz007/shardsearch/internal/searcher"
)

// runtime is an open registry with a searcher approving its deletions.
type runtime struct {
	registry *registry.Registry
	searcher *searcher.Searcher
}

// openRegistry opens the shard registry under cfg.DataDir.
func openRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*registry.Registry, error) {
	return registry.Open(ctx, cfg.DataDir, registry.WithLogger(logger))
}

// openRuntime opens the registry and a searcher configured from cfg.
func openRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	reg, err := openRegistry(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	op := query.OperatorAnd
	if cfg.Search.UseOrOperator {
		op = query.OperatorOr
	}
	compiler, err := query.NewCompiler(
		query.WithOperator(op),
		query.WithCacheSize(cfg.Search.QueryCacheSize),
	)
	if err != nil {
		_ = reg.Close()
		return nil, fmt.Errorf("create query compiler: %w", err)
	}
	if cfg.Search.MaxClauseCount > 0 {
		engine.SetMaxClauseCount(cfg.Search.MaxClauseCount)
	}

	s, err := searcher.New(ctx, reg,
		searcher.WithLogger(logger),
		searcher.WithCompiler(compiler),
		searcher.WithEngineOptions(engine.Options{MemoryBudget: cfg.Engine.MemoryBudgetBytes()}),
		searcher.WithOpenWorkers(cfg.Engine.OpenWorkers),
		searcher.WithPageSize(cfg.Search.PageSize),
		searcher.WithMaxResults(cfg.Search.MaxResults),
		searcher.WithSnippetLength(cfg.Engine.SnippetLength),
	)
	if err != nil {
		_ = reg.Close()
		return nil, err
	}
	reg.SetApprover(s)

	return &runtime{registry: reg, searcher: s}, nil
}

// Close shuts the searcher down first so pending deletions are approved
// before the registry waits for them.
func (rt *runtime) Close() error {
	serr := rt.searcher.Shutdown()
	rerr := rt.registry.Close()
	if serr != nil {
		return serr
	}
	return rerr
}
