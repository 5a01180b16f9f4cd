package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/aim-group/evidence-cli/internal/pipeline"
	"github.com/aim-group/evidence-cli/internal/store"
	"github.com/aim-group/evidence-cli/internal/workflow"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "file":
		return store.NewFile(cfg.Store.Path)
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "evidence.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// env bundles the wired collaborators behind every command.
type env struct {
	store store.Store
	state *workflow.StateStore
	orch  *pipeline.Orchestrator
}

func (e *env) Close() {
	e.store.Close()
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	state := workflow.New(st)
	runner := pipeline.NewExecRunner(cfg.Pipeline.ScriptsDir, cfg.Pipeline.Interpreter)
	return &env{
		store: st,
		state: state,
		orch:  pipeline.New(cfg, st, state, runner),
	}, nil
}
