package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/caseforge/internal/generator"
	"github.com/sells-group/caseforge/internal/pipeline"
	"github.com/sells-group/caseforge/internal/store"
)

// pipelineEnv holds the initialized store and controller needed by the
// generate/validate/revise/finalize/run-all/serve commands.
type pipelineEnv struct {
	Store      store.Store
	Controller *pipeline.Controller
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "caseforge.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline sets up the store, runs migrations, and builds the
// controller with the template registry and reviser. Callers should
// defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	ctrl := pipeline.New(cfg, st, nil, generator.NewTemplateReviser())
	ctrl.SetRegistry(generator.DefaultRegistry(ctrl.Allocator()))

	return &pipelineEnv{Store: st, Controller: ctrl}, nil
}
