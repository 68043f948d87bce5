package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/enrich"
	"github.com/sells-group/dealflow-cli/internal/store"
)

// runEnv holds the store and optional narrator shared by the analyze, batch,
// match, and serve commands.
type runEnv struct {
	Store    store.Store
	Narrator enrich.Narrator // nil when enrichment is disabled
}

// Close releases resources held by the run environment.
func (e *runEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens and migrates the store and builds the narrator when
// enrichment is enabled. Callers should defer env.Close().
func initEnv(ctx context.Context) (*runEnv, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env := &runEnv{Store: st}

	if cfg.Enrich.Enabled {
		if cfg.Enrich.APIKey == "" {
			_ = st.Close()
			return nil, eris.New("enrichment enabled but no API key set (DEALFLOW_ENRICH_API_KEY)")
		}
		env.Narrator = enrich.NewClient(cfg.Enrich)
		zap.L().Info("narrative enrichment enabled", zap.String("model", cfg.Enrich.Model))
	}

	return env, nil
}
