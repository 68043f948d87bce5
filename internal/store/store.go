// Package store persists properties, buyers, market snapshots and analysis
// results behind a backend-agnostic repository interface.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/enrich"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = eris.New("store: not found")

// SavedAnalysis is a persisted analysis run. Timestamps and run ids live
// here, not on the engine output, so the engine stays deterministic.
type SavedAnalysis struct {
	ID         string                `json:"id"`
	PropertyID string                `json:"property_id"`
	Analysis   *model.AnalysisResult `json:"analysis"`
	Matches    model.MatchResult     `json:"matches"`
	Narrative  enrich.Narrative      `json:"narrative"`
	CreatedAt  time.Time             `json:"created_at"`
}

// Store defines the persistence interface for the analysis pipeline.
type Store interface {
	// Properties
	SaveProperty(ctx context.Context, p model.PropertyRecord) error
	FindProperty(ctx context.Context, id string) (*model.PropertyRecord, error)
	ListProperties(ctx context.Context, limit int) ([]model.PropertyRecord, error)

	// Buyers
	SaveBuyer(ctx context.Context, b model.BuyerRecord) error
	ListActiveBuyers(ctx context.Context) ([]model.BuyerRecord, error)

	// Market snapshots
	SaveMarket(ctx context.Context, m model.MarketSnapshot) error
	GetMarket(ctx context.Context, zip string) (*model.MarketSnapshot, error)
	ListMarkets(ctx context.Context) (map[string]*model.MarketSnapshot, error)

	// Analyses
	SaveAnalysis(ctx context.Context, propertyID string, a *model.AnalysisResult, m model.MatchResult, n enrich.Narrative) error
	GetAnalysis(ctx context.Context, propertyID string) (*SavedAnalysis, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the configured store backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	case "sqlite", "":
		path := cfg.SQLitePath
		if path == "" {
			path = "dealflow.db"
		}
		return NewSQLite(path)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
