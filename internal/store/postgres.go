package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow-cli/internal/enrich"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// pgPool is the slice of pgxpool.Pool the store uses; pgxmock satisfies it.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id         TEXT PRIMARY KEY,
	zip        TEXT NOT NULL,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS buyers (
	id         TEXT PRIMARY KEY,
	active     BOOLEAN NOT NULL DEFAULT true,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS markets (
	zip        TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	property_id TEXT NOT NULL,
	analysis    JSONB NOT NULL,
	matches     JSONB NOT NULL,
	narrative   JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_property ON analyses(property_id, created_at DESC);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveProperty upserts a property record.
func (s *PostgresStore) SaveProperty(ctx context.Context, p model.PropertyRecord) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal property")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO properties (id, zip, data, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (id) DO UPDATE SET zip = EXCLUDED.zip, data = EXCLUDED.data, updated_at = now()`,
		p.ID, p.ZIP, data,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: save property")
	}
	return nil
}

// FindProperty returns a property by id, or ErrNotFound.
func (s *PostgresStore) FindProperty(ctx context.Context, id string) (*model.PropertyRecord, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM properties WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "property %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find property")
	}
	var p model.PropertyRecord
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal property")
	}
	return &p, nil
}

// ListProperties returns up to limit properties in id order.
func (s *PostgresStore) ListProperties(ctx context.Context, limit int) ([]model.PropertyRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx, `SELECT data FROM properties ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list properties")
	}
	defer rows.Close()

	var out []model.PropertyRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan property")
		}
		var p model.PropertyRecord
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal property")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list properties")
}

// SaveBuyer upserts a buyer record.
func (s *PostgresStore) SaveBuyer(ctx context.Context, b model.BuyerRecord) error {
	if err := b.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal buyer")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO buyers (id, active, data, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (id) DO UPDATE SET active = EXCLUDED.active, data = EXCLUDED.data, updated_at = now()`,
		b.ID, b.Active, data,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: save buyer")
	}
	return nil
}

// ListActiveBuyers returns every active buyer in id order.
func (s *PostgresStore) ListActiveBuyers(ctx context.Context) ([]model.BuyerRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM buyers WHERE active ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list buyers")
	}
	defer rows.Close()

	var out []model.BuyerRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan buyer")
		}
		var b model.BuyerRecord
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal buyer")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list buyers")
}

// SaveMarket upserts a market snapshot keyed by ZIP.
func (s *PostgresStore) SaveMarket(ctx context.Context, m model.MarketSnapshot) error {
	data, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal market")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO markets (zip, data, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (zip) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		m.ZIP, data,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: save market")
	}
	return nil
}

// GetMarket returns the snapshot for a ZIP, or nil when none exists.
func (s *PostgresStore) GetMarket(ctx context.Context, zip string) (*model.MarketSnapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM markets WHERE zip = $1`, zip).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get market")
	}
	var m model.MarketSnapshot
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal market")
	}
	return &m, nil
}

// ListMarkets returns all snapshots keyed by ZIP.
func (s *PostgresStore) ListMarkets(ctx context.Context) (map[string]*model.MarketSnapshot, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM markets`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list markets")
	}
	defer rows.Close()

	out := map[string]*model.MarketSnapshot{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan market")
		}
		var m model.MarketSnapshot
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal market")
		}
		out[m.ZIP] = &m
	}
	return out, eris.Wrap(rows.Err(), "postgres: list markets")
}

// SaveAnalysis persists an analysis run with a fresh run id.
func (s *PostgresStore) SaveAnalysis(ctx context.Context, propertyID string, a *model.AnalysisResult, m model.MatchResult, n enrich.Narrative) error {
	analysisJSON, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}
	matchesJSON, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal matches")
	}
	narrativeJSON, err := json.Marshal(n)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal narrative")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, property_id, analysis, matches, narrative, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), propertyID, analysisJSON, matchesJSON, narrativeJSON, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: save analysis")
	}
	return nil
}

// GetAnalysis returns the most recent analysis for a property.
func (s *PostgresStore) GetAnalysis(ctx context.Context, propertyID string) (*SavedAnalysis, error) {
	var (
		sa                                  SavedAnalysis
		analysisJSON, matchesJSON, narrJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, property_id, analysis, matches, narrative, created_at
		 FROM analyses WHERE property_id = $1 ORDER BY created_at DESC LIMIT 1`,
		propertyID,
	).Scan(&sa.ID, &sa.PropertyID, &analysisJSON, &matchesJSON, &narrJSON, &sa.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "analysis for property %s", propertyID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get analysis")
	}
	if err := json.Unmarshal(analysisJSON, &sa.Analysis); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analysis")
	}
	if err := json.Unmarshal(matchesJSON, &sa.Matches); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal matches")
	}
	if err := json.Unmarshal(narrJSON, &sa.Narrative); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal narrative")
	}
	return &sa, nil
}
