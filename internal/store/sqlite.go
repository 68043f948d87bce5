package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dealflow-cli/internal/enrich"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id         TEXT PRIMARY KEY,
	zip        TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS buyers (
	id         TEXT PRIMARY KEY,
	active     INTEGER NOT NULL DEFAULT 1,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS markets (
	zip        TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	property_id TEXT NOT NULL,
	analysis    TEXT NOT NULL,
	matches     TEXT NOT NULL,
	narrative   TEXT NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_property ON analyses(property_id, created_at DESC);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveProperty upserts a property record.
func (s *SQLiteStore) SaveProperty(ctx context.Context, p model.PropertyRecord) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal property")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO properties (id, zip, data, updated_at) VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(id) DO UPDATE SET zip = excluded.zip, data = excluded.data, updated_at = datetime('now')`,
		p.ID, p.ZIP, string(data),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: save property")
	}
	return nil
}

// FindProperty returns a property by id, or ErrNotFound.
func (s *SQLiteStore) FindProperty(ctx context.Context, id string) (*model.PropertyRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM properties WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "property %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find property")
	}
	var p model.PropertyRecord
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal property")
	}
	return &p, nil
}

// ListProperties returns up to limit properties in id order.
func (s *SQLiteStore) ListProperties(ctx context.Context, limit int) ([]model.PropertyRecord, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM properties ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list properties")
	}
	defer rows.Close()

	var out []model.PropertyRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan property")
		}
		var p model.PropertyRecord
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal property")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list properties")
}

// SaveBuyer upserts a buyer record.
func (s *SQLiteStore) SaveBuyer(ctx context.Context, b model.BuyerRecord) error {
	if err := b.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal buyer")
	}
	active := 0
	if b.Active {
		active = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO buyers (id, active, data, updated_at) VALUES (?, ?, ?, datetime('now'))
		 ON CONFLICT(id) DO UPDATE SET active = excluded.active, data = excluded.data, updated_at = datetime('now')`,
		b.ID, active, string(data),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: save buyer")
	}
	return nil
}

// ListActiveBuyers returns every active buyer in id order.
func (s *SQLiteStore) ListActiveBuyers(ctx context.Context) ([]model.BuyerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM buyers WHERE active = 1 ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list buyers")
	}
	defer rows.Close()

	var out []model.BuyerRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan buyer")
		}
		var b model.BuyerRecord
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal buyer")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list buyers")
}

// SaveMarket upserts a market snapshot keyed by ZIP.
func (s *SQLiteStore) SaveMarket(ctx context.Context, m model.MarketSnapshot) error {
	data, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal market")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO markets (zip, data, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(zip) DO UPDATE SET data = excluded.data, updated_at = datetime('now')`,
		m.ZIP, string(data),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: save market")
	}
	return nil
}

// GetMarket returns the snapshot for a ZIP, or nil when none exists.
func (s *SQLiteStore) GetMarket(ctx context.Context, zip string) (*model.MarketSnapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM markets WHERE zip = ?`, zip).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // absence of market data is a valid state
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get market")
	}
	var m model.MarketSnapshot
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal market")
	}
	return &m, nil
}

// ListMarkets returns all snapshots keyed by ZIP.
func (s *SQLiteStore) ListMarkets(ctx context.Context) (map[string]*model.MarketSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM markets`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list markets")
	}
	defer rows.Close()

	out := map[string]*model.MarketSnapshot{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan market")
		}
		var m model.MarketSnapshot
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal market")
		}
		out[m.ZIP] = &m
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list markets")
}

// SaveAnalysis persists an analysis run with a fresh run id.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, propertyID string, a *model.AnalysisResult, m model.MatchResult, n enrich.Narrative) error {
	analysisJSON, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}
	matchesJSON, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal matches")
	}
	narrativeJSON, err := json.Marshal(n)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal narrative")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, property_id, analysis, matches, narrative, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), propertyID, string(analysisJSON), string(matchesJSON), string(narrativeJSON), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: save analysis")
	}
	return nil
}

// GetAnalysis returns the most recent analysis for a property.
func (s *SQLiteStore) GetAnalysis(ctx context.Context, propertyID string) (*SavedAnalysis, error) {
	var (
		sa                                  SavedAnalysis
		analysisJSON, matchesJSON, narrJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, property_id, analysis, matches, narrative, created_at
		 FROM analyses WHERE property_id = ? ORDER BY created_at DESC LIMIT 1`,
		propertyID,
	).Scan(&sa.ID, &sa.PropertyID, &analysisJSON, &matchesJSON, &narrJSON, &sa.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "analysis for property %s", propertyID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get analysis")
	}
	if err := json.Unmarshal([]byte(analysisJSON), &sa.Analysis); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
	}
	if err := json.Unmarshal([]byte(matchesJSON), &sa.Matches); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal matches")
	}
	if err := json.Unmarshal([]byte(narrJSON), &sa.Narrative); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal narrative")
	}
	return &sa, nil
}
