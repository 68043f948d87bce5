package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/enrich"
	"github.com/sells-group/dealflow-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testStoreProperty(id string) model.PropertyRecord {
	return model.PropertyRecord{
		ID:          id,
		Address:     "101 Oak St",
		ZIP:         "75001",
		AskingPrice: 90000,
		SquareFeet:  1400,
	}
}

func testStoreBuyer(id string, active bool) model.BuyerRecord {
	return model.BuyerRecord{
		ID:     id,
		Name:   "Buyer " + id,
		Active: active,
	}
}

func testNarrative() enrich.Narrative {
	return enrich.Narrative{Summary: "solid buy"}
}

// --- Properties ---

func TestSQLite_Property_SaveAndFind(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := testStoreProperty("p1")
	require.NoError(t, st.SaveProperty(ctx, p))

	got, err := st.FindProperty(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p, *got)
}

func TestSQLite_Property_FindMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.FindProperty(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Property_SaveInvalid(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.SaveProperty(context.Background(), model.PropertyRecord{ID: "p1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidRecord)
}

func TestSQLite_Property_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := testStoreProperty("p1")
	require.NoError(t, st.SaveProperty(ctx, p))

	p.AskingPrice = 95000
	require.NoError(t, st.SaveProperty(ctx, p))

	got, err := st.FindProperty(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 95000.0, got.AskingPrice)
}

func TestSQLite_Property_ListOrderedAndLimited(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, id := range []string{"p3", "p1", "p2"} {
		require.NoError(t, st.SaveProperty(ctx, testStoreProperty(id)))
	}

	all, err := st.ListProperties(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "p1", all[0].ID)
	assert.Equal(t, "p3", all[2].ID)

	limited, err := st.ListProperties(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

// --- Buyers ---

func TestSQLite_Buyers_ActiveFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveBuyer(ctx, testStoreBuyer("b1", true)))
	require.NoError(t, st.SaveBuyer(ctx, testStoreBuyer("b2", false)))
	require.NoError(t, st.SaveBuyer(ctx, testStoreBuyer("b3", true)))

	buyers, err := st.ListActiveBuyers(ctx)
	require.NoError(t, err)
	require.Len(t, buyers, 2)
	assert.Equal(t, "b1", buyers[0].ID)
	assert.Equal(t, "b3", buyers[1].ID)
}

func TestSQLite_Buyers_DeactivateOnOverwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveBuyer(ctx, testStoreBuyer("b1", true)))
	require.NoError(t, st.SaveBuyer(ctx, testStoreBuyer("b1", false)))

	buyers, err := st.ListActiveBuyers(ctx)
	require.NoError(t, err)
	assert.Empty(t, buyers)
}

// --- Markets ---

func TestSQLite_Market_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	m := model.MarketSnapshot{ZIP: "75001", MedianDOM: 28, SalesPerMonth: 14, MedianPrice: 310000}
	require.NoError(t, st.SaveMarket(ctx, m))

	got, err := st.GetMarket(ctx, "75001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 28, got.MedianDOM)
}

func TestSQLite_Market_MissingIsNil(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetMarket(context.Background(), "00000")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Market_ListKeyedByZIP(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveMarket(ctx, model.MarketSnapshot{ZIP: "75001", SalesPerMonth: 14}))
	require.NoError(t, st.SaveMarket(ctx, model.MarketSnapshot{ZIP: "75052", SalesPerMonth: 22}))

	all, err := st.ListMarkets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 22.0, all["75052"].SalesPerMonth)
}

// --- Analyses ---

func TestSQLite_Analysis_SaveAndGetLatest(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first := &model.AnalysisResult{PropertyID: "p1", Classification: model.Classification{Tier: model.ClassSolid}}
	second := &model.AnalysisResult{PropertyID: "p1", Classification: model.Classification{Tier: model.ClassHot}}
	matches := model.MatchResult{PropertyID: "p1"}
	narrative := enrich.Narrative{Summary: "solid buy"}

	require.NoError(t, st.SaveAnalysis(ctx, "p1", first, matches, narrative))
	time.Sleep(10 * time.Millisecond) // ensure distinct created_at
	require.NoError(t, st.SaveAnalysis(ctx, "p1", second, matches, narrative))

	got, err := st.GetAnalysis(ctx, "p1")
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "p1", got.PropertyID)
	assert.Equal(t, model.ClassHot, got.Analysis.Classification.Tier)
	assert.Equal(t, "solid buy", got.Narrative.Summary)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLite_Analysis_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetAnalysis(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Migrate ---

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}
