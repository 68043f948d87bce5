package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/enrich"
	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

// fakeStore records SaveAnalysis calls; every other Store method is a no-op.
type fakeStore struct {
	mu             sync.Mutex
	saved          []string
	saveAnalysisFn func(propertyID string) error
}

func (f *fakeStore) SaveProperty(ctx context.Context, p model.PropertyRecord) error { return nil }
func (f *fakeStore) FindProperty(ctx context.Context, id string) (*model.PropertyRecord, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListProperties(ctx context.Context, limit int) ([]model.PropertyRecord, error) {
	return nil, nil
}
func (f *fakeStore) SaveBuyer(ctx context.Context, b model.BuyerRecord) error { return nil }
func (f *fakeStore) ListActiveBuyers(ctx context.Context) ([]model.BuyerRecord, error) {
	return nil, nil
}
func (f *fakeStore) SaveMarket(ctx context.Context, m model.MarketSnapshot) error { return nil }
func (f *fakeStore) GetMarket(ctx context.Context, zip string) (*model.MarketSnapshot, error) {
	return nil, nil
}
func (f *fakeStore) ListMarkets(ctx context.Context) (map[string]*model.MarketSnapshot, error) {
	return nil, nil
}
func (f *fakeStore) GetAnalysis(ctx context.Context, propertyID string) (*store.SavedAnalysis, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) Migrate(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                      { return nil }

func (f *fakeStore) SaveAnalysis(ctx context.Context, propertyID string, a *model.AnalysisResult, m model.MatchResult, n enrich.Narrative) error {
	if f.saveAnalysisFn != nil {
		if err := f.saveAnalysisFn(propertyID); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, propertyID)
	return nil
}

func (f *fakeStore) savedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saved...)
}

type countingNarrator struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNarrator) Narrate(ctx context.Context, p model.PropertyRecord, a *model.AnalysisResult) enrich.Narrative {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return enrich.Narrative{Summary: "generated", Generated: true}
}

func testRunnerConfig(t *testing.T) config.EngineConfig {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg.Engine
}

func testProperties(ids ...string) []model.PropertyRecord {
	arv := 200000.0
	out := make([]model.PropertyRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.PropertyRecord{
			ID:          id,
			Address:     "1 Main St " + id,
			ZIP:         "75001",
			AskingPrice: 120000,
			KnownARV:    &arv,
		})
	}
	return out
}

func TestRunner_Run_AllSucceed(t *testing.T) {
	st := &fakeStore{}
	r := NewRunner(st, testRunnerConfig(t), nil)

	summary, err := r.Run(context.Background(), testProperties("p1", "p2", "p3"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, summary.FailureReasons)
	assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, st.savedIDs())
}

func TestRunner_Run_SequentialByDefault(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0
	st := &fakeStore{saveAnalysisFn: func(string) error {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}}
	r := NewRunner(st, testRunnerConfig(t), nil)

	summary, err := r.Run(context.Background(), testProperties("p1", "p2", "p3", "p4"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 1, peak)
}

func TestRunner_Run_BadRecordIsIsolated(t *testing.T) {
	st := &fakeStore{}
	r := NewRunner(st, testRunnerConfig(t), nil)

	properties := testProperties("p1", "p2")
	properties = append(properties, model.PropertyRecord{ID: "bad"}) // no address or zip

	summary, err := r.Run(context.Background(), properties, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.FailureReasons, "bad")
	assert.ElementsMatch(t, []string{"p1", "p2"}, st.savedIDs())
}

func TestRunner_Run_PanicRecordedAsFailure(t *testing.T) {
	st := &fakeStore{saveAnalysisFn: func(propertyID string) error {
		if propertyID == "p2" {
			panic("corrupt record")
		}
		return nil
	}}
	r := NewRunner(st, testRunnerConfig(t), nil)

	summary, err := r.Run(context.Background(), testProperties("p1", "p2", "p3"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.FailureReasons["p2"], "panic")
}

func TestRunner_Run_LockRejectsConcurrentSweep(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	st := &fakeStore{saveAnalysisFn: func(propertyID string) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	}}
	r := NewRunner(st, testRunnerConfig(t), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := r.Run(context.Background(), testProperties("p1"), nil, nil)
		assert.NoError(t, err)
	}()

	<-entered
	_, err := r.Run(context.Background(), testProperties("p2"), nil, nil)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	<-done

	// Lock is released after the first sweep finishes.
	summary, err := r.Run(context.Background(), testProperties("p3"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestRunner_Run_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := &fakeStore{}
	r := NewRunner(st, testRunnerConfig(t), nil)

	summary, err := r.Run(ctx, testProperties("p1", "p2"), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run cancelled")
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Succeeded+summary.Failed)
}

func TestRunner_Run_NarratorInvokedPerRecord(t *testing.T) {
	st := &fakeStore{}
	narrator := &countingNarrator{}
	r := NewRunner(st, testRunnerConfig(t), narrator)

	summary, err := r.Run(context.Background(), testProperties("p1", "p2"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, narrator.calls)
}

func TestRunner_Run_ConcurrentSweepCompletes(t *testing.T) {
	st := &fakeStore{saveAnalysisFn: func(propertyID string) error {
		time.Sleep(time.Millisecond)
		return nil
	}}
	r := NewRunner(st, testRunnerConfig(t), nil).WithConcurrency(4)

	summary, err := r.Run(context.Background(), testProperties("p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, summary.Succeeded)
	assert.Len(t, st.savedIDs(), 8)
}
