// Package orchestrator runs batch analysis sweeps. The engine itself is pure
// and lock-free; the orchestrator owns run exclusion, per-record failure
// isolation and pacing of optional enrichment calls.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/engine"
	"github.com/sells-group/dealflow-cli/internal/enrich"
	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

// ErrRunInProgress is returned when a sweep is requested while another holds
// the run lock.
var ErrRunInProgress = eris.New("orchestrator: batch run already in progress")

// Summary reports the outcome of a batch sweep.
type Summary struct {
	Total          int               `json:"total"`
	Succeeded      int               `json:"succeeded"`
	Failed         int               `json:"failed"`
	FailureReasons map[string]string `json:"failure_reasons,omitempty"`
}

// Runner sweeps property records through the engine with bounded
// concurrency. Two runs never interleave: the run lock covers the full sweep.
type Runner struct {
	store       store.Store
	cfg         config.EngineConfig
	narrator    enrich.Narrator // nil disables enrichment
	concurrency int

	mu      sync.Mutex
	running bool
}

// NewRunner creates a batch runner. A nil narrator disables enrichment.
func NewRunner(st store.Store, cfg config.EngineConfig, narrator enrich.Narrator) *Runner {
	return &Runner{
		store:       st,
		cfg:         cfg,
		narrator:    narrator,
		concurrency: 1,
	}
}

// WithConcurrency sets the number of records processed in parallel.
// Values below 1 are treated as 1.
func (r *Runner) WithConcurrency(n int) *Runner {
	if n < 1 {
		n = 1
	}
	r.concurrency = n
	return r
}

// Run analyzes every property, matching against the given buyer registry
// and persisting results. A failure on one record is logged, counted and
// skipped; the sweep continues. Cancellation stops new records from
// starting, never a record mid-flight.
func (r *Runner) Run(ctx context.Context, properties []model.PropertyRecord, markets map[string]*model.MarketSnapshot, buyers []model.BuyerRecord) (*Summary, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	log := zap.L().With(zap.Int("records", len(properties)))
	log.Info("batch sweep starting")

	summary := &Summary{
		Total:          len(properties),
		FailureReasons: map[string]string{},
	}
	var sumMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	cancelled := false
	for _, p := range properties {
		if err := gctx.Err(); err != nil {
			cancelled = true
			break
		}

		g.Go(func() error {
			err := r.processOne(gctx, p, markets[p.ZIP], buyers)

			sumMu.Lock()
			defer sumMu.Unlock()
			if err != nil {
				summary.Failed++
				summary.FailureReasons[recordKey(p)] = err.Error()
				log.Warn("record analysis failed",
					zap.String("property_id", p.ID),
					zap.Error(err),
				)
				return nil
			}
			summary.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	if cancelled {
		log.Warn("batch sweep cancelled",
			zap.Int("processed", summary.Succeeded+summary.Failed),
		)
		return summary, eris.Wrap(ctx.Err(), "orchestrator: run cancelled")
	}

	log.Info("batch sweep complete",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// processOne analyzes and persists a single record, converting panics from
// malformed data into recorded failures so one bad record never aborts the
// sweep.
func (r *Runner) processOne(ctx context.Context, p model.PropertyRecord, market *model.MarketSnapshot, buyers []model.BuyerRecord) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = eris.Errorf("orchestrator: panic analyzing record: %v", rec)
		}
	}()

	out, err := engine.AnalyzeAndMatch(p, market, buyers, r.cfg)
	if err != nil {
		return err
	}

	narrative := enrich.Fallback(p, out.Analysis)
	if r.narrator != nil {
		// Only enrichment-bound records are throttled: the Narrate call
		// waits on the shared limiter, so the deterministic path stays
		// full speed.
		narrative = r.narrator.Narrate(ctx, p, out.Analysis)
	}

	if r.store != nil {
		if err := r.store.SaveAnalysis(ctx, p.ID, out.Analysis, out.Matches, narrative); err != nil {
			return eris.Wrap(err, "orchestrator: save analysis")
		}
	}
	return nil
}

func recordKey(p model.PropertyRecord) string {
	if p.ID != "" {
		return p.ID
	}
	return fmt.Sprintf("unidentified(%s)", p.Address)
}
