package engine

import (
	"math"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// Velocity and volume band edges. Each tier is a continuous ramp between its
// edges so neighboring properties stay distinguishable.
const (
	velocityFastTop    = 100.0
	velocityFastBottom = 80.0
	velocityModBottom  = 50.0
	velocitySlowBottom = 20.0
	velocityStaleDecay = 0.1 // points lost per day past the slow boundary
	velocityStaleFloor = 5.0

	volumeHotTop     = 100.0
	volumeHotBottom  = 75.0
	volumeWarmBottom = 45.0
	volumeColdTop    = 40.0
)

// ComputeScores derives the component and composite scores for a deal.
// All outputs are clamped to their declared 0-100 ranges.
func ComputeScores(p model.PropertyRecord, v model.ValuationEstimate, mao model.MAOSet, m *model.MarketSnapshot, cfg config.ScoringConfig) model.ScoreSet {
	var s model.ScoreSet

	s.VelocityScore = velocityScore(p.DaysOnMarket, cfg)
	s.MarketVolumeScore = marketVolumeScore(m, cfg)
	s.EquityPercent = equityPercent(p.AskingPrice, v.ARV, v.RepairEstimate)
	s.MarginPercent = marginPercent(p.AskingPrice, bestMAO(mao))
	s.RiskScore = riskScore(p, v, m, s, cfg)
	s.DealScore = dealScore(p, s, cfg)

	return s
}

// velocityScore ramps within three configurable days-on-market tiers.
func velocityScore(dom int, cfg config.ScoringConfig) float64 {
	fast := float64(cfg.VelocityFastDays)
	mod := float64(cfg.VelocityModerateDays)
	slow := float64(cfg.VelocitySlowDays)
	d := float64(dom)
	if d < 0 {
		d = 0
	}

	var score float64
	switch {
	case d <= fast:
		score = velocityFastTop - (d/fast)*(velocityFastTop-velocityFastBottom)
	case d <= mod:
		score = velocityFastBottom - ((d-fast)/(mod-fast))*(velocityFastBottom-velocityModBottom)
	case d <= slow:
		score = velocityModBottom - ((d-mod)/(slow-mod))*(velocityModBottom-velocitySlowBottom)
	default:
		score = velocitySlowBottom - (d-slow)*velocityStaleDecay
		if score < velocityStaleFloor {
			score = velocityStaleFloor
		}
	}
	return clampFloat(score, 0, 100)
}

// marketVolumeScore ramps by sales-per-month. A missing snapshot reads as an
// unknown, middling market rather than a dead one.
func marketVolumeScore(m *model.MarketSnapshot, cfg config.ScoringConfig) float64 {
	if m == nil {
		return 50
	}
	sales := m.SalesPerMonth
	if sales < 0 {
		sales = 0
	}
	hot := cfg.VolumeHotSales
	warm := cfg.VolumeWarmSales

	var score float64
	switch {
	case sales >= hot:
		// Saturate toward the top of the hot band.
		score = volumeHotBottom + (volumeHotTop-volumeHotBottom)*math.Min((sales-hot)/hot, 1)
	case sales >= warm:
		score = volumeWarmBottom + ((sales-warm)/(hot-warm))*(volumeHotBottom-volumeWarmBottom)
	default:
		score = (sales / warm) * volumeColdTop
	}
	return clampFloat(score, 0, 100)
}

// equityPercent is (ARV - asking - repairs) / ARV * 100, one decimal.
// Zero ARV reads as zero equity to avoid division errors.
func equityPercent(asking, arv, repairs float64) float64 {
	if arv <= 0 {
		return 0
	}
	pct := (arv - asking - repairs) / arv * 100
	return math.Round(pct*10) / 10
}

// bestMAO is the strongest positive offer ceiling across strategies,
// independent of the under-asking recommendation filter.
func bestMAO(mao model.MAOSet) float64 {
	var best float64
	for _, e := range mao.Entries {
		if e.Amount > best {
			best = e.Amount
		}
	}
	return best
}

// marginPercent is the headroom between the strongest offer ceiling and the
// asking price, relative to asking. Negative when every strategy needs an
// offer below asking.
func marginPercent(asking, best float64) float64 {
	if asking <= 0 || best <= 0 {
		return 0
	}
	return math.Round((best-asking)/asking*1000) / 10
}

// Risk point contributions. Each factor adds independently; the sum clamps
// to [0,100], higher is worse.
var repairRiskPoints = map[model.RepairTier]float64{
	model.RepairLight:    5,
	model.RepairModerate: 10,
	model.RepairHeavy:    20,
	model.RepairGut:      30,
}

var hazardTypePoints = map[model.PropertyType]float64{
	model.PropertyMobile: 10,
	model.PropertyLand:   15,
}

func riskScore(p model.PropertyRecord, v model.ValuationEstimate, m *model.MarketSnapshot, s model.ScoreSet, cfg config.ScoringConfig) float64 {
	var pts float64

	pts += repairRiskPoints[v.RepairTier]

	// Equity shortfall.
	switch {
	case s.EquityPercent < 10:
		pts += 25
	case s.EquityPercent < 20:
		pts += 15
	case s.EquityPercent < 30:
		pts += 5
	}

	// Market illiquidity.
	if m != nil && m.SalesPerMonth < cfg.VolumeWarmSales {
		pts += 15
	} else if m == nil {
		pts += 10 // unknown market carries its own risk
	}

	// Low velocity.
	if s.VelocityScore < velocityModBottom {
		pts += 10
	}

	pts += hazardTypePoints[p.PropertyType]

	return clampFloat(pts, 0, 100)
}

// dealScore is the declared weighted composite, clamped to [0,100].
func dealScore(p model.PropertyRecord, s model.ScoreSet, cfg config.ScoringConfig) float64 {
	w := cfg.Weights

	equityComponent := clampFloat(s.EquityPercent*cfg.EquityScale, 0, 100)
	motivationComponent := clampFloat(float64(p.MotivationScore)*10, 0, 100)

	score := w.Equity*equityComponent +
		w.Market*s.MarketVolumeScore +
		w.Velocity*s.VelocityScore +
		w.Motivation*motivationComponent -
		w.RiskPenalty*s.RiskScore

	return math.Round(clampFloat(score, 0, 100)*10) / 10
}
