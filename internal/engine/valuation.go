// Package engine implements the deal analysis pipeline: valuation, MAO
// computation, scoring, classification and strategy recommendation. Every
// stage is a pure function of its inputs plus an immutable config snapshot.
package engine

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// analysisYear anchors age adjustment so re-analysis of an unchanged record
// stays byte-identical across year boundaries. Bump with intake data vintage.
const analysisYear = 2026

// EstimateValuation derives ARV, repair and holding costs from a property
// record and optional market snapshot. It never fails: absent market data
// falls back to an asking-price heuristic.
func EstimateValuation(p model.PropertyRecord, m *model.MarketSnapshot, cfg config.ValuationConfig) model.ValuationEstimate {
	cond := float64(p.NormalizedConditionScore())

	var est model.ValuationEstimate

	switch {
	case p.KnownARV != nil && *p.KnownARV > 0:
		est.ARV = roundDollar(*p.KnownARV)
		est.Confidence = clampInt(cfg.BaseConfidence+cfg.MarketConfidenceBonus, 0, 100)
		est.MarketBacked = true
	case marketUsable(m) && p.SquareFeet > 0:
		ppsf := baselinePPSF(m, cfg)
		mult := conditionMultiplier(cond, cfg)
		est.ARV = roundDollar(ppsf * p.SquareFeet * mult)
		est.Confidence = clampInt(cfg.BaseConfidence+cfg.MarketConfidenceBonus, 0, 100)
		est.MarketBacked = true
	default:
		// No usable market data: asking price inflated by the remaining
		// condition deficit.
		est.ARV = roundDollar(p.AskingPrice * (1 + (1-cond/100)*cfg.FallbackUpliftFactor))
		est.Confidence = clampInt(cfg.BaseConfidence, 0, 100)
	}

	if p.SquareFeet > 0 && est.ARV > 0 {
		est.ARVPerSqft = math.Round(est.ARV/p.SquareFeet*100) / 100
	}

	est.RepairTier = repairTierFor(cond)
	if p.KnownRepairCost != nil && *p.KnownRepairCost >= 0 {
		est.RepairEstimate = roundDollar(*p.KnownRepairCost)
	} else {
		psf := repairPSF(est.RepairTier, cfg)
		sqft := p.SquareFeet
		if sqft <= 0 {
			sqft = cfg.ReferenceSqft
		}
		est.RepairEstimate = roundDollar(psf * sqft * ageFactor(p.Age(analysisYear)))
	}

	est.HoldingCostPerMonth = roundDollar(p.AskingPrice * cfg.HoldingCostMonthlyRate)

	zap.L().Debug("valuation complete",
		zap.String("property_id", p.ID),
		zap.Float64("arv", est.ARV),
		zap.Float64("repairs", est.RepairEstimate),
		zap.String("repair_tier", string(est.RepairTier)),
		zap.Bool("market_backed", est.MarketBacked),
	)

	return est
}

func marketUsable(m *model.MarketSnapshot) bool {
	return m != nil && m.MedianPrice > 0
}

// baselinePPSF derives a price-per-square-foot baseline from the snapshot,
// using the configured reference size when the snapshot carries no median.
func baselinePPSF(m *model.MarketSnapshot, cfg config.ValuationConfig) float64 {
	sqft := m.MedianSqft
	if sqft <= 0 {
		sqft = cfg.ReferenceSqft
	}
	if sqft <= 0 {
		return 0
	}
	return m.MedianPrice / sqft
}

// conditionMultiplier maps a 0-100 condition score linearly onto the
// configured multiplier range.
func conditionMultiplier(cond float64, cfg config.ValuationConfig) float64 {
	frac := clampFloat(cond/100, 0, 1)
	return cfg.ConditionMultMin + (cfg.ConditionMultMax-cfg.ConditionMultMin)*frac
}

// repairTierFor selects the repair complexity tier from the condition score.
func repairTierFor(cond float64) model.RepairTier {
	switch {
	case cond <= 20:
		return model.RepairGut
	case cond <= 40:
		return model.RepairHeavy
	case cond <= 60:
		return model.RepairModerate
	default:
		return model.RepairLight
	}
}

func repairPSF(tier model.RepairTier, cfg config.ValuationConfig) float64 {
	switch tier {
	case model.RepairGut:
		return cfg.RepairPSFGut
	case model.RepairHeavy:
		return cfg.RepairPSFHeavy
	case model.RepairModerate:
		return cfg.RepairPSFModerate
	default:
		return cfg.RepairPSFLight
	}
}

// ageFactor scales repair estimates for older construction.
func ageFactor(age int) float64 {
	switch {
	case age > 50:
		return 1.30
	case age > 30:
		return 1.15
	case age > 20:
		return 1.05
	default:
		return 1.0
	}
}

func roundDollar(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Round(v)
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
