package engine

import (
	"fmt"
	"sort"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// RecommendStrategies evaluates the fixed strategy catalog against a deal and
// ranks the eligible candidates. Ineligible strategies are omitted, not
// zero-scored. Zero eligible strategies yields the PASS sentinel.
func RecommendStrategies(p model.PropertyRecord, v model.ValuationEstimate, mao model.MAOSet, s model.ScoreSet, cfg config.StrategyConfig) model.Recommendation {
	var candidates []model.StrategyCandidate

	rent := v.ARV * cfg.RentFactor
	for _, key := range model.StrategyCatalog {
		if c, ok := evaluateStrategy(key, p, v, mao, s, rent, cfg); ok {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return model.Recommendation{Pass: true, Confidence: 0}
	}

	// Rank by desirability, ties broken by absolute profit.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ProfitEstimate > candidates[j].ProfitEstimate
	})

	rec := model.Recommendation{
		Candidates: candidates,
		Primary:    &candidates[0],
		Confidence: confidenceFor(candidates[0], s),
	}
	if len(candidates) > 1 {
		rec.Secondary = &candidates[1]
	}
	return rec
}

// evaluateStrategy runs one strategy's eligibility guard and, when it passes,
// computes the desirability score.
func evaluateStrategy(key model.StrategyKey, p model.PropertyRecord, v model.ValuationEstimate, mao model.MAOSet, s model.ScoreSet, rent float64, cfg config.StrategyConfig) (model.StrategyCandidate, bool) {
	amount := mao.Amount(key)
	if amount <= 0 {
		return model.StrategyCandidate{}, false
	}

	switch key {
	case model.StrategyWholesale:
		spread := amount - p.AskingPrice
		if spread < cfg.MinSpread && v.ARV-p.AskingPrice-v.RepairEstimate < cfg.MinSpread {
			return model.StrategyCandidate{}, false
		}
		profit := v.ARV - p.AskingPrice - v.RepairEstimate
		return model.StrategyCandidate{
			Strategy:       key,
			ProfitEstimate: roundDollar(profit),
			Score:          clampFloat(profit/1000+s.VelocityScore*0.2, 0, 100),
			Rationale:      fmt.Sprintf("assignment spread $%.0f with fast-exit velocity", profit),
		}, true

	case model.StrategyFlip:
		profit := v.ARV - p.AskingPrice - v.RepairEstimate - v.HoldingCostPerMonth*6
		if profit < cfg.MinSpread {
			return model.StrategyCandidate{}, false
		}
		return model.StrategyCandidate{
			Strategy:       key,
			ProfitEstimate: roundDollar(profit),
			Score:          clampFloat(profit/1500+s.MarketVolumeScore*0.3, 0, 100),
			Rationale:      fmt.Sprintf("resale profit $%.0f after rehab and carry", profit),
		}, true

	case model.StrategyBRRRR, model.StrategyRental:
		cashflow := monthlyCashflow(p, v, rent, cfg)
		if cashflow < cfg.MinMonthlyCashflow {
			return model.StrategyCandidate{}, false
		}
		profit := (v.ARV - p.AskingPrice - v.RepairEstimate)
		return model.StrategyCandidate{
			Strategy:        key,
			ProfitEstimate:  roundDollar(profit),
			MonthlyCashflow: roundDollar(cashflow),
			Score:           clampFloat(cashflow/10+s.EquityPercent, 0, 100),
			Rationale:       fmt.Sprintf("projected cashflow $%.0f/mo on %.1f%% equity", cashflow, s.EquityPercent),
		}, true

	case model.StrategySubTo, model.StrategyWrap:
		if matchKeyword(p.MotivationText, cfg.MotivationKeywords) == "" && p.MotivationScore < 7 {
			// Creative finance needs a genuinely motivated seller.
			return model.StrategyCandidate{}, false
		}
		profit := v.ARV - amount - v.RepairEstimate
		if profit <= 0 {
			return model.StrategyCandidate{}, false
		}
		return model.StrategyCandidate{
			Strategy:       key,
			ProfitEstimate: roundDollar(profit),
			Score:          clampFloat(profit/2000+float64(p.MotivationScore)*5, 0, 100),
			Rationale:      "motivated seller supports taking over existing financing",
		}, true

	case model.StrategyJV:
		profit := (v.ARV - p.AskingPrice - v.RepairEstimate) * 0.5
		if profit < cfg.MinSpread/2 || v.RepairTier != model.RepairGut && v.RepairTier != model.RepairHeavy {
			// JV only earns its split on heavy projects.
			return model.StrategyCandidate{}, false
		}
		return model.StrategyCandidate{
			Strategy:       key,
			ProfitEstimate: roundDollar(profit),
			Score:          clampFloat(profit/2000+s.RiskScore*0.2, 0, 100),
			Rationale:      fmt.Sprintf("heavy rehab shared with a partner, $%.0f split", profit),
		}, true
	}

	return model.StrategyCandidate{}, false
}

// monthlyCashflow estimates rent minus opex minus debt service on the full
// acquisition basis.
func monthlyCashflow(p model.PropertyRecord, v model.ValuationEstimate, rent float64, cfg config.StrategyConfig) float64 {
	loan := p.AskingPrice + v.RepairEstimate
	debtService := loan * cfg.MortgageConstantMonthly
	return rent - rent*cfg.ExpenseRatio - debtService
}

// confidenceFor grades the top pick: strong score and low risk read as high
// confidence, capped below certainty for a heuristic recommender.
func confidenceFor(top model.StrategyCandidate, s model.ScoreSet) int {
	c := int(top.Score*0.6 + (100-s.RiskScore)*0.3)
	return clampInt(c, 10, 90)
}
