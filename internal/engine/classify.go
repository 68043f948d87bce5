package engine

import (
	"fmt"
	"strings"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// Classify maps scores to the ordered deal tiers. Evaluation is first-match-
// wins: HOT, then SOLID, then PORTFOLIO, else PASS. It is total: every input
// classifies. A non-viable MAO set short-circuits to PASS.
func Classify(p model.PropertyRecord, mao model.MAOSet, s model.ScoreSet, cfg config.ClassifyConfig) model.Classification {
	if !mao.Viable {
		return model.Classification{
			Tier:       model.ClassPass,
			Reason:     "no strategy supports a profitable offer below asking",
			NextAction: model.ActionDiscard,
		}
	}

	if meets(s, cfg.Hot) {
		return model.Classification{
			Tier: model.ClassHot,
			Reason: fmt.Sprintf("equity %.1f%% and margin %.1f%% clear hot thresholds with risk %.0f",
				s.EquityPercent, s.MarginPercent, s.RiskScore),
			NextAction: model.ActionMakeOffer,
		}
	}

	// Behavioral hot-seller override: enough urgency signals plus a lower
	// equity/score bar force HOT even when the primary thresholds miss.
	if signals := hotSellerSignals(p, cfg.Behavioral); len(signals) >= cfg.Behavioral.MinSignals &&
		s.EquityPercent >= cfg.Behavioral.MinEquityPct &&
		s.DealScore >= cfg.Behavioral.MinDealScore {
		return model.Classification{
			Tier: model.ClassHot,
			Reason: fmt.Sprintf("hot-seller signals (%s) with %.1f%% equity",
				strings.Join(signals, ", "), s.EquityPercent),
			NextAction:         model.ActionMakeOffer,
			BehavioralOverride: true,
		}
	}

	if meets(s, cfg.Solid) {
		return model.Classification{
			Tier: model.ClassSolid,
			Reason: fmt.Sprintf("equity %.1f%% with deal score %.1f meets solid thresholds",
				s.EquityPercent, s.DealScore),
			NextAction: model.ActionReviewComps,
		}
	}

	if meets(s, cfg.Portfolio) {
		return model.Classification{
			Tier: model.ClassPortfolio,
			Reason: fmt.Sprintf("buy-and-hold fit: equity %.1f%%, risk %.0f within portfolio bounds",
				s.EquityPercent, s.RiskScore),
			NextAction: model.ActionAddToPipeline,
		}
	}

	return model.Classification{
		Tier: model.ClassPass,
		Reason: fmt.Sprintf("equity %.1f%%, deal score %.1f, risk %.0f below every tier",
			s.EquityPercent, s.DealScore, s.RiskScore),
		NextAction: model.ActionDiscard,
	}
}

func meets(s model.ScoreSet, t config.TierThresholds) bool {
	return s.EquityPercent >= t.MinEquityPct &&
		s.MarginPercent >= t.MinMarginPct &&
		s.RiskScore <= t.MaxRisk &&
		s.DealScore >= t.MinDealScore
}

// hotSellerSignals collects the behavioral urgency signals present on a
// record, in a fixed order so reasons are deterministic.
func hotSellerSignals(p model.PropertyRecord, cfg config.BehavioralConfig) []string {
	var signals []string

	if p.DaysOnMarket >= cfg.LongDOMDays {
		signals = append(signals, "long listing duration")
	}
	if p.MotivationScore >= cfg.MotivationFloor {
		signals = append(signals, "high stated motivation")
	}
	if kw := matchKeyword(p.MotivationText, cfg.LifeEventKeywords); kw != "" {
		signals = append(signals, "life event: "+kw)
	}
	if p.PriceReduced {
		signals = append(signals, "price reduction")
	}
	if p.ResponseHours != nil && *p.ResponseHours <= cfg.FastResponseHours {
		signals = append(signals, "fast response time")
	}

	return signals
}

// matchKeyword returns the first configured keyword found in text, or "".
func matchKeyword(text string, keywords []string) string {
	t := strings.ToLower(text)
	if t == "" {
		return ""
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(t, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}
