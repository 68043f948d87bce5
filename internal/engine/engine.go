package engine

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/match"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// Analyze runs the full pipeline for one property: valuation, MAO, scoring,
// classification, strategy recommendation. It is a pure function of its
// inputs plus cfg; identical inputs yield identical output.
func Analyze(p model.PropertyRecord, m *model.MarketSnapshot, cfg config.EngineConfig) (*model.AnalysisResult, error) {
	if err := p.Validate(); err != nil {
		return nil, eris.Wrap(err, "engine: analyze")
	}

	valuation := EstimateValuation(p, m, cfg.Valuation)
	maoSet := ComputeMAO(p, valuation, cfg.MAO)
	scores := ComputeScores(p, valuation, maoSet, m, cfg.Scoring)
	classification := Classify(p, maoSet, scores, cfg.Classify)
	recommendation := RecommendStrategies(p, valuation, maoSet, scores, cfg.Strategy)

	result := &model.AnalysisResult{
		PropertyID:     p.ID,
		Valuation:      valuation,
		MAO:            maoSet,
		Scores:         scores,
		Classification: classification,
		Recommendation: recommendation,
	}

	zap.L().Info("analysis complete",
		zap.String("property_id", p.ID),
		zap.String("classification", string(classification.Tier)),
		zap.Float64("deal_score", scores.DealScore),
		zap.Float64("recommended_mao", maoSet.Recommended),
	)

	return result, nil
}

// AnalysisOutput bundles an analysis with its buyer match result.
type AnalysisOutput struct {
	Analysis *model.AnalysisResult `json:"analysis"`
	Matches  model.MatchResult     `json:"matches"`
}

// AnalyzeAndMatch is the composed convenience entry point: analyze the
// property, then rank the buyer registry against the classified deal.
func AnalyzeAndMatch(p model.PropertyRecord, m *model.MarketSnapshot, buyers []model.BuyerRecord, cfg config.EngineConfig) (*AnalysisOutput, error) {
	analysis, err := Analyze(p, m, cfg)
	if err != nil {
		return nil, err
	}

	matches := match.Rank(analysis.Summary(p), buyers, cfg.Match)

	return &AnalysisOutput{
		Analysis: analysis,
		Matches:  matches,
	}, nil
}
