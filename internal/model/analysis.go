package model

// RepairTier classifies repair complexity. Ordering matters: a buyer whose
// MaxRepairTier is below a deal's tier is incompatible.
type RepairTier string

const (
	RepairLight    RepairTier = "light"
	RepairModerate RepairTier = "moderate"
	RepairHeavy    RepairTier = "heavy"
	RepairGut      RepairTier = "gut"
)

// repairTierRank orders repair tiers from lightest to heaviest.
var repairTierRank = map[RepairTier]int{
	RepairLight:    0,
	RepairModerate: 1,
	RepairHeavy:    2,
	RepairGut:      3,
}

// Rank returns the ordinal position of the tier, or -1 for unknown tiers so
// an unparseable tolerance never matches.
func (t RepairTier) Rank() int {
	if r, ok := repairTierRank[t]; ok {
		return r
	}
	return -1
}

// Covers reports whether a buyer tolerance of tier t accepts a deal of tier d.
func (t RepairTier) Covers(d RepairTier) bool {
	tr, dr := t.Rank(), d.Rank()
	if tr < 0 || dr < 0 {
		return false
	}
	return tr >= dr
}

// ValuationEstimate is the output of the valuation stage. Monetary fields are
// whole-dollar. Confidence is heuristic-grade, never comparable-sales-grade.
type ValuationEstimate struct {
	ARV                 float64    `json:"arv"`
	ARVPerSqft          float64    `json:"arv_per_sqft"`
	Confidence          int        `json:"confidence"` // 0-100
	RepairEstimate      float64    `json:"repair_estimate"`
	RepairTier          RepairTier `json:"repair_tier"`
	HoldingCostPerMonth float64    `json:"holding_cost_per_month"`
	MarketBacked        bool       `json:"market_backed"`
}

// StrategyKey identifies an exit strategy in the fixed catalog.
type StrategyKey string

const (
	StrategyWholesale StrategyKey = "wholesale"
	StrategyFlip      StrategyKey = "flip"
	StrategyBRRRR     StrategyKey = "brrrr"
	StrategyRental    StrategyKey = "rental"
	StrategySubTo     StrategyKey = "sub_to"
	StrategyWrap      StrategyKey = "wrap"
	StrategyJV        StrategyKey = "jv"
)

// StrategyCatalog is the fixed evaluation order for MAO and recommendation.
var StrategyCatalog = []StrategyKey{
	StrategyWholesale,
	StrategyFlip,
	StrategyBRRRR,
	StrategyRental,
	StrategySubTo,
	StrategyWrap,
	StrategyJV,
}

// BalanceBasis records whether a creative-finance MAO used the real mortgage
// balance or an assumed fraction of asking price.
type BalanceBasis string

const (
	BalanceKnown   BalanceBasis = "known"
	BalanceAssumed BalanceBasis = "assumed"
)

// StrategyMAO is the maximum allowable offer for one strategy.
type StrategyMAO struct {
	Strategy StrategyKey  `json:"strategy"`
	Amount   float64      `json:"amount"`
	Basis    BalanceBasis `json:"basis,omitempty"`
}

// MAOSet holds one MAO per strategy plus the recommended pick.
type MAOSet struct {
	Entries             []StrategyMAO `json:"entries"`
	Recommended         float64       `json:"recommended"`
	RecommendedStrategy StrategyKey   `json:"recommended_strategy"`
	// Viable is false when no strategy produced a profitable offer; the
	// classifier treats such deals as non-viable.
	Viable bool `json:"viable"`
}

// Amount returns the MAO for a strategy, or 0 if absent.
func (m MAOSet) Amount(s StrategyKey) float64 {
	for _, e := range m.Entries {
		if e.Strategy == s {
			return e.Amount
		}
	}
	return 0
}

// ScoreSet holds component scores and the composite. All scores are 0-100;
// RiskScore is higher-is-worse.
type ScoreSet struct {
	MarketVolumeScore float64 `json:"market_volume_score"`
	VelocityScore     float64 `json:"velocity_score"`
	EquityPercent     float64 `json:"equity_percent"`
	RiskScore         float64 `json:"risk_score"`
	MarginPercent     float64 `json:"margin_percent"`
	DealScore         float64 `json:"deal_score"`
}

// ClassTier is the ordered deal classification.
type ClassTier string

const (
	ClassHot       ClassTier = "HOT"
	ClassSolid     ClassTier = "SOLID"
	ClassPortfolio ClassTier = "PORTFOLIO"
	ClassPass      ClassTier = "PASS"
)

// NextAction is the recommended follow-up for a classified deal.
type NextAction string

const (
	ActionMakeOffer     NextAction = "make_offer"
	ActionReviewComps   NextAction = "review_comps"
	ActionAddToPipeline NextAction = "add_to_pipeline"
	ActionDiscard       NextAction = "discard"
)

// Classification is the terminal classification of a deal.
type Classification struct {
	Tier               ClassTier  `json:"tier"`
	Reason             string     `json:"reason"`
	NextAction         NextAction `json:"next_action"`
	BehavioralOverride bool       `json:"behavioral_override,omitempty"`
}

// StrategyCandidate is one eligible strategy with its desirability score.
type StrategyCandidate struct {
	Strategy        StrategyKey `json:"strategy"`
	Score           float64     `json:"score"`
	ProfitEstimate  float64     `json:"profit_estimate"`
	MonthlyCashflow float64     `json:"monthly_cashflow,omitempty"`
	Rationale       string      `json:"rationale"`
}

// Recommendation ranks the eligible strategies. A zero-eligible result is the
// PASS sentinel with Confidence 0.
type Recommendation struct {
	Primary    *StrategyCandidate  `json:"primary,omitempty"`
	Secondary  *StrategyCandidate  `json:"secondary,omitempty"`
	Candidates []StrategyCandidate `json:"candidates"`
	Confidence int                 `json:"confidence"` // 0-100
	Pass       bool                `json:"pass"`
}

// AnalysisResult is the full engine output for one property. It carries no
// timestamps or generated ids so that re-analysis of an unchanged record is
// byte-identical; the persistence layer owns run bookkeeping.
type AnalysisResult struct {
	PropertyID     string            `json:"property_id"`
	Valuation      ValuationEstimate `json:"valuation"`
	MAO            MAOSet            `json:"mao"`
	Scores         ScoreSet          `json:"scores"`
	Classification Classification    `json:"classification"`
	Recommendation Recommendation    `json:"recommendation"`
}

// DealSummary is the slice of an analysis the buyer matcher consumes.
type DealSummary struct {
	PropertyID   string       `json:"property_id"`
	Address      string       `json:"address"`
	City         string       `json:"city"`
	ZIP          string       `json:"zip"`
	ARV          float64      `json:"arv"`
	Strategy     StrategyKey  `json:"strategy"`
	PropertyType PropertyType `json:"property_type"`
	RepairTier   RepairTier   `json:"repair_tier"`
}

// Summary projects an analysis into the matcher's input.
func (a AnalysisResult) Summary(p PropertyRecord) DealSummary {
	return DealSummary{
		PropertyID:   p.ID,
		Address:      p.Address,
		City:         p.City,
		ZIP:          p.ZIP,
		ARV:          a.Valuation.ARV,
		Strategy:     a.MAO.RecommendedStrategy,
		PropertyType: p.PropertyType,
		RepairTier:   a.Valuation.RepairTier,
	}
}
