// Package config loads application configuration and initializes logging.
// Engine configuration is resolved once per invocation and passed by value
// into every stage; nothing reads ambient global state at analysis time.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`
	Enrich EnrichConfig `yaml:"enrich" mapstructure:"enrich"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// EnrichConfig configures the optional AI narrative enrichment.
type EnrichConfig struct {
	Enabled          bool    `yaml:"enabled" mapstructure:"enabled"`
	APIKey           string  `yaml:"api_key" mapstructure:"api_key"`
	Model            string  `yaml:"model" mapstructure:"model"`
	MaxTokens        int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMin   float64 `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownS int     `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// BatchConfig configures batch sweeps.
type BatchConfig struct {
	Limit       int `yaml:"limit" mapstructure:"limit"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP facade.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// EngineConfig aggregates per-stage engine configuration. It is treated as an
// immutable snapshot for the duration of a run.
type EngineConfig struct {
	Valuation ValuationConfig `yaml:"valuation" mapstructure:"valuation"`
	MAO       MAOConfig       `yaml:"mao" mapstructure:"mao"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Strategy  StrategyConfig  `yaml:"strategy" mapstructure:"strategy"`
	Match     MatchConfig     `yaml:"match" mapstructure:"match"`
}

// ValuationConfig holds the valuation estimator constants.
type ValuationConfig struct {
	// Condition multiplier applied to the market-derived baseline, linear in
	// the 0-100 condition score between Min and Max.
	ConditionMultMin float64 `yaml:"condition_mult_min" mapstructure:"condition_mult_min"`
	ConditionMultMax float64 `yaml:"condition_mult_max" mapstructure:"condition_mult_max"`

	// FallbackUpliftFactor scales the no-market ARV heuristic:
	// asking * (1 + (1 - cond/100) * factor).
	FallbackUpliftFactor float64 `yaml:"fallback_uplift_factor" mapstructure:"fallback_uplift_factor"`

	// ReferenceSqft approximates median square footage when a snapshot
	// provides a median price but no median size.
	ReferenceSqft float64 `yaml:"reference_sqft" mapstructure:"reference_sqft"`

	// Repair $/sqft by condition tier.
	RepairPSFGut      float64 `yaml:"repair_psf_gut" mapstructure:"repair_psf_gut"`
	RepairPSFHeavy    float64 `yaml:"repair_psf_heavy" mapstructure:"repair_psf_heavy"`
	RepairPSFModerate float64 `yaml:"repair_psf_moderate" mapstructure:"repair_psf_moderate"`
	RepairPSFLight    float64 `yaml:"repair_psf_light" mapstructure:"repair_psf_light"`

	HoldingCostMonthlyRate float64 `yaml:"holding_cost_monthly_rate" mapstructure:"holding_cost_monthly_rate"`

	// Confidence bases; heuristic-grade by design of the estimator.
	BaseConfidence        int `yaml:"base_confidence" mapstructure:"base_confidence"`
	MarketConfidenceBonus int `yaml:"market_confidence_bonus" mapstructure:"market_confidence_bonus"`
}

// MAOConfig holds per-strategy offer constants.
type MAOConfig struct {
	WholesaleDiscount float64 `yaml:"wholesale_discount" mapstructure:"wholesale_discount"`
	AssignmentFee     float64 `yaml:"assignment_fee" mapstructure:"assignment_fee"`

	FlipDiscount      float64 `yaml:"flip_discount" mapstructure:"flip_discount"`
	FlipHoldingMonths float64 `yaml:"flip_holding_months" mapstructure:"flip_holding_months"`

	RefinanceLTV   float64 `yaml:"refinance_ltv" mapstructure:"refinance_ltv"`
	RentalDiscount float64 `yaml:"rental_discount" mapstructure:"rental_discount"`

	// AssumedBalanceFraction approximates an unknown mortgage balance as a
	// fraction of asking price for sub-to/wrap offers.
	AssumedBalanceFraction float64 `yaml:"assumed_balance_fraction" mapstructure:"assumed_balance_fraction"`
	SubToCashCap           float64 `yaml:"sub_to_cash_cap" mapstructure:"sub_to_cash_cap"`
	WrapCashCap            float64 `yaml:"wrap_cash_cap" mapstructure:"wrap_cash_cap"`

	JVEquityShare float64 `yaml:"jv_equity_share" mapstructure:"jv_equity_share"`
}

// ScoringConfig holds score-tier boundaries and composite weights.
type ScoringConfig struct {
	// Preset names the active composite weight set. Explicit weights override
	// the preset.
	Preset string `yaml:"preset" mapstructure:"preset"`

	// Days-on-market tier boundaries for the velocity ramp.
	VelocityFastDays     int `yaml:"velocity_fast_days" mapstructure:"velocity_fast_days"`
	VelocityModerateDays int `yaml:"velocity_moderate_days" mapstructure:"velocity_moderate_days"`
	VelocitySlowDays     int `yaml:"velocity_slow_days" mapstructure:"velocity_slow_days"`

	// Sales-per-month tier boundaries for the market-volume ramp.
	VolumeHotSales  float64 `yaml:"volume_hot_sales" mapstructure:"volume_hot_sales"`
	VolumeWarmSales float64 `yaml:"volume_warm_sales" mapstructure:"volume_warm_sales"`

	// Composite weights; resolved from Preset when unset.
	Weights CompositeWeights `yaml:"weights" mapstructure:"weights"`

	// EquityScale converts equity percent to a 0-100 component
	// (component = equityPercent * EquityScale, clamped).
	EquityScale float64 `yaml:"equity_scale" mapstructure:"equity_scale"`
}

// CompositeWeights is one deal-score weight set. Weights are fractions that
// should sum to 1.0 including the risk penalty.
type CompositeWeights struct {
	Equity      float64 `yaml:"equity" mapstructure:"equity"`
	Market      float64 `yaml:"market" mapstructure:"market"`
	Velocity    float64 `yaml:"velocity" mapstructure:"velocity"`
	Motivation  float64 `yaml:"motivation" mapstructure:"motivation"`
	RiskPenalty float64 `yaml:"risk_penalty" mapstructure:"risk_penalty"`
}

// Sum returns the total weight including the risk penalty term.
func (w CompositeWeights) Sum() float64 {
	return w.Equity + w.Market + w.Velocity + w.Motivation + w.RiskPenalty
}

// IsZero reports whether no weight has been set.
func (w CompositeWeights) IsZero() bool {
	return w.Sum() == 0
}

// TierThresholds is one classification threshold set.
type TierThresholds struct {
	MinEquityPct float64 `yaml:"min_equity_pct" mapstructure:"min_equity_pct"`
	MinMarginPct float64 `yaml:"min_margin_pct" mapstructure:"min_margin_pct"`
	MaxRisk      float64 `yaml:"max_risk" mapstructure:"max_risk"`
	MinDealScore float64 `yaml:"min_deal_score" mapstructure:"min_deal_score"`
}

// BehavioralConfig controls the hot-seller behavioral override.
type BehavioralConfig struct {
	MinSignals        int      `yaml:"min_signals" mapstructure:"min_signals"`
	MinEquityPct      float64  `yaml:"min_equity_pct" mapstructure:"min_equity_pct"`
	MinDealScore      float64  `yaml:"min_deal_score" mapstructure:"min_deal_score"`
	LongDOMDays       int      `yaml:"long_dom_days" mapstructure:"long_dom_days"`
	MotivationFloor   int      `yaml:"motivation_floor" mapstructure:"motivation_floor"`
	FastResponseHours float64  `yaml:"fast_response_hours" mapstructure:"fast_response_hours"`
	LifeEventKeywords []string `yaml:"life_event_keywords" mapstructure:"life_event_keywords"`
}

// ClassifyConfig holds the ordered tier thresholds and behavioral override.
type ClassifyConfig struct {
	Hot        TierThresholds   `yaml:"hot" mapstructure:"hot"`
	Solid      TierThresholds   `yaml:"solid" mapstructure:"solid"`
	Portfolio  TierThresholds   `yaml:"portfolio" mapstructure:"portfolio"`
	Behavioral BehavioralConfig `yaml:"behavioral" mapstructure:"behavioral"`
}

// StrategyConfig holds eligibility guards and desirability inputs for the
// strategy recommender.
type StrategyConfig struct {
	MinSpread          float64  `yaml:"min_spread" mapstructure:"min_spread"`
	MinMonthlyCashflow float64  `yaml:"min_monthly_cashflow" mapstructure:"min_monthly_cashflow"`
	MotivationKeywords []string `yaml:"motivation_keywords" mapstructure:"motivation_keywords"`

	// Rent and debt heuristics used when no rent comp is supplied.
	RentFactor              float64 `yaml:"rent_factor" mapstructure:"rent_factor"`     // monthly rent ~ ARV * factor
	ExpenseRatio            float64 `yaml:"expense_ratio" mapstructure:"expense_ratio"` // opex as fraction of rent
	MortgageConstantMonthly float64 `yaml:"mortgage_constant_monthly" mapstructure:"mortgage_constant_monthly"`
}

// MatchConfig holds buyer-matching weights and thresholds. Factor weights are
// points; a perfect factor sweep sums to 100 before the rating bonus.
type MatchConfig struct {
	GeoWeight          float64 `yaml:"geo_weight" mapstructure:"geo_weight"`
	PriceWeight        float64 `yaml:"price_weight" mapstructure:"price_weight"`
	StrategyWeight     float64 `yaml:"strategy_weight" mapstructure:"strategy_weight"`
	PropertyTypeWeight float64 `yaml:"property_type_weight" mapstructure:"property_type_weight"`
	RepairWeight       float64 `yaml:"repair_weight" mapstructure:"repair_weight"`

	// GeoPartialFraction scales GeoWeight for prefix/city matches;
	// GeoBaseline is the never-zero floor for non-matching areas.
	GeoPartialFraction float64 `yaml:"geo_partial_fraction" mapstructure:"geo_partial_fraction"`
	GeoBaseline        float64 `yaml:"geo_baseline" mapstructure:"geo_baseline"`

	// PriceTolerance widens the buyer range for "close to range" credit,
	// scored at PricePartialFraction of PriceWeight.
	PriceTolerance       float64 `yaml:"price_tolerance" mapstructure:"price_tolerance"`
	PricePartialFraction float64 `yaml:"price_partial_fraction" mapstructure:"price_partial_fraction"`

	RatingBonusA float64 `yaml:"rating_bonus_a" mapstructure:"rating_bonus_a"`
	RatingBonusB float64 `yaml:"rating_bonus_b" mapstructure:"rating_bonus_b"`
	RatingBonusC float64 `yaml:"rating_bonus_c" mapstructure:"rating_bonus_c"`

	MinScore   float64 `yaml:"min_score" mapstructure:"min_score"`
	MaxMatches int     `yaml:"max_matches" mapstructure:"max_matches"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := ResolveEngine(&cfg.Engine); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the built-in configuration without consulting any config
// file or environment variable. Tests use it to pin engine constants.
func Default() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := ResolveEngine(&cfg.Engine); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "dealflow.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.limit", 500)
	// Batch sweeps run record by record unless concurrency is raised
	// explicitly.
	v.SetDefault("batch.concurrency", 1)

	v.SetDefault("enrich.enabled", false)
	v.SetDefault("enrich.model", "claude-haiku-4-5-20251001")
	v.SetDefault("enrich.max_tokens", 1024)
	v.SetDefault("enrich.requests_per_min", 20)
	v.SetDefault("enrich.breaker_threshold", 3)
	v.SetDefault("enrich.breaker_cooldown_secs", 60)

	v.SetDefault("engine.valuation.condition_mult_min", 0.85)
	v.SetDefault("engine.valuation.condition_mult_max", 1.10)
	v.SetDefault("engine.valuation.fallback_uplift_factor", 0.3)
	v.SetDefault("engine.valuation.reference_sqft", 1800)
	v.SetDefault("engine.valuation.repair_psf_gut", 55)
	v.SetDefault("engine.valuation.repair_psf_heavy", 40)
	v.SetDefault("engine.valuation.repair_psf_moderate", 25)
	v.SetDefault("engine.valuation.repair_psf_light", 12)
	v.SetDefault("engine.valuation.holding_cost_monthly_rate", 0.01)
	v.SetDefault("engine.valuation.base_confidence", 60)
	v.SetDefault("engine.valuation.market_confidence_bonus", 12)

	v.SetDefault("engine.mao.wholesale_discount", 0.70)
	v.SetDefault("engine.mao.assignment_fee", 10000)
	v.SetDefault("engine.mao.flip_discount", 0.75)
	v.SetDefault("engine.mao.flip_holding_months", 6)
	v.SetDefault("engine.mao.refinance_ltv", 0.75)
	v.SetDefault("engine.mao.rental_discount", 0.80)
	v.SetDefault("engine.mao.assumed_balance_fraction", 0.85)
	v.SetDefault("engine.mao.sub_to_cash_cap", 10000)
	v.SetDefault("engine.mao.wrap_cash_cap", 15000)
	v.SetDefault("engine.mao.jv_equity_share", 0.50)

	v.SetDefault("engine.scoring.preset", PresetClassic)
	v.SetDefault("engine.scoring.velocity_fast_days", 30)
	v.SetDefault("engine.scoring.velocity_moderate_days", 60)
	v.SetDefault("engine.scoring.velocity_slow_days", 90)
	v.SetDefault("engine.scoring.volume_hot_sales", 20)
	v.SetDefault("engine.scoring.volume_warm_sales", 8)
	v.SetDefault("engine.scoring.equity_scale", 2.0)

	v.SetDefault("engine.classify.hot.min_equity_pct", 30)
	v.SetDefault("engine.classify.hot.min_margin_pct", 15)
	v.SetDefault("engine.classify.hot.max_risk", 60)
	v.SetDefault("engine.classify.hot.min_deal_score", 0)
	v.SetDefault("engine.classify.solid.min_equity_pct", 20)
	v.SetDefault("engine.classify.solid.min_margin_pct", 8)
	v.SetDefault("engine.classify.solid.max_risk", 75)
	v.SetDefault("engine.classify.solid.min_deal_score", 55)
	v.SetDefault("engine.classify.portfolio.min_equity_pct", 10)
	v.SetDefault("engine.classify.portfolio.min_margin_pct", 0)
	v.SetDefault("engine.classify.portfolio.max_risk", 85)
	v.SetDefault("engine.classify.portfolio.min_deal_score", 40)
	v.SetDefault("engine.classify.behavioral.min_signals", 3)
	v.SetDefault("engine.classify.behavioral.min_equity_pct", 15)
	v.SetDefault("engine.classify.behavioral.min_deal_score", 45)
	v.SetDefault("engine.classify.behavioral.long_dom_days", 90)
	v.SetDefault("engine.classify.behavioral.motivation_floor", 7)
	v.SetDefault("engine.classify.behavioral.fast_response_hours", 24)
	v.SetDefault("engine.classify.behavioral.life_event_keywords", []string{
		"divorce", "probate", "inherited", "foreclosure", "job loss",
		"relocation", "relocating", "medical", "bankruptcy", "estate sale",
	})

	v.SetDefault("engine.strategy.min_spread", 15000)
	v.SetDefault("engine.strategy.min_monthly_cashflow", 200)
	v.SetDefault("engine.strategy.motivation_keywords", []string{
		"behind on payments", "pre-foreclosure", "foreclosure", "divorce",
		"probate", "inherited", "must sell", "motivated",
	})
	v.SetDefault("engine.strategy.rent_factor", 0.008)
	v.SetDefault("engine.strategy.expense_ratio", 0.40)
	v.SetDefault("engine.strategy.mortgage_constant_monthly", 0.0067)

	v.SetDefault("engine.match.geo_weight", 30)
	v.SetDefault("engine.match.price_weight", 25)
	v.SetDefault("engine.match.strategy_weight", 20)
	v.SetDefault("engine.match.property_type_weight", 15)
	v.SetDefault("engine.match.repair_weight", 10)
	v.SetDefault("engine.match.geo_partial_fraction", 0.5)
	v.SetDefault("engine.match.geo_baseline", 5)
	v.SetDefault("engine.match.price_tolerance", 0.10)
	v.SetDefault("engine.match.price_partial_fraction", 0.6)
	v.SetDefault("engine.match.rating_bonus_a", 10)
	v.SetDefault("engine.match.rating_bonus_b", 5)
	v.SetDefault("engine.match.rating_bonus_c", 2)
	v.SetDefault("engine.match.min_score", 50)
	v.SetDefault("engine.match.max_matches", 3)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
