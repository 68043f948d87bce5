package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Composite weight presets. The source material carried several divergent
// deal-score weight sets; rather than silently picking one, the active set is
// a named configuration choice.
const (
	// PresetClassic is the balanced set: equity dominates, then market
	// conditions, velocity and seller motivation, with a risk penalty.
	PresetClassic = "classic"
	// PresetAggressive leans harder on equity and discounts risk.
	PresetAggressive = "aggressive"
	// PresetConservative weighs risk and market liquidity more heavily.
	PresetConservative = "conservative"
)

var weightPresets = map[string]CompositeWeights{
	PresetClassic: {
		Equity:      0.40,
		Market:      0.20,
		Velocity:    0.15,
		Motivation:  0.15,
		RiskPenalty: 0.10,
	},
	PresetAggressive: {
		Equity:      0.50,
		Market:      0.15,
		Velocity:    0.10,
		Motivation:  0.20,
		RiskPenalty: 0.05,
	},
	PresetConservative: {
		Equity:      0.30,
		Market:      0.25,
		Velocity:    0.15,
		Motivation:  0.10,
		RiskPenalty: 0.20,
	},
}

// PresetNames returns the known preset names.
func PresetNames() []string {
	return []string{PresetClassic, PresetAggressive, PresetConservative}
}

// ResolveEngine fills preset-derived weights and validates the engine config.
// It must be called once after loading and before any stage runs.
func ResolveEngine(ec *EngineConfig) error {
	if ec.Scoring.Weights.IsZero() {
		name := ec.Scoring.Preset
		if name == "" {
			name = PresetClassic
		}
		w, ok := weightPresets[strings.ToLower(name)]
		if !ok {
			return eris.Errorf("config: unknown scoring preset %q (known: %s)",
				name, strings.Join(PresetNames(), ", "))
		}
		ec.Scoring.Weights = w
	}
	return ValidateEngine(*ec)
}

// ValidateEngine checks that an engine config is internally consistent.
func ValidateEngine(ec EngineConfig) error {
	var errs []string

	w := ec.Scoring.Weights
	for name, v := range map[string]float64{
		"equity":       w.Equity,
		"market":       w.Market,
		"velocity":     w.Velocity,
		"motivation":   w.Motivation,
		"risk_penalty": w.RiskPenalty,
	} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("scoring weight %s must be >= 0", name))
		}
	}
	if w.Sum() <= 0 {
		errs = append(errs, "scoring weight sum must be > 0")
	} else if math.Abs(w.Sum()-1.0) > 0.01 {
		errs = append(errs, fmt.Sprintf("scoring weights should sum to 1.0, got %.2f", w.Sum()))
	}

	if ec.Valuation.ConditionMultMax < ec.Valuation.ConditionMultMin {
		errs = append(errs, "valuation condition_mult_max must be >= condition_mult_min")
	}
	if ec.MAO.WholesaleDiscount <= 0 || ec.MAO.WholesaleDiscount > 1 {
		errs = append(errs, "mao wholesale_discount must be in (0, 1]")
	}
	if ec.MAO.RefinanceLTV <= 0 || ec.MAO.RefinanceLTV > 1 {
		errs = append(errs, "mao refinance_ltv must be in (0, 1]")
	}
	if ec.Scoring.VelocityFastDays <= 0 ||
		ec.Scoring.VelocityModerateDays <= ec.Scoring.VelocityFastDays ||
		ec.Scoring.VelocitySlowDays <= ec.Scoring.VelocityModerateDays {
		errs = append(errs, "scoring velocity tiers must satisfy 0 < fast < moderate < slow")
	}
	if ec.Scoring.VolumeWarmSales <= 0 || ec.Scoring.VolumeHotSales <= ec.Scoring.VolumeWarmSales {
		errs = append(errs, "scoring volume tiers must satisfy 0 < warm < hot")
	}
	if ec.Match.MinScore < 0 || ec.Match.MinScore > 100 {
		errs = append(errs, "match min_score must be between 0 and 100")
	}
	if ec.Match.GeoBaseline <= 0 {
		errs = append(errs, "match geo_baseline must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: engine validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
