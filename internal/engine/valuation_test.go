package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// testEngineConfig pins the built-in engine constants so a stray config file
// or environment variable cannot shift expected values.
func testEngineConfig(t *testing.T) config.EngineConfig {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg.Engine
}

func TestEstimateValuation_FallbackWithoutMarket(t *testing.T) {
	cfg := testEngineConfig(t).Valuation

	p := model.PropertyRecord{
		ID:             "p1",
		Address:        "101 Oak St",
		ZIP:            "75001",
		AskingPrice:    150000,
		ConditionScore: 50,
	}

	est := EstimateValuation(p, nil, cfg)
	assert.Equal(t, 172500.0, est.ARV)
	assert.False(t, est.MarketBacked)
	assert.Equal(t, 60, est.Confidence)
	assert.Equal(t, model.RepairModerate, est.RepairTier)
	// No square footage: repair estimate uses the reference size.
	assert.Equal(t, 45000.0, est.RepairEstimate)
	assert.Equal(t, 1500.0, est.HoldingCostPerMonth)
}

func TestEstimateValuation_KnownARVWins(t *testing.T) {
	cfg := testEngineConfig(t).Valuation

	arv := 250000.0
	p := model.PropertyRecord{
		ID:          "p1",
		Address:     "101 Oak St",
		ZIP:         "75001",
		AskingPrice: 180000,
		KnownARV:    &arv,
	}
	m := &model.MarketSnapshot{ZIP: "75001", MedianPrice: 100000}

	est := EstimateValuation(p, m, cfg)
	assert.Equal(t, 250000.0, est.ARV)
	assert.True(t, est.MarketBacked)
	assert.Equal(t, 72, est.Confidence)
}

func TestEstimateValuation_MarketBaseline(t *testing.T) {
	cfg := testEngineConfig(t).Valuation

	p := model.PropertyRecord{
		ID:             "p1",
		Address:        "101 Oak St",
		ZIP:            "75001",
		AskingPrice:    300000,
		SquareFeet:     2000,
		ConditionScore: 100,
	}
	m := &model.MarketSnapshot{ZIP: "75001", MedianPrice: 360000, MedianSqft: 1800}

	est := EstimateValuation(p, m, cfg)
	// $200/sqft baseline, top-of-range condition multiplier.
	assert.Equal(t, 440000.0, est.ARV)
	assert.Equal(t, 220.0, est.ARVPerSqft)
	assert.True(t, est.MarketBacked)
}

func TestEstimateValuation_KnownRepairCostWins(t *testing.T) {
	cfg := testEngineConfig(t).Valuation

	repairs := 32000.0
	p := model.PropertyRecord{
		ID:              "p1",
		Address:         "101 Oak St",
		ZIP:             "75001",
		AskingPrice:     150000,
		SquareFeet:      1500,
		KnownRepairCost: &repairs,
	}

	est := EstimateValuation(p, nil, cfg)
	assert.Equal(t, 32000.0, est.RepairEstimate)
}

func TestEstimateValuation_AgeAdjustedRepairs(t *testing.T) {
	cfg := testEngineConfig(t).Valuation

	p := model.PropertyRecord{
		ID:             "p1",
		Address:        "101 Oak St",
		ZIP:            "75001",
		AskingPrice:    150000,
		SquareFeet:     1000,
		YearBuilt:      1970,
		ConditionScore: 50,
	}

	est := EstimateValuation(p, nil, cfg)
	// Moderate tier at $25/sqft with the >50y factor.
	assert.Equal(t, 32500.0, est.RepairEstimate)
}

func TestConditionMultiplier_LinearRange(t *testing.T) {
	cfg := testEngineConfig(t).Valuation

	assert.InDelta(t, 0.85, conditionMultiplier(0, cfg), 0.001)
	assert.InDelta(t, 0.975, conditionMultiplier(50, cfg), 0.001)
	assert.InDelta(t, 1.10, conditionMultiplier(100, cfg), 0.001)
}

func TestRepairTierFor_Boundaries(t *testing.T) {
	tests := []struct {
		cond float64
		want model.RepairTier
	}{
		{10, model.RepairGut},
		{20, model.RepairGut},
		{21, model.RepairHeavy},
		{40, model.RepairHeavy},
		{41, model.RepairModerate},
		{60, model.RepairModerate},
		{61, model.RepairLight},
		{95, model.RepairLight},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, repairTierFor(tt.cond), "cond=%v", tt.cond)
	}
}

func TestAgeFactor_Boundaries(t *testing.T) {
	assert.Equal(t, 1.0, ageFactor(0))
	assert.Equal(t, 1.0, ageFactor(20))
	assert.Equal(t, 1.05, ageFactor(21))
	assert.Equal(t, 1.15, ageFactor(31))
	assert.Equal(t, 1.30, ageFactor(51))
}
