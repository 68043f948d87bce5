package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/model"
)

func testMatchConfig(t *testing.T) config.MatchConfig {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg.Engine.Match
}

func testDeal() model.DealSummary {
	return model.DealSummary{
		PropertyID:   "p1",
		Address:      "101 Oak St",
		City:         "Dallas",
		ZIP:          "75001",
		ARV:          200000,
		Strategy:     model.StrategyWholesale,
		PropertyType: model.PropertySingleFamily,
		RepairTier:   model.RepairModerate,
	}
}

func TestRank_PerfectMatchClampsAt100(t *testing.T) {
	cfg := testMatchConfig(t)

	buyer := model.BuyerRecord{
		ID: "b1", Name: "Lone Star Holdings", Active: true,
		ZIPs:          []string{"75001"},
		PriceMin:      150000,
		PriceMax:      250000,
		Strategies:    []string{"wholesale"},
		PropertyTypes: []string{"single_family"},
		MaxRepairTier: model.RepairGut,
		Rating:        model.RatingA,
	}

	result := Rank(testDeal(), []model.BuyerRecord{buyer}, cfg)
	require.Len(t, result.Matches, 1)
	// Raw factor sum plus the rating bonus exceeds 100.
	assert.Equal(t, 100.0, result.Matches[0].Score)
	assert.ElementsMatch(t, []string{
		"zip match", "price in range", "strategy match",
		"property type match", "repair tolerance ok",
	}, result.Matches[0].CriteriaMet)
	require.NotNil(t, result.BestBuyer)
	assert.Equal(t, "b1", result.BestBuyer.BuyerID)
}

func TestRank_EmptyRegistry(t *testing.T) {
	cfg := testMatchConfig(t)

	result := Rank(testDeal(), nil, cfg)
	assert.Empty(t, result.Matches)
	assert.Nil(t, result.BestBuyer)
	assert.Equal(t, 0, result.MatchedCount)
	assert.Equal(t, "no active buyers in registry", result.Note)
}

func TestRank_InactiveBuyersExcluded(t *testing.T) {
	cfg := testMatchConfig(t)

	buyer := model.BuyerRecord{
		ID: "b1", Name: "Dormant LLC", Active: false,
		ZIPs: []string{"75001"}, Strategies: []string{"wholesale"},
		PropertyTypes: []string{"single_family"}, MaxRepairTier: model.RepairGut,
	}

	result := Rank(testDeal(), []model.BuyerRecord{buyer}, cfg)
	assert.Empty(t, result.Matches)
	assert.Equal(t, "no active buyers in registry", result.Note)
}

func TestRank_BelowThresholdFiltered(t *testing.T) {
	cfg := testMatchConfig(t)

	buyer := model.BuyerRecord{
		ID: "b1", Name: "Coastal Capital", Active: true,
		ZIPs:          []string{"10001"},
		Cities:        []string{"Boston"},
		PriceMin:      500000,
		PriceMax:      900000,
		Strategies:    []string{"rental"},
		PropertyTypes: []string{"condo"},
		MaxRepairTier: model.RepairLight,
	}

	result := Rank(testDeal(), []model.BuyerRecord{buyer}, cfg)
	assert.Empty(t, result.Matches)
	assert.Equal(t, "no buyers scored above the match threshold", result.Note)
}

func TestRank_SortedDescendingAndCapped(t *testing.T) {
	cfg := testMatchConfig(t)

	full := model.BuyerRecord{
		Active: true, ZIPs: []string{"75001"},
		PriceMin: 100000, PriceMax: 300000,
		Strategies:    []string{"wholesale"},
		PropertyTypes: []string{"single_family"},
		MaxRepairTier: model.RepairGut,
	}

	buyers := make([]model.BuyerRecord, 4)
	for i := range buyers {
		buyers[i] = full
		buyers[i].ID = string(rune('a' + i))
		buyers[i].Name = "Buyer " + buyers[i].ID
	}
	// Weaken the later entries so ordering is observable.
	buyers[2].Strategies = []string{"rental"}
	buyers[3].Strategies = []string{"rental"}
	buyers[3].PropertyTypes = []string{"condo"}

	result := Rank(testDeal(), buyers, cfg)
	// All four clear the threshold but the shortlist is capped.
	assert.Equal(t, 4, result.MatchedCount)
	require.Len(t, result.Matches, 3)
	for i := 1; i < len(result.Matches); i++ {
		assert.GreaterOrEqual(t, result.Matches[i-1].Score, result.Matches[i].Score)
	}
	assert.Equal(t, "a", result.Matches[0].BuyerID)
}

func TestScoreBuyer_PartialGeo(t *testing.T) {
	cfg := testMatchConfig(t)

	prefix := model.BuyerRecord{ID: "b1", Active: true, ZIPs: []string{"75052"}}
	city := model.BuyerRecord{ID: "b2", Active: true, Cities: []string{"dallas"}}
	elsewhere := model.BuyerRecord{ID: "b3", Active: true, ZIPs: []string{"30301"}}

	deal := testDeal()
	scorePrefix, criteria := scoreBuyer(deal, prefix, cfg)
	scoreCity, _ := scoreBuyer(deal, city, cfg)
	scoreNone, _ := scoreBuyer(deal, elsewhere, cfg)

	assert.Contains(t, criteria, "area match")
	assert.Equal(t, scorePrefix, scoreCity)
	assert.Greater(t, scorePrefix, scoreNone)
	// The geographic baseline keeps out-of-area buyers above zero.
	assert.Greater(t, scoreNone, 0.0)
}

func TestPriceFit(t *testing.T) {
	b := model.BuyerRecord{PriceMin: 150000, PriceMax: 190000}

	assert.Equal(t, priceInRange, priceFit(160000, b, 0.10))
	// Within 10% above the cap counts as near range.
	assert.Equal(t, priceNearRange, priceFit(200000, b, 0.10))
	assert.Equal(t, priceOut, priceFit(250000, b, 0.10))
	assert.Equal(t, priceOut, priceFit(0, b, 0.10))

	// Open-ended max.
	open := model.BuyerRecord{PriceMin: 100000}
	assert.Equal(t, priceInRange, priceFit(900000, open, 0.10))
}

func TestStrategyMatch_Substring(t *testing.T) {
	assert.True(t, strategyMatch(model.StrategyBRRRR, []string{"rental/brrrr"}))
	assert.True(t, strategyMatch(model.StrategyWholesale, []string{"Wholesale"}))
	assert.False(t, strategyMatch(model.StrategyFlip, []string{"rental"}))
	assert.False(t, strategyMatch(model.StrategyKey(""), []string{"wholesale"}))
}

func TestRatingBonus(t *testing.T) {
	cfg := testMatchConfig(t)

	assert.Equal(t, 10.0, ratingBonus(model.RatingA, cfg))
	assert.Equal(t, 5.0, ratingBonus(model.RatingB, cfg))
	assert.Equal(t, 2.0, ratingBonus(model.RatingC, cfg))
	assert.Equal(t, 0.0, ratingBonus(model.RatingTier(""), cfg))
}
