// Package match ranks prospective buyers against a classified deal using
// weighted multi-criteria scoring.
package match

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// Rank scores every active buyer against the deal and returns the shortlist:
// buyers at or above the configured minimum, sorted descending by score,
// capped at the configured match count. An empty registry is a valid result,
// never an error.
func Rank(deal model.DealSummary, buyers []model.BuyerRecord, cfg config.MatchConfig) model.MatchResult {
	result := model.MatchResult{PropertyID: deal.PropertyID}

	active := 0
	for _, b := range buyers {
		if !b.Active {
			continue
		}
		active++
		score, criteria := scoreBuyer(deal, b, cfg)
		if score < cfg.MinScore {
			continue
		}
		result.Matches = append(result.Matches, model.BuyerMatch{
			BuyerID:     b.ID,
			Name:        b.Name,
			Score:       score,
			CriteriaMet: criteria,
		})
	}

	// Stable sort keeps registry order for exact ties, so identical inputs
	// produce identical output.
	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Score > result.Matches[j].Score
	})

	result.MatchedCount = len(result.Matches)
	switch {
	case active == 0:
		result.Note = "no active buyers in registry"
	case result.MatchedCount == 0:
		result.Note = "no buyers scored above the match threshold"
	}

	max := cfg.MaxMatches
	if max <= 0 {
		max = 3
	}
	if len(result.Matches) > max {
		result.Matches = result.Matches[:max]
	}
	if len(result.Matches) > 0 {
		result.BestBuyer = &result.Matches[0]
	}

	zap.L().Debug("buyer matching complete",
		zap.String("property_id", deal.PropertyID),
		zap.Int("active_buyers", active),
		zap.Int("matched", result.MatchedCount),
	)

	return result
}

// scoreBuyer computes the weighted factor sum plus rating bonus, clamped to
// 100, and the list of satisfied criteria for explainability.
func scoreBuyer(deal model.DealSummary, b model.BuyerRecord, cfg config.MatchConfig) (float64, []string) {
	var score float64
	var criteria []string

	// Geographic match: exact ZIP, then ZIP-prefix/city, then a low nonzero
	// baseline so near-misses still surface.
	switch geoMatch(deal, b) {
	case geoExact:
		score += cfg.GeoWeight
		criteria = append(criteria, "zip match")
	case geoPartial:
		score += cfg.GeoWeight * cfg.GeoPartialFraction
		criteria = append(criteria, "area match")
	default:
		score += cfg.GeoBaseline
	}

	// Price-range fit against ARV.
	switch priceFit(deal.ARV, b, cfg.PriceTolerance) {
	case priceInRange:
		score += cfg.PriceWeight
		criteria = append(criteria, "price in range")
	case priceNearRange:
		score += cfg.PriceWeight * cfg.PricePartialFraction
		criteria = append(criteria, "price near range")
	}

	if strategyMatch(deal.Strategy, b.Strategies) {
		score += cfg.StrategyWeight
		criteria = append(criteria, "strategy match")
	}

	if typeMatch(deal.PropertyType, b.PropertyTypes) {
		score += cfg.PropertyTypeWeight
		criteria = append(criteria, "property type match")
	}

	if b.MaxRepairTier.Covers(deal.RepairTier) {
		score += cfg.RepairWeight
		criteria = append(criteria, "repair tolerance ok")
	}

	score += ratingBonus(b.Rating, cfg)

	return math.Min(score, 100), criteria
}

type geoResult int

const (
	geoNone geoResult = iota
	geoPartial
	geoExact
)

func geoMatch(deal model.DealSummary, b model.BuyerRecord) geoResult {
	for _, z := range b.ZIPs {
		if z != "" && z == deal.ZIP {
			return geoExact
		}
	}
	// Same USPS sectional center (3-digit prefix) counts as adjacent area.
	if len(deal.ZIP) >= 3 {
		prefix := deal.ZIP[:3]
		for _, z := range b.ZIPs {
			if len(z) >= 3 && z[:3] == prefix {
				return geoPartial
			}
		}
	}
	for _, c := range b.Cities {
		if c != "" && strings.EqualFold(c, deal.City) {
			return geoPartial
		}
	}
	return geoNone
}

type priceResult int

const (
	priceOut priceResult = iota
	priceNearRange
	priceInRange
)

func priceFit(arv float64, b model.BuyerRecord, tolerance float64) priceResult {
	if arv <= 0 {
		return priceOut
	}
	min, max := b.PriceMin, b.PriceMax
	if max <= 0 {
		max = math.Inf(1)
	}
	if arv >= min && arv <= max {
		return priceInRange
	}
	lo := min * (1 - tolerance)
	hi := max * (1 + tolerance)
	if arv >= lo && arv <= hi {
		return priceNearRange
	}
	return priceOut
}

// strategyMatch accepts exact or substring matches against the buyer's
// preferred strategy list ("brrrr" matches "rental/brrrr").
func strategyMatch(s model.StrategyKey, prefs []string) bool {
	key := strings.ToLower(string(s))
	if key == "" {
		return false
	}
	for _, p := range prefs {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if p == key || strings.Contains(p, key) || strings.Contains(key, p) {
			return true
		}
	}
	return false
}

func typeMatch(t model.PropertyType, prefs []string) bool {
	for _, p := range prefs {
		if strings.EqualFold(strings.TrimSpace(p), string(t)) {
			return true
		}
	}
	return false
}

func ratingBonus(r model.RatingTier, cfg config.MatchConfig) float64 {
	switch r {
	case model.RatingA:
		return cfg.RatingBonusA
	case model.RatingB:
		return cfg.RatingBonusB
	case model.RatingC:
		return cfg.RatingBonusC
	default:
		return 0
	}
}
