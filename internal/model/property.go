// Package model defines the domain entities for deal analysis and buyer matching.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// PropertyType categorizes a property for matching and risk purposes.
type PropertyType string

const (
	PropertySingleFamily PropertyType = "single_family"
	PropertyMultiFamily  PropertyType = "multi_family"
	PropertyCondo        PropertyType = "condo"
	PropertyTownhouse    PropertyType = "townhouse"
	PropertyMobile       PropertyType = "mobile"
	PropertyLand         PropertyType = "land"
)

// Occupancy describes who, if anyone, lives in the property.
type Occupancy string

const (
	OccupancyOwner  Occupancy = "owner"
	OccupancyTenant Occupancy = "tenant"
	OccupancyVacant Occupancy = "vacant"
)

// ErrInvalidRecord marks a structurally invalid input record. Callers should
// skip and report the record rather than let it pass through.
var ErrInvalidRecord = eris.New("model: structurally invalid record")

// PropertyRecord is a normalized acquisition lead. It is immutable once
// handed to the engine for an analysis run.
type PropertyRecord struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZIP     string `json:"zip"`

	AskingPrice  float64      `json:"asking_price"`
	Beds         int          `json:"beds"`
	Baths        float64      `json:"baths"`
	SquareFeet   float64      `json:"square_feet"`
	YearBuilt    int          `json:"year_built"`
	PropertyType PropertyType `json:"property_type"`
	Occupancy    Occupancy    `json:"occupancy"`

	// Condition is the free-text descriptor from intake ("good", "needs full
	// rehab", ...). ConditionScore, when > 0, overrides the descriptor mapping.
	Condition      string `json:"condition"`
	ConditionScore int    `json:"condition_score,omitempty"`

	MotivationText  string `json:"motivation_text,omitempty"`
	MotivationScore int    `json:"motivation_score"` // 1-10
	DaysOnMarket    int    `json:"days_on_market"`
	PriceReduced    bool   `json:"price_reduced"`

	// ResponseHours is the seller's observed response time, when known.
	ResponseHours *float64 `json:"response_hours,omitempty"`

	// Pre-resolved figures, when the lead arrives with them.
	KnownARV        *float64 `json:"known_arv,omitempty"`
	KnownRepairCost *float64 `json:"known_repair_cost,omitempty"`
	MortgageBalance *float64 `json:"mortgage_balance,omitempty"`
}

// Validate checks structural validity. Identity and a locatable address are
// required; everything else degrades to heuristics.
func (p PropertyRecord) Validate() error {
	var missing []string
	if strings.TrimSpace(p.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(p.Address) == "" {
		missing = append(missing, "address")
	}
	if strings.TrimSpace(p.ZIP) == "" {
		missing = append(missing, "zip")
	}
	if len(missing) > 0 {
		return eris.Wrapf(ErrInvalidRecord, "property missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// conditionDescriptorScores maps intake condition descriptors to a 0-100 score.
var conditionDescriptorScores = map[string]int{
	"excellent":     90,
	"renovated":     90,
	"good":          75,
	"average":       60,
	"fair":          50,
	"dated":         45,
	"poor":          30,
	"distressed":    20,
	"teardown":      10,
	"uninhabitable": 10,
}

// NormalizedConditionScore returns the 0-100 condition score: the numeric
// override when set, otherwise a descriptor lookup, otherwise a neutral 50.
func (p PropertyRecord) NormalizedConditionScore() int {
	if p.ConditionScore > 0 {
		if p.ConditionScore > 100 {
			return 100
		}
		return p.ConditionScore
	}
	if s, ok := conditionDescriptorScores[strings.ToLower(strings.TrimSpace(p.Condition))]; ok {
		return s
	}
	return 50
}

// Age returns the property age in years relative to the given current year.
// Unknown build year reads as 0 years old (no age adjustment).
func (p PropertyRecord) Age(currentYear int) int {
	if p.YearBuilt <= 0 || p.YearBuilt > currentYear {
		return 0
	}
	return currentYear - p.YearBuilt
}

// MarketSnapshot holds pre-resolved market metrics for a geographic key.
// Absence of a snapshot is valid; the estimator degrades to heuristics.
type MarketSnapshot struct {
	ZIP           string  `json:"zip" yaml:"zip"`
	MedianDOM     int     `json:"median_dom" yaml:"median_dom"`
	SalesPerMonth float64 `json:"sales_per_month" yaml:"sales_per_month"`
	MedianPrice   float64 `json:"median_price" yaml:"median_price"`
	MedianSqft    float64 `json:"median_sqft,omitempty" yaml:"median_sqft,omitempty"`
}
