package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// RatingTier grades a buyer's historical performance.
type RatingTier string

const (
	RatingA RatingTier = "A"
	RatingB RatingTier = "B"
	RatingC RatingTier = "C"
)

// BuyerRecord is an entry in the active buyer registry.
type BuyerRecord struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Active bool   `json:"active" yaml:"active"`

	ZIPs   []string `json:"zips" yaml:"zips"`
	Cities []string `json:"cities" yaml:"cities"`

	PriceMin float64 `json:"price_min" yaml:"price_min"`
	PriceMax float64 `json:"price_max" yaml:"price_max"`

	Strategies    []string   `json:"strategies" yaml:"strategies"`
	PropertyTypes []string   `json:"property_types" yaml:"property_types"`
	MaxRepairTier RepairTier `json:"max_repair_tier" yaml:"max_repair_tier"`
	Rating        RatingTier `json:"rating" yaml:"rating"`
}

// Validate checks structural validity of a buyer record.
func (b BuyerRecord) Validate() error {
	var missing []string
	if strings.TrimSpace(b.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(b.Name) == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return eris.Wrapf(ErrInvalidRecord, "buyer missing %s", strings.Join(missing, ", "))
	}
	if b.PriceMax > 0 && b.PriceMax < b.PriceMin {
		return eris.Wrap(ErrInvalidRecord, "buyer price_max below price_min")
	}
	return nil
}

// BuyerMatch is one scored buyer in a match shortlist.
type BuyerMatch struct {
	BuyerID     string   `json:"buyer_id"`
	Name        string   `json:"name"`
	Score       float64  `json:"score"`
	CriteriaMet []string `json:"criteria_met"`
}

// MatchResult is the ranked buyer shortlist for a classified deal.
type MatchResult struct {
	PropertyID   string       `json:"property_id"`
	Matches      []BuyerMatch `json:"matches"`
	BestBuyer    *BuyerMatch  `json:"best_buyer,omitempty"`
	MatchedCount int          `json:"matched_count"`
	Note         string       `json:"note,omitempty"`
}
