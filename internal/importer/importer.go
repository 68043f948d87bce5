// Package importer loads property leads, buyer registries, and market
// snapshots from XLSX worksheets and YAML files.
package importer

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// SkippedRow records one rejected input row and why it was rejected.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Report summarizes an import run. Rejected rows never abort the run.
type Report struct {
	Imported int          `json:"imported"`
	Skipped  []SkippedRow `json:"skipped,omitempty"`
}

func (r *Report) skip(row int, reason string) {
	r.Skipped = append(r.Skipped, SkippedRow{Row: row, Reason: reason})
}

// Properties reads a property worksheet. The first row must be a header;
// columns are matched by name, case-insensitively.
func Properties(path string, opts XLSXOptions) ([]model.PropertyRecord, Report, error) {
	header, rows, err := readXLSX(path, opts)
	if err != nil {
		return nil, Report{}, err
	}

	cols := columnIndex(header)
	var (
		out    []model.PropertyRecord
		report Report
	)
	for i, row := range rows {
		rowNum := i + 2 // 1-based, after the header
		p, err := parseProperty(cols, row)
		if err != nil {
			report.skip(rowNum, err.Error())
			continue
		}
		if err := p.Validate(); err != nil {
			report.skip(rowNum, err.Error())
			continue
		}
		out = append(out, p)
		report.Imported++
	}

	zap.L().Info("imported properties",
		zap.String("path", path),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", len(report.Skipped)))
	return out, report, nil
}

// Buyers reads a buyer worksheet. List-valued columns (zips, cities,
// strategies, property_types) are semicolon-separated.
func Buyers(path string, opts XLSXOptions) ([]model.BuyerRecord, Report, error) {
	header, rows, err := readXLSX(path, opts)
	if err != nil {
		return nil, Report{}, err
	}

	cols := columnIndex(header)
	var (
		out    []model.BuyerRecord
		report Report
	)
	for i, row := range rows {
		rowNum := i + 2
		b, err := parseBuyer(cols, row)
		if err != nil {
			report.skip(rowNum, err.Error())
			continue
		}
		if err := b.Validate(); err != nil {
			report.skip(rowNum, err.Error())
			continue
		}
		out = append(out, b)
		report.Imported++
	}

	zap.L().Info("imported buyers",
		zap.String("path", path),
		zap.Int("imported", report.Imported),
		zap.Int("skipped", len(report.Skipped)))
	return out, report, nil
}

// BuyersYAML reads a buyer registry from a YAML file. The file is either a
// bare list of buyers or a document with a top-level "buyers" key.
func BuyersYAML(path string) ([]model.BuyerRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: read buyer registry")
	}

	var doc struct {
		Buyers []model.BuyerRecord `yaml:"buyers"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil || len(doc.Buyers) == 0 {
		var list []model.BuyerRecord
		if listErr := yaml.Unmarshal(raw, &list); listErr != nil {
			if err != nil {
				return nil, eris.Wrap(err, "importer: parse buyer registry")
			}
			return nil, eris.Wrap(listErr, "importer: parse buyer registry")
		}
		doc.Buyers = list
	}

	for i, b := range doc.Buyers {
		if err := b.Validate(); err != nil {
			return nil, eris.Wrapf(err, "importer: buyer %d", i+1)
		}
	}
	return doc.Buyers, nil
}

// MarketsYAML reads market snapshots from a YAML file keyed by ZIP.
func MarketsYAML(path string) (map[string]*model.MarketSnapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: read markets")
	}

	var list []model.MarketSnapshot
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, eris.Wrap(err, "importer: parse markets")
	}

	out := make(map[string]*model.MarketSnapshot, len(list))
	for i := range list {
		m := list[i]
		if strings.TrimSpace(m.ZIP) == "" {
			return nil, eris.Errorf("importer: market %d missing zip", i+1)
		}
		out[m.ZIP] = &m
	}
	return out, nil
}

// columnIndex maps normalized header names to column positions.
func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if key != "" {
			cols[key] = i
		}
	}
	return cols
}

func parseProperty(cols map[string]int, row []string) (model.PropertyRecord, error) {
	p := model.PropertyRecord{
		ID:             cell(cols, row, "id"),
		Address:        cell(cols, row, "address"),
		City:           cell(cols, row, "city"),
		State:          cell(cols, row, "state"),
		ZIP:            cell(cols, row, "zip"),
		PropertyType:   model.PropertyType(strings.ToLower(cell(cols, row, "property_type"))),
		Occupancy:      model.Occupancy(strings.ToLower(cell(cols, row, "occupancy"))),
		Condition:      cell(cols, row, "condition"),
		MotivationText: cell(cols, row, "motivation_text"),
		PriceReduced:   parseBool(cell(cols, row, "price_reduced")),
	}

	var err error
	if p.AskingPrice, err = parseFloat(cell(cols, row, "asking_price")); err != nil {
		return p, fmt.Errorf("asking_price: %v", err)
	}
	if p.Beds, err = parseInt(cell(cols, row, "beds")); err != nil {
		return p, fmt.Errorf("beds: %v", err)
	}
	if p.Baths, err = parseFloat(cell(cols, row, "baths")); err != nil {
		return p, fmt.Errorf("baths: %v", err)
	}
	if p.SquareFeet, err = parseFloat(cell(cols, row, "square_feet")); err != nil {
		return p, fmt.Errorf("square_feet: %v", err)
	}
	if p.YearBuilt, err = parseInt(cell(cols, row, "year_built")); err != nil {
		return p, fmt.Errorf("year_built: %v", err)
	}
	if p.ConditionScore, err = parseInt(cell(cols, row, "condition_score")); err != nil {
		return p, fmt.Errorf("condition_score: %v", err)
	}
	if p.MotivationScore, err = parseInt(cell(cols, row, "motivation_score")); err != nil {
		return p, fmt.Errorf("motivation_score: %v", err)
	}
	if p.DaysOnMarket, err = parseInt(cell(cols, row, "days_on_market")); err != nil {
		return p, fmt.Errorf("days_on_market: %v", err)
	}

	if p.ResponseHours, err = parseOptFloat(cell(cols, row, "response_hours")); err != nil {
		return p, fmt.Errorf("response_hours: %v", err)
	}
	if p.KnownARV, err = parseOptFloat(cell(cols, row, "known_arv")); err != nil {
		return p, fmt.Errorf("known_arv: %v", err)
	}
	if p.KnownRepairCost, err = parseOptFloat(cell(cols, row, "known_repair_cost")); err != nil {
		return p, fmt.Errorf("known_repair_cost: %v", err)
	}
	if p.MortgageBalance, err = parseOptFloat(cell(cols, row, "mortgage_balance")); err != nil {
		return p, fmt.Errorf("mortgage_balance: %v", err)
	}
	return p, nil
}

func parseBuyer(cols map[string]int, row []string) (model.BuyerRecord, error) {
	b := model.BuyerRecord{
		ID:            cell(cols, row, "id"),
		Name:          cell(cols, row, "name"),
		Active:        parseBool(cell(cols, row, "active")),
		ZIPs:          splitList(cell(cols, row, "zips")),
		Cities:        splitList(cell(cols, row, "cities")),
		Strategies:    splitList(cell(cols, row, "strategies")),
		PropertyTypes: splitList(cell(cols, row, "property_types")),
		MaxRepairTier: model.RepairTier(strings.ToLower(cell(cols, row, "max_repair_tier"))),
		Rating:        model.RatingTier(strings.ToUpper(cell(cols, row, "rating"))),
	}

	var err error
	if b.PriceMin, err = parseFloat(cell(cols, row, "price_min")); err != nil {
		return b, fmt.Errorf("price_min: %v", err)
	}
	if b.PriceMax, err = parseFloat(cell(cols, row, "price_max")); err != nil {
		return b, fmt.Errorf("price_max: %v", err)
	}
	return b, nil
}

func cell(cols map[string]int, row []string, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

func parseOptFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseFloat(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseInt(s string) (int, error) {
	v, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}
