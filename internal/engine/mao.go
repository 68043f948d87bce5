package engine

import (
	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// ComputeMAO produces a maximum allowable offer per exit strategy plus the
// recommended pick. Every constant comes from cfg; values clamp at zero.
func ComputeMAO(p model.PropertyRecord, v model.ValuationEstimate, cfg config.MAOConfig) model.MAOSet {
	arv := v.ARV
	repairs := v.RepairEstimate
	holding := v.HoldingCostPerMonth

	if arv <= 0 {
		// No resale value to offer against: non-viable across the board.
		entries := make([]model.StrategyMAO, 0, len(model.StrategyCatalog))
		for _, s := range model.StrategyCatalog {
			entries = append(entries, model.StrategyMAO{Strategy: s})
		}
		return model.MAOSet{
			Entries:             entries,
			RecommendedStrategy: model.StrategyWholesale,
		}
	}

	balance, basis := mortgageBalance(p, cfg)

	entries := make([]model.StrategyMAO, 0, len(model.StrategyCatalog))
	for _, s := range model.StrategyCatalog {
		e := model.StrategyMAO{Strategy: s}
		switch s {
		case model.StrategyWholesale:
			e.Amount = arv*cfg.WholesaleDiscount - repairs - cfg.AssignmentFee
		case model.StrategyFlip:
			e.Amount = arv*cfg.FlipDiscount - repairs - holding*cfg.FlipHoldingMonths
		case model.StrategyBRRRR:
			e.Amount = arv*cfg.RefinanceLTV - repairs
		case model.StrategyRental:
			e.Amount = arv*cfg.RentalDiscount - repairs
		case model.StrategySubTo:
			e.Amount = balance + cfg.SubToCashCap
			e.Basis = basis
		case model.StrategyWrap:
			e.Amount = balance + cfg.WrapCashCap
			e.Basis = basis
		case model.StrategyJV:
			e.Amount = (arv - repairs) * cfg.JVEquityShare
		}
		e.Amount = roundDollar(e.Amount)
		entries = append(entries, e)
	}

	set := model.MAOSet{Entries: entries}

	// Recommended: the highest MAO that is profitable and below asking.
	best := -1.0
	for _, e := range entries {
		if e.Amount <= 0 || e.Amount >= p.AskingPrice {
			continue
		}
		if e.Amount > best {
			best = e.Amount
			set.Recommended = e.Amount
			set.RecommendedStrategy = e.Strategy
		}
	}
	set.Viable = best > 0

	if best < 0 {
		// Nothing both profitable and under asking: fall back to wholesale
		// and leave the set non-viable so the classifier passes on it.
		set.Recommended = set.Amount(model.StrategyWholesale)
		set.RecommendedStrategy = model.StrategyWholesale
	}

	return set
}

// mortgageBalance returns the balance used for creative-finance offers and
// whether it was known or assumed from asking price.
func mortgageBalance(p model.PropertyRecord, cfg config.MAOConfig) (float64, model.BalanceBasis) {
	if p.MortgageBalance != nil && *p.MortgageBalance > 0 {
		return *p.MortgageBalance, model.BalanceKnown
	}
	return p.AskingPrice * cfg.AssumedBalanceFraction, model.BalanceAssumed
}
