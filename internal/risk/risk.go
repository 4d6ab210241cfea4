package risk

import "github.com/shopspring/decimal"

// Limits caps what a single signal may spend. Zero values mean unlimited.
type Limits struct {
	MaxBuy decimal.Decimal // whole native units per buy
}

func (l Limits) Allow(amount decimal.Decimal) bool {
	return l.MaxBuy.IsZero() || amount.LessThanOrEqual(l.MaxBuy)
}
