package shared

import "github.com/shopspring/decimal"

// Fixed scales used for stored and canonical values
const (
	MoneyScale     int32 = 2
	QuantityScale  int32 = 3
	UnitPriceScale int32 = 4
	CostScale      int32 = 4
)

// RoundMoney rounds half away from zero to 2 decimals
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// RoundCost rounds half away from zero to 4 decimals
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(CostScale)
}
