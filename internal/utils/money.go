package utils

import "github.com/shopspring/decimal"

// Money amounts are stored as integer cents in the database and handled as
// decimals everywhere else, so arithmetic stays exact.

func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
