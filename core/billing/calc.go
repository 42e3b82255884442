package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/smartbill/core/reading"
	"github.com/trezcool/smartbill/core/tariff"
)

// DueDelta is the time a customer has to pay a bill.
const DueDelta = 15 * 24 * time.Hour

// ComputeAmount prices the reading's consumption at the tariff's flat rate.
// Tariff bands (unit_min, unit_max) are not applied.
func ComputeAmount(r reading.Reading, t tariff.Tariff) decimal.Decimal {
	return r.Amount.Mul(t.Price).Round(2)
}

// DueDate returns the payment deadline of a bill created at createdAt.
func DueDate(createdAt time.Time) time.Time {
	return createdAt.Add(DueDelta)
}
