package billing

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/customer"
	"github.com/trezcool/smartbill/core/reading"
	"github.com/trezcool/smartbill/core/tariff"
)

// bill statuses
const (
	StatusUnpaid  = "unpaid"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

var AllStatuses = []string{StatusUnpaid, StatusPaid, StatusOverdue}

type Bill struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	GeneratedBy string          `json:"generated_by"`
	ReadingID   string          `json:"reading_id"`
	TariffID    string          `json:"tariff_id"`
	Amount      decimal.Decimal `json:"bill_amount"`
	Status      string          `json:"status"`
	DueDate     time.Time       `json:"due_date"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at"` // UTC

	CustomerName string `json:"customer_name,omitempty"`
}

// IsPayable tells whether a payment can be initiated for the bill.
func (b Bill) IsPayable() bool {
	return b.Status == StatusUnpaid || b.Status == StatusOverdue
}

// NewBill contains information needed to generate a Bill.
// The customer's latest reading & the tariff named after its type are used when omitted.
type NewBill struct {
	CustomerID string `json:"customer_id" validate:"required,uuid"`
	ReadingID  string `json:"reading_id" validate:"omitempty,uuid"`
	TariffID   string `json:"tariff_id" validate:"omitempty,uuid"`
}

func (nb *NewBill) Validate(validate *validator.Validate) error {
	nb.CustomerID = core.CleanString(nb.CustomerID, true /* lower */)
	nb.ReadingID = core.CleanString(nb.ReadingID, true /* lower */)
	nb.TariffID = core.CleanString(nb.TariffID, true /* lower */)
	return validate.Struct(nb)
}

type QueryFilter struct {
	CustomerID  string    `query:"customer_id" validate:"omitempty,uuid"`
	Status      string    `query:"status" validate:"omitempty,billstatus"`
	CreatedFrom time.Time `query:"-"` // inclusive
	CreatedTo   time.Time `query:"-"` // exclusive
	DueBefore   time.Time `query:"-"`
}

func (f *QueryFilter) Validate(validate *validator.Validate) error {
	f.CustomerID = core.CleanString(f.CustomerID, true /* lower */)
	f.Status = core.CleanString(f.Status, true /* lower */)
	return validate.Struct(f)
}

// ReadingDetails gathers what an admin needs to review before generating a bill.
type ReadingDetails struct {
	Customer customer.Customer `json:"customer"`
	Readings []reading.Reading `json:"readings"`
	Tariff   *tariff.Tariff    `json:"tariff"`
}
