package reading

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/smartbill/core"
)

// Reading is the consumption a meter reader recorded for a customer.
type Reading struct {
	ID          string          `json:"id"`
	ReaderID    string          `json:"reader_id"`
	CustomerID  string          `json:"customer_id"`
	Amount      decimal.Decimal `json:"amount"`
	ReadingType string          `json:"reading_type"`
	ReadingDate time.Time       `json:"reading_date"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at"` // UTC

	// set on detail views
	ReaderName   string `json:"reader_name,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

// NewReading contains information needed to record a new Reading.
type NewReading struct {
	CustomerID  string          `json:"customer_id" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount" validate:"gte=0"`
	ReadingType string          `json:"reading_type" validate:"required,notblank,max=50"`
	ReadingDate time.Time       `json:"reading_date" validate:"required"`
}

func (nr *NewReading) Validate(validate *validator.Validate) error {
	nr.CustomerID = core.CleanString(nr.CustomerID, true /* lower */)
	nr.ReadingType = core.CleanString(nr.ReadingType)
	nr.ReadingDate = nr.ReadingDate.UTC()
	return validate.Struct(nr)
}

// UpdateReading defines what information may be provided to modify an existing Reading.
// Nil fields are left unchanged.
type UpdateReading struct {
	Amount      *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
	ReadingType string           `json:"reading_type" validate:"max=50"`
	ReadingDate *time.Time       `json:"reading_date"`
}

// Validate checks the update and returns orig with the update applied.
func (ur *UpdateReading) Validate(orig Reading, validate *validator.Validate) (Reading, error) {
	if err := validate.Struct(ur); err != nil {
		return Reading{}, err
	}
	r := orig
	if ur.Amount != nil {
		r.Amount = *ur.Amount
	}
	if rtype := core.CleanString(ur.ReadingType); rtype != "" {
		r.ReadingType = rtype
	}
	if ur.ReadingDate != nil {
		r.ReadingDate = ur.ReadingDate.UTC()
	}
	return r, nil
}

type QueryFilter struct {
	ReaderID   string
	CustomerID string
	DateFrom   time.Time // inclusive
	DateTo     time.Time // exclusive
	ExcludedID string
}
