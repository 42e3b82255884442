package tariff

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/smartbill/core"
)

var errUnitBounds = errors.New("unit_max must be greater than or equal to unit_min")

// Tariff is a named rate. Customers are billed with the tariff named after their customer type.
// UnitMin & UnitMax describe the consumption band the rate is meant for; the price applies
// as a flat per-unit multiplier.
type Tariff struct {
	ID            string          `json:"id"`
	Name          string          `json:"tariff_name"`
	UnitMin       int             `json:"unit_min"`
	UnitMax       int             `json:"unit_max"`
	Price         decimal.Decimal `json:"price"`
	EffectiveDate time.Time       `json:"effective_date"`
	CreatedAt     time.Time       `json:"created_at"` // UTC
	UpdatedAt     time.Time       `json:"updated_at"` // UTC
}

// NewTariff contains information needed to create a new Tariff.
type NewTariff struct {
	Name          string          `json:"tariff_name" validate:"required,notblank,max=100"`
	UnitMin       int             `json:"unit_min" validate:"min=0"`
	UnitMax       int             `json:"unit_max" validate:"min=0"`
	Price         decimal.Decimal `json:"price" validate:"gte=0"`
	EffectiveDate time.Time       `json:"effective_date" validate:"required"`
}

func (nt *NewTariff) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.EffectiveDate = nt.EffectiveDate.UTC()

	if err := validate.Struct(nt); err != nil {
		return err
	}
	return checkUnitBounds(nt.UnitMin, nt.UnitMax)
}

// UpdateTariff defines what information may be provided to modify an existing Tariff.
// Nil fields are left unchanged.
type UpdateTariff struct {
	Name          string           `json:"tariff_name" validate:"max=100"`
	UnitMin       *int             `json:"unit_min" validate:"omitempty,min=0"`
	UnitMax       *int             `json:"unit_max" validate:"omitempty,min=0"`
	Price         *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	EffectiveDate *time.Time       `json:"effective_date"`
}

// Validate checks the update and returns orig with the update applied.
func (upd *UpdateTariff) Validate(orig Tariff, validate *validator.Validate) (Tariff, error) {
	if err := validate.Struct(upd); err != nil {
		return Tariff{}, err
	}

	t := orig
	if name := core.CleanString(upd.Name); name != "" {
		t.Name = name
	}
	if upd.UnitMin != nil {
		t.UnitMin = *upd.UnitMin
	}
	if upd.UnitMax != nil {
		t.UnitMax = *upd.UnitMax
	}
	if upd.Price != nil {
		t.Price = *upd.Price
	}
	if upd.EffectiveDate != nil {
		t.EffectiveDate = upd.EffectiveDate.UTC()
	}
	if err := checkUnitBounds(t.UnitMin, t.UnitMax); err != nil {
		return Tariff{}, err
	}
	return t, nil
}

func checkUnitBounds(min, max int) error {
	if max < min {
		return core.NewValidationError(errUnitBounds, core.FieldError{Field: "unit_max", Error: errUnitBounds.Error()})
	}
	return nil
}
