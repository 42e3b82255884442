package customer

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/user"
)

// bill statuses shown in customer listings
const (
	BillStatusSet    = "Set"
	BillStatusNotSet = "Not Set"
)

// Customer is the profile of a User with the customer role.
// Contact details live on the User account.
type Customer struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number"`
	Address      string    `json:"address"`
	CustomerType string    `json:"customer_type"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC

	// BillStatus tells whether a bill was generated for the current month. Only set in listings.
	BillStatus string `json:"bill_status,omitempty"`
}

// NewCustomer contains information needed to register a new Customer.
type NewCustomer struct {
	Name            string `json:"name" validate:"required,notblank,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	PhoneNumber     string `json:"phone_number" validate:"omitempty,phone"`
	Address         string `json:"address" validate:"required,notblank,max=255"`
	CustomerType    string `json:"customer_type" validate:"required,notblank,max=100"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nc *NewCustomer) Validate(ctx context.Context, validate *validator.Validate, usrSvc user.Service) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Email = core.CleanString(nc.Email, true /* lower */)
	nc.PhoneNumber = core.NormalizePhone(nc.PhoneNumber)
	nc.Address = core.CleanString(nc.Address)
	nc.CustomerType = core.CleanString(nc.CustomerType)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return usrSvc.CheckUniqueness(ctx, nc.Email, nc.PhoneNumber)
}

// UpdateCustomer defines what information may be provided to modify an existing Customer.
// Empty fields are left unchanged.
type UpdateCustomer struct {
	Name         string `json:"name" validate:"max=100"`
	Email        string `json:"email" validate:"omitempty,email,max=255"`
	PhoneNumber  string `json:"phone_number" validate:"omitempty,phone"`
	Address      string `json:"address" validate:"max=255"`
	CustomerType string `json:"customer_type" validate:"max=100"`
}

// Validate cleans the update against the original Customer and checks it.
// The email & phone number must not be used by any other account.
func (uc *UpdateCustomer) Validate(ctx context.Context, orig Customer, validate *validator.Validate, usrSvc user.Service) error {
	uc.Name = cleanOr(uc.Name, orig.Name)
	uc.Email = cleanOr(core.CleanString(uc.Email, true /* lower */), orig.Email)
	uc.PhoneNumber = cleanOr(core.NormalizePhone(uc.PhoneNumber), orig.PhoneNumber)
	uc.Address = cleanOr(uc.Address, orig.Address)
	uc.CustomerType = cleanOr(uc.CustomerType, orig.CustomerType)

	if err := validate.Struct(uc); err != nil {
		return err
	}
	return usrSvc.CheckUniqueness(ctx, uc.Email, uc.PhoneNumber, user.User{ID: orig.UserID})
}

func cleanOr(val, orig string) string {
	if val = core.CleanString(val); val != "" {
		return val
	}
	return orig
}

type QueryFilter struct {
	Search       string `query:"search"`
	CustomerType string `query:"customer_type"`

	// BillPeriod is the month used to compute Customer.BillStatus; defaults to the current one.
	BillPeriod time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.CustomerType = core.CleanString(qf.CustomerType)
	if qf.BillPeriod.IsZero() {
		qf.BillPeriod = time.Now().UTC()
	}
}

// GetFilter selects a single Customer; the first non-empty field wins.
type GetFilter struct {
	ID     string
	UserID string
}

// InitValidators registers the customer validators.
func InitValidators(validate *validator.Validate) {
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		if nc, ok := sl.Current().Interface().(NewCustomer); ok {
			user.ReportPasswordErrors(sl, nc.Password, nc.Name, nc.Email, nc.PhoneNumber)
		}
	}, NewCustomer{})
}
