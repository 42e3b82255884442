package payment

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/user"
)

// payment statuses
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var AllStatuses = []string{StatusPending, StatusSuccess, StatusFailed}

// MinAmount is the smallest amount the gateway accepts.
var MinAmount = decimal.NewFromInt(1)

type Payment struct {
	ID          string          `json:"id"`
	BillID      string          `json:"bill_id"`
	PaidBy      string          `json:"paid_by"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	TxRef       string          `json:"tx_ref"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	CheckoutURL string          `json:"checkout_url,omitempty"`
	GatewayRef  string          `json:"gateway_ref,omitempty"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at"` // UTC
}

// NewPayment contains information needed to initiate the payment of a bill.
// Payer details default to the authenticated user's, the amount to the bill's.
type NewPayment struct {
	BillID    string           `json:"bill_id" validate:"required,uuid"`
	Amount    *decimal.Decimal `json:"amount" validate:"omitempty,gte=1"`
	FirstName string           `json:"first_name" validate:"max=100"`
	LastName  string           `json:"last_name" validate:"max=100"`
	Email     string           `json:"email" validate:"omitempty,email,max=255"`
	Phone     string           `json:"phone" validate:"omitempty,phone"`
}

func (np *NewPayment) Validate(validate *validator.Validate, payer user.User) error {
	np.BillID = core.CleanString(np.BillID, true /* lower */)
	np.FirstName = core.CleanString(np.FirstName)
	np.LastName = core.CleanString(np.LastName)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.Phone = core.NormalizePhone(np.Phone)

	if np.FirstName == "" && np.LastName == "" {
		np.FirstName, np.LastName = splitName(payer.Name)
	}
	if np.Email == "" {
		np.Email = payer.Email
	}
	if np.Phone == "" {
		np.Phone = payer.PhoneNumber
	}
	return validate.Struct(np)
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// VerifyPayment is the body of a verification request.
type VerifyPayment struct {
	TxRef string `json:"tx_ref" query:"tx_ref" validate:"required,notblank,max=100"`
}

func (vp *VerifyPayment) Validate(validate *validator.Validate) error {
	vp.TxRef = core.CleanString(vp.TxRef)
	return validate.Struct(vp)
}

type QueryFilter struct {
	BillID string `query:"bill_id"`
	PaidBy string `query:"-"`
	Status string `query:"status"`
}

// CheckoutRequest is what the gateway needs to open a hosted checkout.
type CheckoutRequest struct {
	TxRef       string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	CallbackURL string
	ReturnURL   string
	Title       string
	Description string
}

type CheckoutResponse struct {
	CheckoutURL string
}

// Verification is the gateway's view of a transaction.
type Verification struct {
	TxRef     string
	Status    string // one of the payment statuses
	Reference string
	Amount    decimal.Decimal
	Currency  string
}
