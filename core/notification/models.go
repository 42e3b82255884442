package notification

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/smartbill/core"
)

// notification types
const (
	TypeGeneral = "general"
	TypeBill    = "bill"
	TypePayment = "payment"
	TypeAlert   = "alert"
)

var AllTypes = []string{TypeGeneral, TypeBill, TypePayment, TypeAlert}

type Notification struct {
	ID       string    `json:"id"`
	Message  string    `json:"message"`
	Type     string    `json:"notification_type"`
	SentAt   time.Time `json:"sent_at"`
	IsRead   bool      `json:"is_read"`
	SentToID string    `json:"sent_to"`
}

// NewNotification contains information needed to send a new Notification.
type NewNotification struct {
	Message  string `json:"message" validate:"required,notblank,max=1000"`
	Type     string `json:"notification_type" validate:"omitempty,notiftype"`
	SentToID string `json:"sent_to" validate:"required,uuid"`
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.Message = core.CleanString(nn.Message)
	nn.Type = core.CleanString(nn.Type, true /* lower */)
	if nn.Type == "" {
		nn.Type = TypeGeneral
	}
	nn.SentToID = core.CleanString(nn.SentToID, true /* lower */)
	return validate.Struct(nn)
}

type UpdateNotification struct {
	Message string `json:"message" validate:"max=1000"`
	Type    string `json:"notification_type" validate:"omitempty,notiftype"`
	IsRead  *bool  `json:"is_read"`
}

// Validate checks the update and returns orig with the update applied.
func (un *UpdateNotification) Validate(orig Notification, validate *validator.Validate) (Notification, error) {
	un.Message = core.CleanString(un.Message)
	un.Type = core.CleanString(un.Type, true /* lower */)
	if err := validate.Struct(un); err != nil {
		return Notification{}, err
	}
	n := orig
	if un.Message != "" {
		n.Message = un.Message
	}
	if un.Type != "" {
		n.Type = un.Type
	}
	if un.IsRead != nil {
		n.IsRead = *un.IsRead
	}
	return n, nil
}

type QueryFilter struct {
	SentToID string
	IsRead   *bool
}
