package complaint

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/smartbill/core"
)

// complaint statuses
const (
	StatusPending  = "pending"
	StatusResolved = "resolved"
	StatusRejected = "rejected"
)

var AllStatuses = []string{StatusPending, StatusResolved, StatusRejected}

type Complaint struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Subject        string     `json:"subject"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	ResolutionDate *time.Time `json:"resolution_date"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
	UpdatedAt      time.Time  `json:"updated_at"` // UTC

	UserName string `json:"user_name,omitempty"`
}

type NewComplaint struct {
	Subject     string `json:"subject" validate:"required,notblank,max=255"`
	Description string `json:"description" validate:"required,notblank,max=5000"`
}

func (nc *NewComplaint) Validate(validate *validator.Validate) error {
	nc.Subject = core.CleanString(nc.Subject)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateComplaint is what staff may change on a Complaint.
type UpdateComplaint struct {
	Status         string     `json:"status" validate:"required,complaintstatus"`
	ResolutionDate *time.Time `json:"resolution_date"`
}

// Validate checks the update and returns orig with the update applied.
// The resolution date defaults to `now` when the complaint gets closed.
func (uc *UpdateComplaint) Validate(orig Complaint, validate *validator.Validate, now time.Time) (Complaint, error) {
	uc.Status = core.CleanString(uc.Status, true /* lower */)
	if err := validate.Struct(uc); err != nil {
		return Complaint{}, err
	}

	c := orig
	c.Status = uc.Status
	switch {
	case uc.ResolutionDate != nil:
		date := uc.ResolutionDate.UTC()
		c.ResolutionDate = &date
	case c.Status == StatusPending:
		c.ResolutionDate = nil
	case c.ResolutionDate == nil:
		date := now.UTC()
		c.ResolutionDate = &date
	}
	return c, nil
}

type QueryFilter struct {
	UserID string `query:"user_id" validate:"omitempty,uuid"`
	Status string `query:"status" validate:"omitempty,complaintstatus"`
}
