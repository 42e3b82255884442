package report

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/smartbill/core"
)

// Report is a field report sent by staff.
type Report struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderRole string    `json:"sender_role"`
	ReportType string    `json:"report_type"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC

	SenderName string `json:"sender_name,omitempty"`
}

type NewReport struct {
	ReportType string `json:"report_type" validate:"required,notblank,max=100"`
	Content    string `json:"content" validate:"required,notblank,max=10000"`
}

func (nr *NewReport) Validate(validate *validator.Validate) error {
	nr.ReportType = core.CleanString(nr.ReportType)
	nr.Content = core.CleanString(nr.Content)
	return validate.Struct(nr)
}

type UpdateReport struct {
	ReportType string `json:"report_type" validate:"max=100"`
	Content    string `json:"content" validate:"max=10000"`
}

// Validate checks the update and returns orig with the update applied.
func (ur *UpdateReport) Validate(orig Report, validate *validator.Validate) (Report, error) {
	ur.ReportType = core.CleanString(ur.ReportType)
	ur.Content = core.CleanString(ur.Content)
	if err := validate.Struct(ur); err != nil {
		return Report{}, err
	}
	r := orig
	if ur.ReportType != "" {
		r.ReportType = ur.ReportType
	}
	if ur.Content != "" {
		r.Content = ur.Content
	}
	return r, nil
}
