package report

import (
	"context"
	"time"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/user"
)

var ErrNotFound = core.NewNotFoundError("report not found")

type (
	Repository interface {
		CreateReport(ctx context.Context, r Report, exec ...core.DBExecutor) (Report, error)
		// QueryReports lists reports, newest first, with their sender's name.
		// All reports are listed when senderID is empty.
		QueryReports(ctx context.Context, senderID string, exec ...core.DBExecutor) ([]Report, error)
		GetReport(ctx context.Context, id string, exec ...core.DBExecutor) (Report, error)
		UpdateReport(ctx context.Context, r Report, exec ...core.DBExecutor) (Report, error)
		DeleteReport(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, nr NewReport, sender user.User) (Report, error)
		Query(ctx context.Context) ([]Report, error)
		QueryBySender(ctx context.Context, senderID string) ([]Report, error)
		GetByID(ctx context.Context, id string) (Report, error)
		Update(ctx context.Context, r Report) (Report, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nr NewReport, sender user.User) (Report, error) {
	now := time.Now().UTC()
	r, err := svc.repo.CreateReport(ctx, Report{
		SenderID:   sender.ID,
		SenderRole: sender.Role,
		ReportType: nr.ReportType,
		Content:    nr.Content,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Report{}, err
	}
	r.SenderName = sender.Name
	return r, nil
}

func (svc *service) Query(ctx context.Context) ([]Report, error) {
	return svc.repo.QueryReports(ctx, "")
}

func (svc *service) QueryBySender(ctx context.Context, senderID string) ([]Report, error) {
	return svc.repo.QueryReports(ctx, senderID)
}

func (svc *service) GetByID(ctx context.Context, id string) (Report, error) {
	return svc.repo.GetReport(ctx, id)
}

func (svc *service) Update(ctx context.Context, r Report) (Report, error) {
	r.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateReport(ctx, r)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteReport(ctx, id)
}
