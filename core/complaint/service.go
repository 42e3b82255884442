package complaint

import (
	"context"
	"time"

	"github.com/trezcool/smartbill/core"
)

var ErrNotFound = core.NewNotFoundError("complaint not found")

type (
	Repository interface {
		CreateComplaint(ctx context.Context, c Complaint, exec ...core.DBExecutor) (Complaint, error)
		// QueryComplaints lists complaints matching all the set filter fields, newest first.
		QueryComplaints(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Complaint, error)
		GetComplaint(ctx context.Context, id string, exec ...core.DBExecutor) (Complaint, error)
		UpdateComplaint(ctx context.Context, c Complaint, exec ...core.DBExecutor) (Complaint, error)
		DeleteComplaint(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, nc NewComplaint, userID string) (Complaint, error)
		Query(ctx context.Context, filter QueryFilter) ([]Complaint, error)
		QueryByUser(ctx context.Context, userID string) ([]Complaint, error)
		GetByID(ctx context.Context, id string) (Complaint, error)
		Update(ctx context.Context, c Complaint) (Complaint, error)
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

func (svc *service) Create(ctx context.Context, nc NewComplaint, userID string) (Complaint, error) {
	now := time.Now().UTC()
	return svc.repo.CreateComplaint(ctx, Complaint{
		UserID:      userID,
		Subject:     nc.Subject,
		Description: nc.Description,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Complaint, error) {
	return svc.repo.QueryComplaints(ctx, filter)
}

func (svc *service) QueryByUser(ctx context.Context, userID string) ([]Complaint, error) {
	return svc.repo.QueryComplaints(ctx, QueryFilter{UserID: userID})
}

func (svc *service) GetByID(ctx context.Context, id string) (Complaint, error) {
	return svc.repo.GetComplaint(ctx, id)
}

// Update saves a Complaint validated with UpdateComplaint.Validate.
func (svc *service) Update(ctx context.Context, c Complaint) (Complaint, error) {
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateComplaint(ctx, c)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteComplaint(ctx, id)
}
