package notification

import (
	"context"
	"time"

	"github.com/trezcool/smartbill/core"
)

var ErrNotFound = core.NewNotFoundError("notification not found")

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		// QueryNotifications lists notifications matching the filter, latest first.
		QueryNotifications(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Notification, error)
		GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (Notification, error)
		UpdateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		DeleteNotification(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Send(ctx context.Context, nn NewNotification, exec ...core.DBExecutor) (Notification, error)
		Query(ctx context.Context) ([]Notification, error)
		QueryByRecipient(ctx context.Context, userID string) ([]Notification, error)
		GetByID(ctx context.Context, id string) (Notification, error)
		Update(ctx context.Context, n Notification) (Notification, error)
		MarkRead(ctx context.Context, n Notification) (Notification, error)
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

// Send stores a notification for its recipient.
// The optional executor lets other services notify within their own transaction.
func (svc *service) Send(ctx context.Context, nn NewNotification, exec ...core.DBExecutor) (Notification, error) {
	if nn.Type == "" {
		nn.Type = TypeGeneral
	}
	return svc.repo.CreateNotification(ctx, Notification{
		Message:  nn.Message,
		Type:     nn.Type,
		SentAt:   time.Now().UTC(),
		SentToID: nn.SentToID,
	}, exec...)
}

func (svc *service) Query(ctx context.Context) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, QueryFilter{})
}

func (svc *service) QueryByRecipient(ctx context.Context, userID string) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, QueryFilter{SentToID: userID})
}

func (svc *service) GetByID(ctx context.Context, id string) (Notification, error) {
	return svc.repo.GetNotification(ctx, id)
}

func (svc *service) Update(ctx context.Context, n Notification) (Notification, error) {
	return svc.repo.UpdateNotification(ctx, n)
}

func (svc *service) MarkRead(ctx context.Context, n Notification) (Notification, error) {
	if n.IsRead {
		return n, nil
	}
	n.IsRead = true
	return svc.repo.UpdateNotification(ctx, n)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteNotification(ctx, id)
}
