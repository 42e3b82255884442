package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/notification"
)

type notificationRow struct {
	ID       string    `boil:"id"`
	Message  string    `boil:"message"`
	Type     string    `boil:"notification_type"`
	SentAt   time.Time `boil:"sent_at"`
	IsRead   bool      `boil:"is_read"`
	SentToID string    `boil:"sent_to_id"`
}

type notificationRepository struct {
	repository
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) notification.Repository {
	return &notificationRepository{repository{exec: exec}}
}

func (repo notificationRepository) unboil(row notificationRow) notification.Notification {
	return notification.Notification{
		ID:       row.ID,
		Message:  row.Message,
		Type:     row.Type,
		SentAt:   row.SentAt.UTC(),
		IsRead:   row.IsRead,
		SentToID: row.SentToID,
	}
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	var row notificationRow
	err := queries.Raw(
		`INSERT INTO "notifications" ("id", "message", "notification_type", "sent_at", "is_read", "sent_to_id")
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING *`,
		uuid.New().String(), n.Message, n.Type, n.SentAt.UTC(), n.IsRead, n.SentToID,
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return repo.unboil(row), nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter, exec ...core.DBExecutor) ([]notification.Notification, error) {
	mods := []qm.QueryMod{qm.From(`"notifications"`)}
	if filter.SentToID != "" {
		mods = append(mods, qm.Where("sent_to_id = ?", filter.SentToID))
	}
	if filter.IsRead != nil {
		mods = append(mods, qm.Where("is_read = ?", *filter.IsRead))
	}
	mods = append(mods, qm.OrderBy("sent_at DESC"))

	var rows []notificationRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		notifs = append(notifs, repo.unboil(row))
	}
	return notifs, nil
}

func (repo notificationRepository) GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (notification.Notification, error) {
	if !isUUID(id) {
		return notification.Notification{}, notification.ErrNotFound
	}
	var row notificationRow
	err := newQuery(qm.From(`"notifications"`), qm.Where("id = ?", id), qm.Limit(1)).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "finding notification")
	}
	return repo.unboil(row), nil
}

func (repo notificationRepository) UpdateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	var row notificationRow
	err := queries.Raw(
		`UPDATE "notifications" SET "message" = $2, "notification_type" = $3, "is_read" = $4 WHERE "id" = $1 RETURNING *`,
		n.ID, n.Message, n.Type, n.IsRead,
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "updating notification")
	}
	return repo.unboil(row), nil
}

func (repo notificationRepository) DeleteNotification(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return notification.ErrNotFound
	}
	res, err := queries.Raw(`DELETE FROM "notifications" WHERE "id" = $1`, id).ExecContext(ctx, repo.getExec(exec))
	return checkAffected(res, err, notification.ErrNotFound, "deleting notification")
}
