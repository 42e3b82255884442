package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification, _ ...core.DBExecutor) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n.ID = newID()
	repo.db.table[n.ID] = n
	return n, nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, filter notification.QueryFilter, _ ...core.DBExecutor) ([]notification.Notification, error) {
	repo.db.RLock()
	notifs := make([]notification.Notification, 0)
	for _, n := range repo.db.table {
		if (filter.SentToID == "" || n.SentToID == filter.SentToID) && (filter.IsRead == nil || n.IsRead == *filter.IsRead) {
			notifs = append(notifs, n)
		}
	}
	repo.db.RUnlock()

	sort.SliceStable(notifs, func(i, j int) bool { return notifs[i].SentAt.After(notifs[j].SentAt) })
	return notifs, nil
}

func (repo *notificationRepository) GetNotification(_ context.Context, id string, _ ...core.DBExecutor) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.table[id]; ok {
		return n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) UpdateNotification(_ context.Context, n notification.Notification, _ ...core.DBExecutor) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[n.ID]; !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	repo.db.table[n.ID] = n
	return n, nil
}

func (repo *notificationRepository) DeleteNotification(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return notification.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
