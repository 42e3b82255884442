package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/contact"
)

type contactRepository struct {
	db *contactTable
}

var _ contact.Repository = (*contactRepository)(nil) // interface compliance check

func NewContactRepository(db *DB) contact.Repository {
	return &contactRepository{db: db.contact}
}

func (repo *contactRepository) CreateMessage(_ context.Context, m contact.Message, _ ...core.DBExecutor) (contact.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m.ID = newID()
	repo.db.table[m.ID] = m
	return m, nil
}

func (repo *contactRepository) QueryMessages(_ context.Context, _ ...core.DBExecutor) ([]contact.Message, error) {
	repo.db.RLock()
	msgs := make([]contact.Message, 0, len(repo.db.table))
	for _, m := range repo.db.table {
		msgs = append(msgs, m)
	}
	repo.db.RUnlock()

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.After(msgs[j].CreatedAt) })
	return msgs, nil
}
