package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/complaint"
)

type complaintRepository struct {
	db *DB
}

var _ complaint.Repository = (*complaintRepository)(nil) // interface compliance check

func NewComplaintRepository(db *DB) complaint.Repository {
	return &complaintRepository{db: db}
}

func (repo *complaintRepository) CreateComplaint(_ context.Context, c complaint.Complaint, _ ...core.DBExecutor) (complaint.Complaint, error) {
	repo.db.complaint.Lock()
	c.ID = newID()
	repo.db.complaint.table[c.ID] = c
	repo.db.complaint.Unlock()

	c.UserName = repo.db.userName(c.UserID)
	return c, nil
}

func (repo *complaintRepository) QueryComplaints(_ context.Context, filter complaint.QueryFilter, _ ...core.DBExecutor) ([]complaint.Complaint, error) {
	repo.db.complaint.RLock()
	complaints := make([]complaint.Complaint, 0)
	for _, c := range repo.db.complaint.table {
		if (filter.UserID == "" || c.UserID == filter.UserID) && (filter.Status == "" || c.Status == filter.Status) {
			complaints = append(complaints, c)
		}
	}
	repo.db.complaint.RUnlock()

	for i := range complaints {
		complaints[i].UserName = repo.db.userName(complaints[i].UserID)
	}
	sort.SliceStable(complaints, func(i, j int) bool { return complaints[i].CreatedAt.After(complaints[j].CreatedAt) })
	return complaints, nil
}

func (repo *complaintRepository) GetComplaint(_ context.Context, id string, _ ...core.DBExecutor) (complaint.Complaint, error) {
	repo.db.complaint.RLock()
	c, ok := repo.db.complaint.table[id]
	repo.db.complaint.RUnlock()

	if !ok {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	c.UserName = repo.db.userName(c.UserID)
	return c, nil
}

func (repo *complaintRepository) UpdateComplaint(_ context.Context, c complaint.Complaint, _ ...core.DBExecutor) (complaint.Complaint, error) {
	repo.db.complaint.Lock()
	defer repo.db.complaint.Unlock()

	if _, ok := repo.db.complaint.table[c.ID]; !ok {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	repo.db.complaint.table[c.ID] = c
	return c, nil
}

func (repo *complaintRepository) DeleteComplaint(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.complaint.Lock()
	defer repo.db.complaint.Unlock()

	if _, ok := repo.db.complaint.table[id]; !ok {
		return complaint.ErrNotFound
	}
	delete(repo.db.complaint.table, id)
	return nil
}
