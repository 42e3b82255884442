package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CreateReport(_ context.Context, r report.Report, _ ...core.DBExecutor) (report.Report, error) {
	repo.db.report.Lock()
	defer repo.db.report.Unlock()

	r.ID = newID()
	repo.db.report.table[r.ID] = r
	return r, nil
}

func (repo *reportRepository) QueryReports(_ context.Context, senderID string, _ ...core.DBExecutor) ([]report.Report, error) {
	repo.db.report.RLock()
	reports := make([]report.Report, 0)
	for _, r := range repo.db.report.table {
		if senderID == "" || r.SenderID == senderID {
			reports = append(reports, r)
		}
	}
	repo.db.report.RUnlock()

	for i := range reports {
		reports[i].SenderName = repo.db.userName(reports[i].SenderID)
	}
	sort.SliceStable(reports, func(i, j int) bool { return reports[i].CreatedAt.After(reports[j].CreatedAt) })
	return reports, nil
}

func (repo *reportRepository) GetReport(_ context.Context, id string, _ ...core.DBExecutor) (report.Report, error) {
	repo.db.report.RLock()
	r, ok := repo.db.report.table[id]
	repo.db.report.RUnlock()

	if !ok {
		return report.Report{}, report.ErrNotFound
	}
	r.SenderName = repo.db.userName(r.SenderID)
	return r, nil
}

func (repo *reportRepository) UpdateReport(_ context.Context, r report.Report, _ ...core.DBExecutor) (report.Report, error) {
	repo.db.report.Lock()
	defer repo.db.report.Unlock()

	if _, ok := repo.db.report.table[r.ID]; !ok {
		return report.Report{}, report.ErrNotFound
	}
	repo.db.report.table[r.ID] = r
	return r, nil
}

func (repo *reportRepository) DeleteReport(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.report.Lock()
	defer repo.db.report.Unlock()

	if _, ok := repo.db.report.table[id]; !ok {
		return report.ErrNotFound
	}
	delete(repo.db.report.table, id)
	return nil
}
