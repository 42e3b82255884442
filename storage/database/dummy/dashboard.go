package dummydb

import (
	"context"
	"time"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/complaint"
	"github.com/trezcool/smartbill/core/dashboard"
	"github.com/trezcool/smartbill/core/payment"
	"github.com/trezcool/smartbill/core/user"
)

type dashboardRepository struct {
	db *DB
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *DB) dashboard.Repository {
	return &dashboardRepository{db: db}
}

func inMonth(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

func (repo *dashboardRepository) GetStats(_ context.Context, start, end time.Time, _ ...core.DBExecutor) (dashboard.Stats, error) {
	var stats dashboard.Stats

	repo.db.user.RLock()
	for _, u := range repo.db.user.table {
		switch u.Role {
		case user.RoleCustomer:
			stats.Customers++
		case user.RoleMeterReader:
			stats.MeterReaders++
		case user.RoleAdmin, user.RoleSuperAdmin:
			stats.Admins++
		}
	}
	repo.db.user.RUnlock()

	repo.db.bill.RLock()
	for _, b := range repo.db.bill.table {
		if inMonth(b.CreatedAt, start, end) {
			stats.BillsThisMonth++
		}
		switch b.Status {
		case billing.StatusUnpaid:
			stats.UnpaidBills++
			stats.UnpaidAmount = stats.UnpaidAmount.Add(b.Amount)
		case billing.StatusOverdue:
			stats.OverdueBills++
			stats.UnpaidAmount = stats.UnpaidAmount.Add(b.Amount)
		}
	}
	repo.db.bill.RUnlock()

	repo.db.payment.RLock()
	for _, p := range repo.db.payment.table {
		if p.Status == payment.StatusSuccess && inMonth(p.UpdatedAt, start, end) {
			stats.CollectedThisMonth = stats.CollectedThisMonth.Add(p.Amount)
		}
	}
	repo.db.payment.RUnlock()

	repo.db.complaint.RLock()
	for _, c := range repo.db.complaint.table {
		if c.Status == complaint.StatusPending {
			stats.PendingComplaints++
		}
	}
	repo.db.complaint.RUnlock()

	return stats, nil
}
