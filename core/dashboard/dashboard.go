package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/smartbill/core"
)

// Stats is the admin dashboard summary.
type Stats struct {
	Customers          int             `json:"customers" db:"customers"`
	MeterReaders       int             `json:"meter_readers" db:"meter_readers"`
	Admins             int             `json:"admins" db:"admins"`
	BillsThisMonth     int             `json:"bills_this_month" db:"bills_this_month"`
	UnpaidBills        int             `json:"unpaid_bills" db:"unpaid_bills"`
	UnpaidAmount       decimal.Decimal `json:"unpaid_amount" db:"unpaid_amount"`
	OverdueBills       int             `json:"overdue_bills" db:"overdue_bills"`
	CollectedThisMonth decimal.Decimal `json:"collected_this_month" db:"collected_this_month"`
	PendingComplaints  int             `json:"pending_complaints" db:"pending_complaints"`
}

type (
	Repository interface {
		// GetStats computes the statistics, `this month` being [monthStart, monthEnd).
		GetStats(ctx context.Context, monthStart, monthEnd time.Time, exec ...core.DBExecutor) (Stats, error)
	}

	Service interface {
		Stats(ctx context.Context, now time.Time) (Stats, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Stats(ctx context.Context, now time.Time) (Stats, error) {
	start, end := core.MonthBounds(now)
	return svc.repo.GetStats(ctx, start, end)
}
