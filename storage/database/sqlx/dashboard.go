package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/complaint"
	"github.com/trezcool/smartbill/core/dashboard"
	"github.com/trezcool/smartbill/core/payment"
	"github.com/trezcool/smartbill/core/user"
)

const statsQuery = `
SELECT
	(SELECT COUNT(*) FROM "users" WHERE "role" = :customer) AS customers,
	(SELECT COUNT(*) FROM "users" WHERE "role" = :meterreader) AS meter_readers,
	(SELECT COUNT(*) FROM "users" WHERE "role" IN (:admin, :superadmin)) AS admins,
	(SELECT COUNT(*) FROM "bills" WHERE "created_at" >= :start AND "created_at" < :end) AS bills_this_month,
	(SELECT COUNT(*) FROM "bills" WHERE "status" = :unpaid) AS unpaid_bills,
	(SELECT COALESCE(SUM("bill_amount"), 0) FROM "bills" WHERE "status" IN (:unpaid, :overdue)) AS unpaid_amount,
	(SELECT COUNT(*) FROM "bills" WHERE "status" = :overdue) AS overdue_bills,
	(SELECT COALESCE(SUM("amount"), 0) FROM "payments"
		WHERE "status" = :success AND "updated_at" >= :start AND "updated_at" < :end) AS collected_this_month,
	(SELECT COUNT(*) FROM "complaints" WHERE "status" = :pending) AS pending_complaints`

type dashboardRepository struct {
	db *sqlx.DB
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(db *sqlx.DB) dashboard.Repository {
	return &dashboardRepository{db: db}
}

// queryer returns the service's executor when it can run sqlx queries, the repository's DB otherwise.
func (repo dashboardRepository) queryer(svcExec []core.DBExecutor) sqlx.QueryerContext {
	if len(svcExec) > 0 {
		if q, ok := svcExec[0].(sqlx.QueryerContext); ok {
			return q
		}
	}
	return repo.db
}

func (repo dashboardRepository) GetStats(ctx context.Context, start, end time.Time, exec ...core.DBExecutor) (dashboard.Stats, error) {
	query, args, err := sqlx.Named(statsQuery, map[string]interface{}{
		"customer":    user.RoleCustomer,
		"meterreader": user.RoleMeterReader,
		"admin":       user.RoleAdmin,
		"superadmin":  user.RoleSuperAdmin,
		"start":       start.UTC(),
		"end":         end.UTC(),
		"unpaid":      billing.StatusUnpaid,
		"overdue":     billing.StatusOverdue,
		"success":     payment.StatusSuccess,
		"pending":     complaint.StatusPending,
	})
	if err != nil {
		return dashboard.Stats{}, errors.Wrap(err, "binding stats query")
	}

	var stats dashboard.Stats
	if err = sqlx.GetContext(ctx, repo.queryer(exec), &stats, repo.db.Rebind(query), args...); err != nil {
		return dashboard.Stats{}, errors.Wrap(err, "querying stats")
	}
	return stats, nil
}
