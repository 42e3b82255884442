package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/storage/database"
)

type billRow struct {
	ID          string          `boil:"id"`
	CustomerID  string          `boil:"customer_id"`
	GeneratedBy null.String     `boil:"generated_by"`
	ReadingID   string          `boil:"reading_id"`
	TariffID    string          `boil:"tariff_id"`
	Amount      decimal.Decimal `boil:"bill_amount"`
	Status      string          `boil:"status"`
	DueDate     time.Time       `boil:"due_date"`
	CreatedAt   time.Time       `boil:"created_at"`
	UpdatedAt   time.Time       `boil:"updated_at"`

	// only selected by queries joining the customer
	CustomerName null.String `boil:"customer_name"`
}

type billRepository struct {
	repository
}

var _ billing.Repository = (*billRepository)(nil) // interface compliance check

func NewBillRepository(exec core.DBExecutor) billing.Repository {
	return &billRepository{repository{exec: exec}}
}

func (repo billRepository) unboil(row billRow) billing.Bill {
	return billing.Bill{
		ID:           row.ID,
		CustomerID:   row.CustomerID,
		GeneratedBy:  row.GeneratedBy.String,
		ReadingID:    row.ReadingID,
		TariffID:     row.TariffID,
		Amount:       row.Amount,
		Status:       row.Status,
		DueDate:      row.DueDate.UTC(),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		CustomerName: row.CustomerName.String,
	}
}

func (repo billRepository) filterMods(filter billing.QueryFilter) []qm.QueryMod {
	var mods []qm.QueryMod
	if filter.CustomerID != "" {
		mods = append(mods, qm.Where("b.customer_id = ?", filter.CustomerID))
	}
	if filter.Status != "" {
		mods = append(mods, qm.Where("b.status = ?", filter.Status))
	}
	if !filter.CreatedFrom.IsZero() {
		mods = append(mods, qm.Where("b.created_at >= ?", filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		mods = append(mods, qm.Where("b.created_at < ?", filter.CreatedTo.UTC()))
	}
	if !filter.DueBefore.IsZero() {
		mods = append(mods, qm.Where("b.due_date < ?", filter.DueBefore.UTC()))
	}
	return mods
}

// selectMods selects bills along with their customer's name.
func (repo billRepository) selectMods(mods ...qm.QueryMod) []qm.QueryMod {
	return append([]qm.QueryMod{
		qm.Select("b.*", "u.name AS customer_name"),
		qm.From(`"bills" AS b`),
		qm.LeftOuterJoin(`"customers" AS c ON c.id = b.customer_id`),
		qm.LeftOuterJoin(`"users" AS u ON u.id = c.user_id`),
	}, mods...)
}

func (repo billRepository) CreateBill(ctx context.Context, b billing.Bill, exec ...core.DBExecutor) (billing.Bill, error) {
	var row billRow
	err := queries.Raw(
		`INSERT INTO "bills" ("id", "customer_id", "generated_by", "reading_id", "tariff_id", "bill_amount", "status", "due_date", "created_at", "updated_at")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING *`,
		uuid.New().String(), b.CustomerID, null.NewString(b.GeneratedBy, b.GeneratedBy != ""), b.ReadingID, b.TariffID,
		b.Amount, b.Status, b.DueDate.UTC(), b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		if database.IsUniqueViolation(err, "bills_customer_month_key") {
			return billing.Bill{}, billing.ErrAlreadyBilled
		}
		return billing.Bill{}, errors.Wrap(err, "inserting bill")
	}
	return repo.unboil(row), nil
}

func (repo billRepository) QueryBills(ctx context.Context, filter billing.QueryFilter, exec ...core.DBExecutor) ([]billing.Bill, error) {
	mods := repo.selectMods(repo.filterMods(filter)...)
	mods = append(mods, qm.OrderBy("b.created_at DESC"))

	var rows []billRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying bills")
	}
	bills := make([]billing.Bill, 0, len(rows))
	for _, row := range rows {
		bills = append(bills, repo.unboil(row))
	}
	return bills, nil
}

func (repo billRepository) BillExists(ctx context.Context, filter billing.QueryFilter, exec ...core.DBExecutor) (bool, error) {
	mods := append([]qm.QueryMod{qm.From(`"bills" AS b`)}, repo.filterMods(filter)...)
	exists, err := repo.exists(ctx, exec, mods...)
	return exists, errors.Wrap(err, "checking bill existence")
}

func (repo billRepository) GetBill(ctx context.Context, id string, exec ...core.DBExecutor) (billing.Bill, error) {
	if !isUUID(id) {
		return billing.Bill{}, billing.ErrNotFound
	}
	var row billRow
	err := newQuery(repo.selectMods(qm.Where("b.id = ?", id), qm.Limit(1))...).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return billing.Bill{}, trapNoRowsErr(err, billing.ErrNotFound, "finding bill")
	}
	return repo.unboil(row), nil
}

func (repo billRepository) UpdateBill(ctx context.Context, b billing.Bill, exec ...core.DBExecutor) (billing.Bill, error) {
	var row billRow
	err := queries.Raw(
		`UPDATE "bills" SET "bill_amount" = $2, "status" = $3, "due_date" = $4, "updated_at" = $5 WHERE "id" = $1 RETURNING *`,
		b.ID, b.Amount, b.Status, b.DueDate.UTC(), b.UpdatedAt.UTC(),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return billing.Bill{}, trapNoRowsErr(err, billing.ErrNotFound, "updating bill")
	}
	return repo.unboil(row), nil
}

func (repo billRepository) MarkOverdue(ctx context.Context, now time.Time, exec ...core.DBExecutor) (int, error) {
	res, err := queries.Raw(
		`UPDATE "bills" SET "status" = $1, "updated_at" = $3 WHERE "status" = $2 AND "due_date" < $3`,
		billing.StatusOverdue, billing.StatusUnpaid, now.UTC(),
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return 0, errors.Wrap(err, "marking overdue bills")
	}
	cnt, err := res.RowsAffected()
	return int(cnt), errors.Wrap(err, "marking overdue bills")
}
