package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/customer"
)

type customerRow struct {
	ID           string      `boil:"id"`
	UserID       string      `boil:"user_id"`
	CustomerType string      `boil:"customer_type"`
	CreatedAt    time.Time   `boil:"created_at"`
	UpdatedAt    time.Time   `boil:"updated_at"`
	Name         string      `boil:"name"`
	Email        string      `boil:"email"`
	PhoneNumber  null.String `boil:"phone_number"`
	Address      string      `boil:"address"`
}

type customerRepository struct {
	repository
}

var _ customer.Repository = (*customerRepository)(nil) // interface compliance check

func NewCustomerRepository(exec core.DBExecutor) customer.Repository {
	return &customerRepository{repository{exec: exec}}
}

func (repo customerRepository) unboil(row customerRow) customer.Customer {
	return customer.Customer{
		ID:           row.ID,
		UserID:       row.UserID,
		Name:         row.Name,
		Email:        row.Email,
		PhoneNumber:  row.PhoneNumber.String,
		Address:      row.Address,
		CustomerType: row.CustomerType,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

// selectMods selects customers along with their account details.
func (repo customerRepository) selectMods(mods ...qm.QueryMod) []qm.QueryMod {
	return append([]qm.QueryMod{
		qm.Select(
			"c.id", "c.user_id", "c.customer_type", "c.created_at", "c.updated_at",
			"u.name", "u.email", "u.phone_number", "u.address",
		),
		qm.From(`"customers" AS c`),
		qm.InnerJoin(`"users" AS u ON u.id = c.user_id`),
	}, mods...)
}

func (repo customerRepository) CreateCustomer(ctx context.Context, c customer.Customer, exec ...core.DBExecutor) (customer.Customer, error) {
	c.ID = uuid.New().String()
	_, err := queries.Raw(
		`INSERT INTO "customers" ("id", "user_id", "customer_type", "created_at", "updated_at") VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, c.CustomerType, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return customer.Customer{}, errors.Wrap(err, "inserting customer")
	}
	return repo.GetCustomer(ctx, customer.GetFilter{ID: c.ID}, exec...)
}

func (repo customerRepository) QueryCustomers(ctx context.Context, filter *customer.QueryFilter, exec ...core.DBExecutor) ([]customer.Customer, error) {
	var mods []qm.QueryMod
	if filter != nil {
		if filter.Search != "" {
			mods = append(mods, searchMod(filter.Search, "u.name", "u.email", "u.phone_number"))
		}
		if filter.CustomerType != "" {
			mods = append(mods, qm.Where("LOWER(c.customer_type) = LOWER(?)", filter.CustomerType))
		}
	}
	mods = append(mods, qm.OrderBy("c.created_at DESC"))

	var rows []customerRow
	if err := newQuery(repo.selectMods(mods...)...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying customers")
	}

	var billed map[string]bool
	if filter != nil && !filter.BillPeriod.IsZero() {
		var err error
		if billed, err = repo.billedCustomers(ctx, filter.BillPeriod, exec); err != nil {
			return nil, err
		}
	}

	custs := make([]customer.Customer, 0, len(rows))
	for _, row := range rows {
		c := repo.unboil(row)
		c.BillStatus = customer.BillStatusNotSet
		if billed[c.ID] {
			c.BillStatus = customer.BillStatusSet
		}
		custs = append(custs, c)
	}
	return custs, nil
}

// billedCustomers returns the IDs of customers having a bill in the month of `period`.
func (repo customerRepository) billedCustomers(ctx context.Context, period time.Time, exec []core.DBExecutor) (map[string]bool, error) {
	from, to := core.MonthBounds(period)
	var rows []struct {
		CustomerID string `boil:"customer_id"`
	}
	err := queries.Raw(
		`SELECT DISTINCT "customer_id" FROM "bills" WHERE "created_at" >= $1 AND "created_at" < $2`, from, to,
	).Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying billed customers")
	}
	billed := make(map[string]bool, len(rows))
	for _, row := range rows {
		billed[row.CustomerID] = true
	}
	return billed, nil
}

func (repo customerRepository) GetCustomer(ctx context.Context, filter customer.GetFilter, exec ...core.DBExecutor) (customer.Customer, error) {
	var mod qm.QueryMod
	switch {
	case filter.ID != "" && isUUID(filter.ID):
		mod = qm.Where("c.id = ?", filter.ID)
	case filter.UserID != "" && isUUID(filter.UserID):
		mod = qm.Where("c.user_id = ?", filter.UserID)
	default:
		return customer.Customer{}, customer.ErrNotFound
	}

	var row customerRow
	if err := newQuery(repo.selectMods(mod, qm.Limit(1))...).Bind(ctx, repo.getExec(exec), &row); err != nil {
		return customer.Customer{}, trapNoRowsErr(err, customer.ErrNotFound, "finding customer")
	}
	return repo.unboil(row), nil
}

func (repo customerRepository) UpdateCustomer(ctx context.Context, c customer.Customer, exec ...core.DBExecutor) (customer.Customer, error) {
	res, err := queries.Raw(
		`UPDATE "customers" SET "customer_type" = $2, "updated_at" = $3 WHERE "id" = $1`,
		c.ID, c.CustomerType, c.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.getExec(exec))
	if err = checkAffected(res, err, customer.ErrNotFound, "updating customer"); err != nil {
		return customer.Customer{}, err
	}
	return repo.GetCustomer(ctx, customer.GetFilter{ID: c.ID}, exec...)
}

func (repo customerRepository) DeleteCustomer(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return customer.ErrNotFound
	}
	res, err := queries.Raw(`DELETE FROM "customers" WHERE "id" = $1`, id).ExecContext(ctx, repo.getExec(exec))
	return checkAffected(res, err, customer.ErrNotFound, "deleting customer")
}
