package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/reading"
	"github.com/trezcool/smartbill/storage/database"
)

type readingRow struct {
	ID          string          `boil:"id"`
	ReaderID    string          `boil:"reader_id"`
	CustomerID  string          `boil:"customer_id"`
	Amount      decimal.Decimal `boil:"amount"`
	ReadingType string          `boil:"reading_type"`
	ReadingDate time.Time       `boil:"reading_date"`
	CreatedAt   time.Time       `boil:"created_at"`
	UpdatedAt   time.Time       `boil:"updated_at"`
}

type readingDetailRow struct {
	ID           string          `boil:"id"`
	ReaderID     string          `boil:"reader_id"`
	CustomerID   string          `boil:"customer_id"`
	Amount       decimal.Decimal `boil:"amount"`
	ReadingType  string          `boil:"reading_type"`
	ReadingDate  time.Time       `boil:"reading_date"`
	CreatedAt    time.Time       `boil:"created_at"`
	UpdatedAt    time.Time       `boil:"updated_at"`
	ReaderName   string          `boil:"reader_name"`
	CustomerName string          `boil:"customer_name"`
}

type readingRepository struct {
	repository
}

var _ reading.Repository = (*readingRepository)(nil) // interface compliance check

func NewReadingRepository(exec core.DBExecutor) reading.Repository {
	return &readingRepository{repository{exec: exec}}
}

func (repo readingRepository) unboil(row readingRow) reading.Reading {
	return reading.Reading{
		ID:          row.ID,
		ReaderID:    row.ReaderID,
		CustomerID:  row.CustomerID,
		Amount:      row.Amount,
		ReadingType: row.ReadingType,
		ReadingDate: row.ReadingDate.UTC(),
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func (repo readingRepository) filterMods(filter reading.QueryFilter) []qm.QueryMod {
	mods := []qm.QueryMod{qm.From(`"readings"`)}
	if filter.ReaderID != "" {
		mods = append(mods, qm.Where("reader_id = ?", filter.ReaderID))
	}
	if filter.CustomerID != "" {
		mods = append(mods, qm.Where("customer_id = ?", filter.CustomerID))
	}
	if !filter.DateFrom.IsZero() {
		mods = append(mods, qm.Where("reading_date >= ?", filter.DateFrom.UTC()))
	}
	if !filter.DateTo.IsZero() {
		mods = append(mods, qm.Where("reading_date < ?", filter.DateTo.UTC()))
	}
	if filter.ExcludedID != "" {
		mods = append(mods, qm.Where("id <> ?", filter.ExcludedID))
	}
	return mods
}

func (repo readingRepository) CreateReading(ctx context.Context, r reading.Reading, exec ...core.DBExecutor) (reading.Reading, error) {
	var row readingRow
	err := queries.Raw(
		`INSERT INTO "readings" ("id", "reader_id", "customer_id", "amount", "reading_type", "reading_date", "created_at", "updated_at")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING *`,
		uuid.New().String(), r.ReaderID, r.CustomerID, r.Amount, r.ReadingType, r.ReadingDate.UTC(), r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return reading.Reading{}, errors.Wrap(err, "inserting reading")
	}
	return repo.unboil(row), nil
}

func (repo readingRepository) QueryReadings(ctx context.Context, filter reading.QueryFilter, exec ...core.DBExecutor) ([]reading.Reading, error) {
	mods := append(repo.filterMods(filter), qm.OrderBy("reading_date DESC, created_at DESC"))

	var rows []readingRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying readings")
	}
	readings := make([]reading.Reading, 0, len(rows))
	for _, row := range rows {
		readings = append(readings, repo.unboil(row))
	}
	return readings, nil
}

func (repo readingRepository) ReadingExists(ctx context.Context, filter reading.QueryFilter, exec ...core.DBExecutor) (bool, error) {
	exists, err := repo.exists(ctx, exec, repo.filterMods(filter)...)
	return exists, errors.Wrap(err, "checking reading existence")
}

func (repo readingRepository) GetReading(ctx context.Context, id string, exec ...core.DBExecutor) (reading.Reading, error) {
	if !isUUID(id) {
		return reading.Reading{}, reading.ErrNotFound
	}

	var row readingDetailRow
	err := newQuery(
		qm.Select("r.*", "ru.name AS reader_name", "cu.name AS customer_name"),
		qm.From(`"readings" AS r`),
		qm.InnerJoin(`"users" AS ru ON ru.id = r.reader_id`),
		qm.InnerJoin(`"customers" AS c ON c.id = r.customer_id`),
		qm.InnerJoin(`"users" AS cu ON cu.id = c.user_id`),
		qm.Where("r.id = ?", id),
		qm.Limit(1),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return reading.Reading{}, trapNoRowsErr(err, reading.ErrNotFound, "finding reading")
	}

	r := repo.unboil(readingRow{
		ID:          row.ID,
		ReaderID:    row.ReaderID,
		CustomerID:  row.CustomerID,
		Amount:      row.Amount,
		ReadingType: row.ReadingType,
		ReadingDate: row.ReadingDate,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	})
	r.ReaderName = row.ReaderName
	r.CustomerName = row.CustomerName
	return r, nil
}

func (repo readingRepository) UpdateReading(ctx context.Context, r reading.Reading, exec ...core.DBExecutor) (reading.Reading, error) {
	var row readingRow
	err := queries.Raw(
		`UPDATE "readings" SET "amount" = $2, "reading_type" = $3, "reading_date" = $4, "updated_at" = $5 WHERE "id" = $1 RETURNING *`,
		r.ID, r.Amount, r.ReadingType, r.ReadingDate.UTC(), r.UpdatedAt.UTC(),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return reading.Reading{}, trapNoRowsErr(err, reading.ErrNotFound, "updating reading")
	}
	return repo.unboil(row), nil
}

func (repo readingRepository) DeleteReading(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return reading.ErrNotFound
	}
	res, err := queries.Raw(`DELETE FROM "readings" WHERE "id" = $1`, id).ExecContext(ctx, repo.getExec(exec))
	if database.IsForeignKeyViolation(err, "bills_reading_id_fkey") {
		return reading.ErrBilled
	}
	return checkAffected(res, err, reading.ErrNotFound, "deleting reading")
}
