package boiledrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/tariff"
	"github.com/trezcool/smartbill/storage/database"
)

type tariffRow struct {
	ID            string          `boil:"id"`
	Name          string          `boil:"tariff_name"`
	UnitMin       int             `boil:"unit_min"`
	UnitMax       int             `boil:"unit_max"`
	Price         decimal.Decimal `boil:"price"`
	EffectiveDate time.Time       `boil:"effective_date"`
	CreatedAt     time.Time       `boil:"created_at"`
	UpdatedAt     time.Time       `boil:"updated_at"`
}

type tariffRepository struct {
	repository
}

var _ tariff.Repository = (*tariffRepository)(nil) // interface compliance check

func NewTariffRepository(exec core.DBExecutor) tariff.Repository {
	return &tariffRepository{repository{exec: exec}}
}

func (repo tariffRepository) unboil(row tariffRow) tariff.Tariff {
	return tariff.Tariff{
		ID:            row.ID,
		Name:          row.Name,
		UnitMin:       row.UnitMin,
		UnitMax:       row.UnitMax,
		Price:         row.Price,
		EffectiveDate: row.EffectiveDate.UTC(),
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

func (repo tariffRepository) trapWriteErr(err error, msg string) error {
	switch {
	case errors.Cause(err) == sql.ErrNoRows:
		return tariff.ErrNotFound
	case database.IsUniqueViolation(err, "tariffs_tariff_name_key"):
		return tariff.ErrNameExists
	}
	return errors.Wrap(err, msg)
}

func (repo tariffRepository) CheckNameUniqueness(ctx context.Context, name, excludedID string, exec ...core.DBExecutor) error {
	mods := []qm.QueryMod{qm.From(`"tariffs"`), qm.Where("LOWER(tariff_name) = LOWER(?)", name)}
	if excludedID != "" {
		mods = append(mods, qm.Where("id <> ?", excludedID))
	}
	exists, err := repo.exists(ctx, exec, mods...)
	if err != nil {
		return errors.Wrap(err, "checking tariff name uniqueness")
	}
	if exists {
		return tariff.ErrNameExists
	}
	return nil
}

func (repo tariffRepository) CreateTariff(ctx context.Context, t tariff.Tariff, exec ...core.DBExecutor) (tariff.Tariff, error) {
	var row tariffRow
	err := queries.Raw(
		`INSERT INTO "tariffs" ("id", "tariff_name", "unit_min", "unit_max", "price", "effective_date", "created_at", "updated_at")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING *`,
		uuid.New().String(), t.Name, t.UnitMin, t.UnitMax, t.Price, t.EffectiveDate.UTC(), t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return tariff.Tariff{}, repo.trapWriteErr(err, "inserting tariff")
	}
	return repo.unboil(row), nil
}

func (repo tariffRepository) query(ctx context.Context, exec []core.DBExecutor, mods ...qm.QueryMod) ([]tariff.Tariff, error) {
	var rows []tariffRow
	mods = append([]qm.QueryMod{qm.From(`"tariffs"`)}, mods...)
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, err
	}
	tariffs := make([]tariff.Tariff, 0, len(rows))
	for _, row := range rows {
		tariffs = append(tariffs, repo.unboil(row))
	}
	return tariffs, nil
}

func (repo tariffRepository) QueryTariffs(ctx context.Context, exec ...core.DBExecutor) ([]tariff.Tariff, error) {
	tariffs, err := repo.query(ctx, exec, qm.OrderBy("tariff_name"))
	return tariffs, errors.Wrap(err, "querying tariffs")
}

func (repo tariffRepository) getOne(ctx context.Context, exec []core.DBExecutor, mod qm.QueryMod) (tariff.Tariff, error) {
	tariffs, err := repo.query(ctx, exec, mod, qm.Limit(1))
	if err != nil {
		return tariff.Tariff{}, errors.Wrap(err, "finding tariff")
	}
	if len(tariffs) == 0 {
		return tariff.Tariff{}, tariff.ErrNotFound
	}
	return tariffs[0], nil
}

func (repo tariffRepository) GetTariffByID(ctx context.Context, id string, exec ...core.DBExecutor) (tariff.Tariff, error) {
	if !isUUID(id) {
		return tariff.Tariff{}, tariff.ErrNotFound
	}
	return repo.getOne(ctx, exec, qm.Where("id = ?", id))
}

func (repo tariffRepository) GetTariffByName(ctx context.Context, name string, exec ...core.DBExecutor) (tariff.Tariff, error) {
	return repo.getOne(ctx, exec, qm.Where("LOWER(tariff_name) = LOWER(?)", name))
}

func (repo tariffRepository) UpdateTariff(ctx context.Context, t tariff.Tariff, exec ...core.DBExecutor) (tariff.Tariff, error) {
	var row tariffRow
	err := queries.Raw(
		`UPDATE "tariffs" SET "tariff_name" = $2, "unit_min" = $3, "unit_max" = $4, "price" = $5, "effective_date" = $6, "updated_at" = $7
		WHERE "id" = $1 RETURNING *`,
		t.ID, t.Name, t.UnitMin, t.UnitMax, t.Price, t.EffectiveDate.UTC(), t.UpdatedAt.UTC(),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return tariff.Tariff{}, repo.trapWriteErr(err, "updating tariff")
	}
	return repo.unboil(row), nil
}

func (repo tariffRepository) DeleteTariff(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return tariff.ErrNotFound
	}
	res, err := queries.Raw(`DELETE FROM "tariffs" WHERE "id" = $1`, id).ExecContext(ctx, repo.getExec(exec))
	if database.IsForeignKeyViolation(err, "bills_tariff_id_fkey") {
		return tariff.ErrInUse
	}
	return checkAffected(res, err, tariff.ErrNotFound, "deleting tariff")
}
