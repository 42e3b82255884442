package tariff

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core"
)

var (
	ErrNotFound   = core.NewNotFoundError("tariff not found")
	ErrInUse      = core.NewConflictError("This tariff is used by bills and cannot be deleted.")
	ErrNameExists = errors.New("a tariff with this name already exists")
)

type (
	Repository interface {
		// CheckNameUniqueness returns ErrNameExists if another tariff (not excludedID) is named `name`.
		CheckNameUniqueness(ctx context.Context, name, excludedID string, exec ...core.DBExecutor) error
		CreateTariff(ctx context.Context, t Tariff, exec ...core.DBExecutor) (Tariff, error)
		// QueryTariffs lists tariffs by name.
		QueryTariffs(ctx context.Context, exec ...core.DBExecutor) ([]Tariff, error)
		GetTariffByID(ctx context.Context, id string, exec ...core.DBExecutor) (Tariff, error)
		// GetTariffByName does a case-insensitive match on the tariff name.
		GetTariffByName(ctx context.Context, name string, exec ...core.DBExecutor) (Tariff, error)
		UpdateTariff(ctx context.Context, t Tariff, exec ...core.DBExecutor) (Tariff, error)
		DeleteTariff(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, nt NewTariff) (Tariff, error)
		Query(ctx context.Context) ([]Tariff, error)
		GetByID(ctx context.Context, id string) (Tariff, error)
		GetByName(ctx context.Context, name string) (Tariff, error)
		Update(ctx context.Context, t Tariff) (Tariff, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) checkNameUniqueness(ctx context.Context, name, excludedID string) error {
	if err := svc.repo.CheckNameUniqueness(ctx, name, excludedID); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "tariff_name", Error: err.Error()})
		}
		return errors.Wrap(err, "checking tariff name uniqueness")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nt NewTariff) (Tariff, error) {
	if err := svc.checkNameUniqueness(ctx, nt.Name, ""); err != nil {
		return Tariff{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateTariff(ctx, Tariff{
		Name:          nt.Name,
		UnitMin:       nt.UnitMin,
		UnitMax:       nt.UnitMax,
		Price:         nt.Price,
		EffectiveDate: nt.EffectiveDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (svc *service) Query(ctx context.Context) ([]Tariff, error) {
	return svc.repo.QueryTariffs(ctx)
}

func (svc *service) GetByID(ctx context.Context, id string) (Tariff, error) {
	return svc.repo.GetTariffByID(ctx, id)
}

func (svc *service) GetByName(ctx context.Context, name string) (Tariff, error) {
	return svc.repo.GetTariffByName(ctx, core.CleanString(name))
}

// Update saves a Tariff validated with UpdateTariff.Validate.
func (svc *service) Update(ctx context.Context, t Tariff) (Tariff, error) {
	if err := svc.checkNameUniqueness(ctx, t.Name, t.ID); err != nil {
		return Tariff{}, err
	}
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTariff(ctx, t)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteTariff(ctx, id)
}
