package reading

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/customer"
)

var (
	ErrNotFound        = core.NewNotFoundError("reading not found")
	ErrBilled          = core.NewConflictError("This reading has been billed and cannot be deleted.")
	ErrAlreadyRead     = core.NewConflictError("This customer already has a reading for this month.")
	errUnknownCustomer = errors.New("customer not found")
)

type (
	Repository interface {
		CreateReading(ctx context.Context, r Reading, exec ...core.DBExecutor) (Reading, error)
		// QueryReadings lists readings matching all the set filter fields, latest reading_date first.
		QueryReadings(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Reading, error)
		// ReadingExists tells whether a reading matches all the set filter fields.
		ReadingExists(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) (bool, error)
		// GetReading returns a reading with the reader & customer names.
		GetReading(ctx context.Context, id string, exec ...core.DBExecutor) (Reading, error)
		UpdateReading(ctx context.Context, r Reading, exec ...core.DBExecutor) (Reading, error)
		DeleteReading(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, nr NewReading, readerID string) (Reading, error)
		Query(ctx context.Context, filter QueryFilter) ([]Reading, error)
		QueryByReader(ctx context.Context, readerID string) ([]Reading, error)
		QueryByCustomer(ctx context.Context, customerID string) ([]Reading, error)
		Latest(ctx context.Context, customerID string) (Reading, error)
		GetByID(ctx context.Context, id string) (Reading, error)
		Update(ctx context.Context, r Reading) (Reading, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo    Repository
		custSvc customer.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, custSvc customer.Service) Service {
	return &service{repo: repo, custSvc: custSvc}
}

// checkMonthAvailable makes sure the customer has no other reading in the month of `date`.
func (svc *service) checkMonthAvailable(ctx context.Context, customerID string, date time.Time, excludedID string) error {
	from, to := core.MonthBounds(date)
	exists, err := svc.repo.ReadingExists(ctx, QueryFilter{
		CustomerID: customerID,
		DateFrom:   from,
		DateTo:     to,
		ExcludedID: excludedID,
	})
	if err != nil {
		return errors.Wrap(err, "checking monthly reading")
	}
	if exists {
		return ErrAlreadyRead
	}
	return nil
}

// Create records a reading; a customer gets at most one reading per calendar month.
func (svc *service) Create(ctx context.Context, nr NewReading, readerID string) (Reading, error) {
	if _, err := svc.custSvc.GetByID(ctx, nr.CustomerID); err != nil {
		if errors.Cause(err) == customer.ErrNotFound {
			return Reading{}, core.NewValidationError(errUnknownCustomer, core.FieldError{Field: "customer_id", Error: errUnknownCustomer.Error()})
		}
		return Reading{}, errors.Wrap(err, "finding customer")
	}
	if err := svc.checkMonthAvailable(ctx, nr.CustomerID, nr.ReadingDate, ""); err != nil {
		return Reading{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateReading(ctx, Reading{
		ReaderID:    readerID,
		CustomerID:  nr.CustomerID,
		Amount:      nr.Amount,
		ReadingType: nr.ReadingType,
		ReadingDate: nr.ReadingDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Reading, error) {
	return svc.repo.QueryReadings(ctx, filter)
}

func (svc *service) QueryByReader(ctx context.Context, readerID string) ([]Reading, error) {
	return svc.repo.QueryReadings(ctx, QueryFilter{ReaderID: readerID})
}

func (svc *service) QueryByCustomer(ctx context.Context, customerID string) ([]Reading, error) {
	return svc.repo.QueryReadings(ctx, QueryFilter{CustomerID: customerID})
}

// Latest returns the most recent reading of a customer.
func (svc *service) Latest(ctx context.Context, customerID string) (Reading, error) {
	readings, err := svc.QueryByCustomer(ctx, customerID)
	if err != nil {
		return Reading{}, err
	}
	if len(readings) == 0 {
		return Reading{}, ErrNotFound
	}
	return readings[0], nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Reading, error) {
	return svc.repo.GetReading(ctx, id)
}

// Update saves a Reading validated with UpdateReading.Validate.
func (svc *service) Update(ctx context.Context, r Reading) (Reading, error) {
	if err := svc.checkMonthAvailable(ctx, r.CustomerID, r.ReadingDate, r.ID); err != nil {
		return Reading{}, err
	}
	r.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateReading(ctx, r)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteReading(ctx, id)
}
