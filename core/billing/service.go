package billing

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/customer"
	"github.com/trezcool/smartbill/core/notification"
	"github.com/trezcool/smartbill/core/reading"
	"github.com/trezcool/smartbill/core/tariff"
)

var (
	ErrNotFound      = core.NewNotFoundError("bill not found")
	ErrNoReadings    = core.NewNotFoundError("no readings found for this customer")
	ErrAlreadyBilled = core.NewConflictError("A bill has already been generated for this customer this month.")

	errNoReading      = errors.New("this customer has no readings")
	errForeignReading = errors.New("reading does not belong to this customer")
	errUnknownReading = errors.New("reading not found")
	errUnknownTariff  = errors.New("tariff not found")
	errNoTariff       = errors.New("no tariff matches the customer type")

	// NowFunc is mocked in tests
	NowFunc = time.Now
)

type (
	Repository interface {
		CreateBill(ctx context.Context, b Bill, exec ...core.DBExecutor) (Bill, error)
		// QueryBills lists bills matching all the set filter fields, newest first.
		QueryBills(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Bill, error)
		// BillExists tells whether a bill matches all the set filter fields.
		BillExists(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) (bool, error)
		GetBill(ctx context.Context, id string, exec ...core.DBExecutor) (Bill, error)
		UpdateBill(ctx context.Context, b Bill, exec ...core.DBExecutor) (Bill, error)
		// MarkOverdue flags unpaid bills due before `now` as overdue and returns how many were.
		MarkOverdue(ctx context.Context, now time.Time, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Generate(ctx context.Context, nb NewBill, generatedBy string) (Bill, error)
		Query(ctx context.Context, filter QueryFilter) ([]Bill, error)
		QueryByCustomer(ctx context.Context, customerID string) ([]Bill, error)
		GetByID(ctx context.Context, id string) (Bill, error)
		ReadingDetails(ctx context.Context, customerID string) (ReadingDetails, error)
		MarkPaid(ctx context.Context, id string, exec ...core.DBExecutor) (Bill, error)
		MarkOverdue(ctx context.Context, now time.Time) (int, error)
	}

	service struct {
		tx         core.Transactor
		repo       Repository
		custSvc    customer.Service
		readingSvc reading.Service
		tariffSvc  tariff.Service
		notifSvc   notification.Service
		mailSvc    core.EmailService
		logger     core.Logger
		currency   string
	}
)

var _ Service = (*service)(nil)

func NewService(
	tx core.Transactor,
	repo Repository,
	custSvc customer.Service,
	readingSvc reading.Service,
	tariffSvc tariff.Service,
	notifSvc notification.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) Service {
	return &service{
		tx:         tx,
		repo:       repo,
		custSvc:    custSvc,
		readingSvc: readingSvc,
		tariffSvc:  tariffSvc,
		notifSvc:   notifSvc,
		mailSvc:    mailSvc,
		logger:     logger,
		currency:   conf.DefaultCurrency,
	}
}

// Generate bills a customer's reading at a tariff's rate.
// A customer is billed at most once per calendar month.
func (svc *service) Generate(ctx context.Context, nb NewBill, generatedBy string) (Bill, error) {
	cust, err := svc.custSvc.GetByID(ctx, nb.CustomerID)
	if err != nil {
		return Bill{}, err
	}

	now := NowFunc().UTC()
	rdg, err := svc.billedReading(ctx, cust, nb.ReadingID)
	if err != nil {
		return Bill{}, err
	}
	trf, err := svc.billedTariff(ctx, cust, nb.TariffID)
	if err != nil {
		return Bill{}, err
	}

	bill := Bill{
		CustomerID:  cust.ID,
		GeneratedBy: generatedBy,
		ReadingID:   rdg.ID,
		TariffID:    trf.ID,
		Amount:      ComputeAmount(rdg, trf),
		Status:      StatusUnpaid,
		DueDate:     DueDate(now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	from, to := core.MonthBounds(now)
	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		exists, err := svc.repo.BillExists(ctx, QueryFilter{CustomerID: cust.ID, CreatedFrom: from, CreatedTo: to}, exec)
		if err != nil {
			return errors.Wrap(err, "checking monthly bill")
		}
		if exists {
			return ErrAlreadyBilled
		}
		if bill, err = svc.repo.CreateBill(ctx, bill, exec); err != nil {
			if err == ErrAlreadyBilled { // lost a race with a concurrent Generate
				return err
			}
			return errors.Wrap(err, "creating bill")
		}
		_, err = svc.notifSvc.Send(ctx, notification.NewNotification{
			Message: fmt.Sprintf(
				"Your bill for %s is ready: %s %s, due on %s.",
				now.Format("January 2006"), bill.Amount.StringFixed(2), svc.currency, bill.DueDate.Format("2006-01-02"),
			),
			Type:     notification.TypeBill,
			SentToID: cust.UserID,
		}, exec)
		return errors.Wrap(err, "notifying customer")
	})
	if err != nil {
		return Bill{}, err
	}

	bill.CustomerName = cust.Name
	svc.sendBillMail(cust, bill)
	return bill, nil
}

func (svc *service) billedReading(ctx context.Context, cust customer.Customer, readingID string) (reading.Reading, error) {
	if readingID == "" {
		rdg, err := svc.readingSvc.Latest(ctx, cust.ID)
		if err != nil {
			if errors.Cause(err) == reading.ErrNotFound {
				return reading.Reading{}, core.NewValidationError(errNoReading, core.FieldError{Field: "reading_id", Error: errNoReading.Error()})
			}
			return reading.Reading{}, errors.Wrap(err, "finding latest reading")
		}
		return rdg, nil
	}

	rdg, err := svc.readingSvc.GetByID(ctx, readingID)
	if err != nil {
		if errors.Cause(err) == reading.ErrNotFound {
			return reading.Reading{}, core.NewValidationError(errUnknownReading, core.FieldError{Field: "reading_id", Error: errUnknownReading.Error()})
		}
		return reading.Reading{}, errors.Wrap(err, "finding reading")
	}
	if rdg.CustomerID != cust.ID {
		return reading.Reading{}, core.NewValidationError(errForeignReading, core.FieldError{Field: "reading_id", Error: errForeignReading.Error()})
	}
	return rdg, nil
}

func (svc *service) billedTariff(ctx context.Context, cust customer.Customer, tariffID string) (tariff.Tariff, error) {
	var (
		trf      tariff.Tariff
		err      error
		notFound = errNoTariff
	)
	if tariffID == "" {
		trf, err = svc.tariffSvc.GetByName(ctx, cust.CustomerType)
	} else {
		trf, err = svc.tariffSvc.GetByID(ctx, tariffID)
		notFound = errUnknownTariff
	}
	if err != nil {
		if errors.Cause(err) == tariff.ErrNotFound {
			return tariff.Tariff{}, core.NewValidationError(notFound, core.FieldError{Field: "tariff_id", Error: notFound.Error()})
		}
		return tariff.Tariff{}, errors.Wrap(err, "finding tariff")
	}
	return trf, nil
}

func (svc *service) sendBillMail(cust customer.Customer, bill Bill) {
	if cust.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: cust.Name, Address: cust.Email}},
		Subject:      "Your electricity bill is ready",
		TemplateName: "bill_generated",
		TemplateData: map[string]interface{}{
			"Name":     cust.Name,
			"Period":   bill.CreatedAt.Format("January 2006"),
			"Amount":   bill.Amount.StringFixed(2),
			"Currency": svc.currency,
			"DueDate":  bill.DueDate.Format("2006-01-02"),
			"BillID":   bill.ID,
		},
	})
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Bill, error) {
	return svc.repo.QueryBills(ctx, filter)
}

func (svc *service) QueryByCustomer(ctx context.Context, customerID string) ([]Bill, error) {
	return svc.repo.QueryBills(ctx, QueryFilter{CustomerID: customerID})
}

func (svc *service) GetByID(ctx context.Context, id string) (Bill, error) {
	return svc.repo.GetBill(ctx, id)
}

// ReadingDetails returns the customer's readings, newest first, with the tariff matching its type.
func (svc *service) ReadingDetails(ctx context.Context, customerID string) (ReadingDetails, error) {
	cust, err := svc.custSvc.GetByID(ctx, customerID)
	if err != nil {
		return ReadingDetails{}, err
	}
	readings, err := svc.readingSvc.QueryByCustomer(ctx, cust.ID)
	if err != nil {
		return ReadingDetails{}, errors.Wrap(err, "querying readings")
	}
	if len(readings) == 0 {
		return ReadingDetails{}, ErrNoReadings
	}

	details := ReadingDetails{Customer: cust, Readings: readings}
	trf, err := svc.tariffSvc.GetByName(ctx, cust.CustomerType)
	switch {
	case err == nil:
		details.Tariff = &trf
	case errors.Cause(err) != tariff.ErrNotFound:
		return ReadingDetails{}, errors.Wrap(err, "finding tariff")
	}
	return details, nil
}

// MarkPaid settles a bill. Already paid bills are returned untouched.
func (svc *service) MarkPaid(ctx context.Context, id string, exec ...core.DBExecutor) (Bill, error) {
	bill, err := svc.repo.GetBill(ctx, id, exec...)
	if err != nil {
		return Bill{}, err
	}
	if bill.Status == StatusPaid {
		return bill, nil
	}
	bill.Status = StatusPaid
	bill.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateBill(ctx, bill, exec...)
}

func (svc *service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	count, err := svc.repo.MarkOverdue(ctx, now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "marking overdue bills")
	}
	if count > 0 {
		svc.logger.Info(fmt.Sprintf("%d bill(s) marked overdue", count))
	}
	return count, nil
}
