package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/customer"
	"github.com/trezcool/smartbill/core/notification"
	"github.com/trezcool/smartbill/core/user"
)

var (
	ErrNotFound         = core.NewNotFoundError("payment not found")
	ErrBillSettled      = core.NewConflictError("This bill has already been paid.")
	ErrInvalidSignature = errors.New("invalid webhook signature")

	errAmountTooLow  = errors.New("amount must be 1 or greater")
	errAmountTooHigh = errors.New("amount cannot exceed the outstanding balance")
)

// GatewayError is returned when the payment gateway fails or rejects a call.
type GatewayError struct {
	Err error
}

func (err GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %v", err.Err)
}

func IsGatewayError(err error) bool {
	_, ok := errors.Cause(err).(*GatewayError)
	return ok
}

type (
	Gateway interface {
		Initialize(ctx context.Context, req CheckoutRequest) (CheckoutResponse, error)
		Verify(ctx context.Context, txRef string) (Verification, error)
	}

	Repository interface {
		CreatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		// QueryPayments lists payments matching all the set filter fields, newest first.
		QueryPayments(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Payment, error)
		GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (Payment, error)
		GetPaymentByTxRef(ctx context.Context, txRef string, exec ...core.DBExecutor) (Payment, error)
		UpdatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
	}

	Service interface {
		Initiate(ctx context.Context, np NewPayment, payer user.User) (Payment, error)
		Verify(ctx context.Context, txRef string) (Payment, error)
		HandleWebhook(ctx context.Context, body []byte, signature string) (Payment, error)
		Query(ctx context.Context, filter QueryFilter) ([]Payment, error)
		GetByID(ctx context.Context, id string) (Payment, error)
		GetByTxRef(ctx context.Context, txRef string) (Payment, error)
	}

	service struct {
		tx       core.Transactor
		repo     Repository
		billSvc  billing.Service
		custSvc  customer.Service
		notifSvc notification.Service
		gateway  Gateway
		mailSvc  core.EmailService
		logger   core.Logger
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	tx core.Transactor,
	repo Repository,
	billSvc billing.Service,
	custSvc customer.Service,
	notifSvc notification.Service,
	gateway Gateway,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) Service {
	return &service{
		tx:       tx,
		repo:     repo,
		billSvc:  billSvc,
		custSvc:  custSvc,
		notifSvc: notifSvc,
		gateway:  gateway,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf,
	}
}

// Initiate records a pending payment and opens a gateway checkout for it.
// The bill is left untouched until the gateway confirms the transaction.
func (svc *service) Initiate(ctx context.Context, np NewPayment, payer user.User) (Payment, error) {
	bill, err := svc.billSvc.GetByID(ctx, np.BillID)
	if err != nil {
		return Payment{}, err
	}
	if payer.IsCustomer() {
		cust, err := svc.custSvc.GetByUserID(ctx, payer.ID)
		if err != nil && errors.Cause(err) != customer.ErrNotFound {
			return Payment{}, errors.Wrap(err, "finding payer's customer account")
		}
		if err != nil || cust.ID != bill.CustomerID {
			return Payment{}, billing.ErrNotFound
		}
	}
	if !bill.IsPayable() {
		return Payment{}, ErrBillSettled
	}

	paid, err := svc.paidTowards(ctx, bill.ID)
	if err != nil {
		return Payment{}, err
	}
	balance := bill.Amount.Sub(paid)
	if !balance.IsPositive() {
		return Payment{}, ErrBillSettled
	}

	amount := balance
	if np.Amount != nil {
		amount = *np.Amount
	}
	switch {
	case amount.LessThan(MinAmount):
		return Payment{}, core.NewValidationError(errAmountTooLow, core.FieldError{Field: "amount", Error: errAmountTooLow.Error()})
	case amount.GreaterThan(balance):
		return Payment{}, core.NewValidationError(errAmountTooHigh, core.FieldError{Field: "amount", Error: errAmountTooHigh.Error()})
	}

	now := time.Now().UTC()
	pmt, err := svc.repo.CreatePayment(ctx, Payment{
		BillID:    bill.ID,
		PaidBy:    payer.ID,
		FirstName: np.FirstName,
		LastName:  np.LastName,
		Email:     np.Email,
		Phone:     np.Phone,
		TxRef:     "TX_" + uuid.New().String(),
		Amount:    amount,
		Currency:  svc.conf.DefaultCurrency,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Payment{}, errors.Wrap(err, "creating payment")
	}

	resp, err := svc.gateway.Initialize(ctx, CheckoutRequest{
		TxRef:       pmt.TxRef,
		Amount:      pmt.Amount,
		Currency:    pmt.Currency,
		Email:       pmt.Email,
		FirstName:   pmt.FirstName,
		LastName:    pmt.LastName,
		Phone:       pmt.Phone,
		CallbackURL: svc.conf.Chapa.CallbackURL,
		ReturnURL:   fmt.Sprintf("%s?tx_ref=%s", svc.conf.Chapa.ReturnURL, pmt.TxRef),
		Title:       "Electricity bill",
		Description: fmt.Sprintf("Payment of bill %s", bill.ID),
	})
	if err != nil {
		pmt.Status = StatusFailed
		pmt.UpdatedAt = time.Now().UTC()
		if _, uErr := svc.repo.UpdatePayment(ctx, pmt); uErr != nil {
			svc.logger.Error(fmt.Sprintf("payment.Initiate: %v", uErr), uErr)
		}
		return Payment{}, &GatewayError{Err: err}
	}

	pmt.CheckoutURL = resp.CheckoutURL
	pmt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdatePayment(ctx, pmt)
}

// paidTowards sums the successful payments made towards a bill.
func (svc *service) paidTowards(ctx context.Context, billID string, exec ...core.DBExecutor) (decimal.Decimal, error) {
	pmts, err := svc.repo.QueryPayments(ctx, QueryFilter{BillID: billID, Status: StatusSuccess}, exec...)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "querying bill payments")
	}
	total := decimal.Zero
	for _, p := range pmts {
		total = total.Add(p.Amount)
	}
	return total, nil
}

// Verify confirms a pending payment with the gateway.
// The bill is settled once its successful payments cover its amount.
// Payments that are no longer pending are returned as they are.
func (svc *service) Verify(ctx context.Context, txRef string) (Payment, error) {
	pmt, err := svc.repo.GetPaymentByTxRef(ctx, txRef)
	if err != nil {
		return Payment{}, err
	}
	if pmt.Status != StatusPending {
		return pmt, nil
	}

	v, err := svc.gateway.Verify(ctx, txRef)
	if err != nil {
		return Payment{}, &GatewayError{Err: err}
	}

	switch {
	case v.Status == StatusPending:
		return pmt, nil
	case v.Status == StatusSuccess && v.Amount.IsPositive() && v.Amount.LessThan(pmt.Amount):
		svc.logger.Warn(fmt.Sprintf("payment %s: gateway amount %s below %s", pmt.TxRef, v.Amount, pmt.Amount))
		pmt.Status = StatusFailed
	default:
		pmt.Status = v.Status
	}
	if pmt.Status != StatusSuccess {
		pmt.Status = StatusFailed
	}
	pmt.GatewayRef = v.Reference
	pmt.UpdatedAt = time.Now().UTC()

	if pmt.Status == StatusFailed {
		return svc.repo.UpdatePayment(ctx, pmt)
	}

	bill, err := svc.billSvc.GetByID(ctx, pmt.BillID)
	if err != nil {
		return Payment{}, errors.Wrap(err, "finding paid bill")
	}

	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if pmt, err = svc.repo.UpdatePayment(ctx, pmt, exec); err != nil {
			return errors.Wrap(err, "updating payment")
		}
		paid, err := svc.paidTowards(ctx, pmt.BillID, exec)
		if err != nil {
			return err
		}
		if paid.GreaterThanOrEqual(bill.Amount) {
			if _, err = svc.billSvc.MarkPaid(ctx, pmt.BillID, exec); err != nil {
				return errors.Wrap(err, "settling bill")
			}
		}
		_, err = svc.notifSvc.Send(ctx, notification.NewNotification{
			Message:  fmt.Sprintf("Your payment of %s %s was received. Reference: %s.", pmt.Amount.StringFixed(2), pmt.Currency, pmt.TxRef),
			Type:     notification.TypePayment,
			SentToID: pmt.PaidBy,
		}, exec)
		return errors.Wrap(err, "notifying payer")
	})
	if err != nil {
		return Payment{}, err
	}

	svc.sendReceipt(pmt)
	return pmt, nil
}

func (svc *service) sendReceipt(pmt Payment) {
	if pmt.Email == "" {
		return
	}
	name := strings.TrimSpace(pmt.FirstName + " " + pmt.LastName)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: pmt.Email}},
		Subject:      "Payment received",
		TemplateName: "payment_received",
		TemplateData: map[string]interface{}{
			"Name":     name,
			"Amount":   pmt.Amount.StringFixed(2),
			"Currency": pmt.Currency,
			"TxRef":    pmt.TxRef,
		},
	})
}

type webhookEvent struct {
	TxRef string `json:"tx_ref"`
}

// HandleWebhook authenticates a gateway event then verifies the payment it is about.
// The signature is the hex encoded HMAC-SHA256 of the body keyed with the webhook secret.
func (svc *service) HandleWebhook(ctx context.Context, body []byte, signature string) (Payment, error) {
	if !svc.validSignature(body, signature) {
		return Payment{}, ErrInvalidSignature
	}
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return Payment{}, core.NewValidationError(errors.Wrap(err, "decoding webhook event"))
	}
	if event.TxRef == "" {
		return Payment{}, ErrNotFound
	}
	return svc.Verify(ctx, event.TxRef)
}

func (svc *service) validSignature(body []byte, signature string) bool {
	secret := svc.conf.Chapa.WebhookSecret
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// Sign returns the webhook signature of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Payment, error) {
	return svc.repo.GetPayment(ctx, id)
}

func (svc *service) GetByTxRef(ctx context.Context, txRef string) (Payment, error) {
	return svc.repo.GetPaymentByTxRef(ctx, txRef)
}
