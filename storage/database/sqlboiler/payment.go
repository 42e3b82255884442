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
	"github.com/trezcool/smartbill/core/payment"
)

type paymentRow struct {
	ID          string          `boil:"id"`
	BillID      string          `boil:"bill_id"`
	PaidBy      null.String     `boil:"paid_by"`
	FirstName   string          `boil:"first_name"`
	LastName    string          `boil:"last_name"`
	Email       string          `boil:"email"`
	Phone       string          `boil:"phone"`
	TxRef       string          `boil:"tx_ref"`
	Amount      decimal.Decimal `boil:"amount"`
	Currency    string          `boil:"currency"`
	Status      string          `boil:"status"`
	CheckoutURL string          `boil:"checkout_url"`
	GatewayRef  string          `boil:"gateway_ref"`
	CreatedAt   time.Time       `boil:"created_at"`
	UpdatedAt   time.Time       `boil:"updated_at"`
}

type paymentRepository struct {
	repository
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(exec core.DBExecutor) payment.Repository {
	return &paymentRepository{repository{exec: exec}}
}

func (repo paymentRepository) unboil(row paymentRow) payment.Payment {
	return payment.Payment{
		ID:          row.ID,
		BillID:      row.BillID,
		PaidBy:      row.PaidBy.String,
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		Email:       row.Email,
		Phone:       row.Phone,
		TxRef:       row.TxRef,
		Amount:      row.Amount,
		Currency:    row.Currency,
		Status:      row.Status,
		CheckoutURL: row.CheckoutURL,
		GatewayRef:  row.GatewayRef,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func (repo paymentRepository) CreatePayment(ctx context.Context, p payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	var row paymentRow
	err := queries.Raw(
		`INSERT INTO "payments" ("id", "bill_id", "paid_by", "first_name", "last_name", "email", "phone", "tx_ref", "amount",
		"currency", "status", "checkout_url", "gateway_ref", "created_at", "updated_at")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING *`,
		uuid.New().String(), p.BillID, null.NewString(p.PaidBy, p.PaidBy != ""), p.FirstName, p.LastName, p.Email, p.Phone,
		p.TxRef, p.Amount, p.Currency, p.Status, p.CheckoutURL, p.GatewayRef, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return repo.unboil(row), nil
}

func (repo paymentRepository) QueryPayments(ctx context.Context, filter payment.QueryFilter, exec ...core.DBExecutor) ([]payment.Payment, error) {
	mods := []qm.QueryMod{qm.From(`"payments"`)}
	if filter.BillID != "" {
		mods = append(mods, qm.Where("bill_id = ?", filter.BillID))
	}
	if filter.PaidBy != "" {
		mods = append(mods, qm.Where("paid_by = ?", filter.PaidBy))
	}
	if filter.Status != "" {
		mods = append(mods, qm.Where("status = ?", filter.Status))
	}
	mods = append(mods, qm.OrderBy("created_at DESC"))

	var rows []paymentRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	pmts := make([]payment.Payment, 0, len(rows))
	for _, row := range rows {
		pmts = append(pmts, repo.unboil(row))
	}
	return pmts, nil
}

func (repo paymentRepository) getOne(ctx context.Context, exec []core.DBExecutor, mod qm.QueryMod) (payment.Payment, error) {
	var row paymentRow
	if err := newQuery(qm.From(`"payments"`), mod, qm.Limit(1)).Bind(ctx, repo.getExec(exec), &row); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "finding payment")
	}
	return repo.unboil(row), nil
}

func (repo paymentRepository) GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (payment.Payment, error) {
	if !isUUID(id) {
		return payment.Payment{}, payment.ErrNotFound
	}
	return repo.getOne(ctx, exec, qm.Where("id = ?", id))
}

func (repo paymentRepository) GetPaymentByTxRef(ctx context.Context, txRef string, exec ...core.DBExecutor) (payment.Payment, error) {
	return repo.getOne(ctx, exec, qm.Where("tx_ref = ?", txRef))
}

func (repo paymentRepository) UpdatePayment(ctx context.Context, p payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	var row paymentRow
	err := queries.Raw(
		`UPDATE "payments" SET "status" = $2, "checkout_url" = $3, "gateway_ref" = $4, "updated_at" = $5 WHERE "id" = $1 RETURNING *`,
		p.ID, p.Status, p.CheckoutURL, p.GatewayRef, p.UpdatedAt.UTC(),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "updating payment")
	}
	return repo.unboil(row), nil
}
