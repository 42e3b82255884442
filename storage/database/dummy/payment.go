package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/payment"
)

type paymentRepository struct {
	db *paymentTable
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db.payment}
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = newID()
	repo.db.table[p.ID] = p
	return p, nil
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter payment.QueryFilter, _ ...core.DBExecutor) ([]payment.Payment, error) {
	repo.db.RLock()
	pmts := make([]payment.Payment, 0)
	for _, p := range repo.db.table {
		if (filter.BillID == "" || p.BillID == filter.BillID) &&
			(filter.PaidBy == "" || p.PaidBy == filter.PaidBy) &&
			(filter.Status == "" || p.Status == filter.Status) {
			pmts = append(pmts, p)
		}
	}
	repo.db.RUnlock()

	sort.SliceStable(pmts, func(i, j int) bool { return pmts[i].CreatedAt.After(pmts[j].CreatedAt) })
	return pmts, nil
}

func (repo *paymentRepository) GetPayment(_ context.Context, id string, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return p, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) GetPaymentByTxRef(_ context.Context, txRef string, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.table {
		if p.TxRef == txRef {
			return p, nil
		}
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, p payment.Payment, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[p.ID]; !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	repo.db.table[p.ID] = p
	return p, nil
}
