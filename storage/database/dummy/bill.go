package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
)

type billRepository struct {
	db *DB
}

var _ billing.Repository = (*billRepository)(nil) // interface compliance check

func NewBillRepository(db *DB) billing.Repository {
	return &billRepository{db: db}
}

func matchBill(b billing.Bill, filter billing.QueryFilter) bool {
	switch {
	case filter.CustomerID != "" && b.CustomerID != filter.CustomerID,
		filter.Status != "" && b.Status != filter.Status,
		!filter.CreatedFrom.IsZero() && b.CreatedAt.Before(filter.CreatedFrom),
		!filter.CreatedTo.IsZero() && !b.CreatedAt.Before(filter.CreatedTo),
		!filter.DueBefore.IsZero() && !b.DueDate.Before(filter.DueBefore):
		return false
	}
	return true
}

func (repo *billRepository) CreateBill(_ context.Context, b billing.Bill, _ ...core.DBExecutor) (billing.Bill, error) {
	repo.db.bill.Lock()
	defer repo.db.bill.Unlock()

	b.ID = newID()
	b.CustomerName = ""
	repo.db.bill.table[b.ID] = b
	return b, nil
}

func (repo *billRepository) QueryBills(_ context.Context, filter billing.QueryFilter, _ ...core.DBExecutor) ([]billing.Bill, error) {
	repo.db.bill.RLock()
	bills := make([]billing.Bill, 0)
	for _, b := range repo.db.bill.table {
		if matchBill(b, filter) {
			bills = append(bills, b)
		}
	}
	repo.db.bill.RUnlock()

	for i := range bills {
		bills[i].CustomerName = repo.db.customerName(bills[i].CustomerID)
	}
	sort.SliceStable(bills, func(i, j int) bool { return bills[i].CreatedAt.After(bills[j].CreatedAt) })
	return bills, nil
}

func (repo *billRepository) BillExists(_ context.Context, filter billing.QueryFilter, _ ...core.DBExecutor) (bool, error) {
	repo.db.bill.RLock()
	defer repo.db.bill.RUnlock()

	for _, b := range repo.db.bill.table {
		if matchBill(b, filter) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *billRepository) GetBill(_ context.Context, id string, _ ...core.DBExecutor) (billing.Bill, error) {
	repo.db.bill.RLock()
	b, ok := repo.db.bill.table[id]
	repo.db.bill.RUnlock()

	if !ok {
		return billing.Bill{}, billing.ErrNotFound
	}
	b.CustomerName = repo.db.customerName(b.CustomerID)
	return b, nil
}

func (repo *billRepository) UpdateBill(_ context.Context, b billing.Bill, _ ...core.DBExecutor) (billing.Bill, error) {
	repo.db.bill.Lock()
	defer repo.db.bill.Unlock()

	if _, ok := repo.db.bill.table[b.ID]; !ok {
		return billing.Bill{}, billing.ErrNotFound
	}
	b.CustomerName = ""
	repo.db.bill.table[b.ID] = b
	return b, nil
}

func (repo *billRepository) MarkOverdue(_ context.Context, now time.Time, _ ...core.DBExecutor) (int, error) {
	repo.db.bill.Lock()
	defer repo.db.bill.Unlock()

	var cnt int
	for id, b := range repo.db.bill.table {
		if b.Status == billing.StatusUnpaid && b.DueDate.Before(now) {
			b.Status = billing.StatusOverdue
			b.UpdatedAt = now
			repo.db.bill.table[id] = b
			cnt++
		}
	}
	return cnt, nil
}
