package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/customer"
)

type customerRepository struct {
	db *DB
}

var _ customer.Repository = (*customerRepository)(nil) // interface compliance check

func NewCustomerRepository(db *DB) customer.Repository {
	return &customerRepository{db: db}
}

// withUser fills the account details of c.
func (repo *customerRepository) withUser(c customer.Customer) customer.Customer {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	usr := repo.db.user.table[c.UserID]
	c.Name = usr.Name
	c.Email = usr.Email
	c.PhoneNumber = usr.PhoneNumber
	c.Address = usr.Address
	return c
}

func (repo *customerRepository) CreateCustomer(_ context.Context, c customer.Customer, _ ...core.DBExecutor) (customer.Customer, error) {
	repo.db.customer.Lock()
	c.ID = newID()
	repo.db.customer.table[c.ID] = c
	repo.db.customer.Unlock()
	return repo.withUser(c), nil
}

func (repo *customerRepository) QueryCustomers(_ context.Context, filter *customer.QueryFilter, _ ...core.DBExecutor) ([]customer.Customer, error) {
	repo.db.customer.RLock()
	custs := make([]customer.Customer, 0, len(repo.db.customer.table))
	for _, c := range repo.db.customer.table {
		custs = append(custs, c)
	}
	repo.db.customer.RUnlock()

	var (
		search string
		billed map[string]bool
	)
	if filter != nil {
		search = strings.ToLower(filter.Search)
		billed = repo.billedCustomers(filter)
	}

	filtered := make([]customer.Customer, 0, len(custs))
	for _, c := range custs {
		c = repo.withUser(c)
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Email), search) &&
			!strings.Contains(c.PhoneNumber, search) {
			continue
		}
		if filter != nil && filter.CustomerType != "" && !strings.EqualFold(c.CustomerType, filter.CustomerType) {
			continue
		}
		c.BillStatus = customer.BillStatusNotSet
		if billed[c.ID] {
			c.BillStatus = customer.BillStatusSet
		}
		filtered = append(filtered, c)
	}

	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].CreatedAt.After(filtered[j].CreatedAt) })
	return filtered, nil
}

// billedCustomers returns the IDs of customers having a bill within the filter's bill period.
func (repo *customerRepository) billedCustomers(filter *customer.QueryFilter) map[string]bool {
	if filter.BillPeriod.IsZero() {
		return nil
	}
	from, to := core.MonthBounds(filter.BillPeriod)

	repo.db.bill.RLock()
	defer repo.db.bill.RUnlock()

	billed := make(map[string]bool)
	for _, b := range repo.db.bill.table {
		if !b.CreatedAt.Before(from) && b.CreatedAt.Before(to) {
			billed[b.CustomerID] = true
		}
	}
	return billed
}

func (repo *customerRepository) GetCustomer(_ context.Context, filter customer.GetFilter, _ ...core.DBExecutor) (customer.Customer, error) {
	repo.db.customer.RLock()
	var (
		cust  customer.Customer
		found bool
	)
	if filter.ID != "" {
		cust, found = repo.db.customer.table[filter.ID]
	} else if filter.UserID != "" {
		for _, c := range repo.db.customer.table {
			if c.UserID == filter.UserID {
				cust, found = c, true
				break
			}
		}
	}
	repo.db.customer.RUnlock()

	if !found {
		return customer.Customer{}, customer.ErrNotFound
	}
	return repo.withUser(cust), nil
}

func (repo *customerRepository) UpdateCustomer(_ context.Context, c customer.Customer, _ ...core.DBExecutor) (customer.Customer, error) {
	repo.db.customer.Lock()
	if _, ok := repo.db.customer.table[c.ID]; !ok {
		repo.db.customer.Unlock()
		return customer.Customer{}, customer.ErrNotFound
	}
	repo.db.customer.table[c.ID] = c
	repo.db.customer.Unlock()
	return repo.withUser(c), nil
}

func (repo *customerRepository) DeleteCustomer(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.customer.Lock()
	defer repo.db.customer.Unlock()

	if _, ok := repo.db.customer.table[id]; !ok {
		return customer.ErrNotFound
	}
	delete(repo.db.customer.table, id)

	// readings & bills go with their customer
	repo.db.bill.Lock()
	for bID, b := range repo.db.bill.table {
		if b.CustomerID == id {
			delete(repo.db.bill.table, bID)
		}
	}
	repo.db.bill.Unlock()
	repo.db.reading.Lock()
	for rID, r := range repo.db.reading.table {
		if r.CustomerID == id {
			delete(repo.db.reading.table, rID)
		}
	}
	repo.db.reading.Unlock()
	return nil
}
