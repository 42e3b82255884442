package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/customer"
	"github.com/trezcool/smartbill/core/reading"
	"github.com/trezcool/smartbill/core/tariff"
	"github.com/trezcool/smartbill/core/user"
	"github.com/trezcool/smartbill/storage/database/dummy"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCustomer creates an active customer account along with its profile.
func CreateCustomer(
	t *testing.T,
	usrRepo user.Repository,
	repo customer.Repository,
	name, email, pwd, customerType string,
) (customer.Customer, user.User) {
	usr := CreateUser(t, usrRepo, name, email, pwd, user.RoleCustomer, true)
	cust, err := repo.CreateCustomer(context.Background(), customer.Customer{
		UserID:       usr.ID,
		CustomerType: customerType,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
	})
	if err != nil {
		t.Fatalf("CreateCustomer() failed: %v", err)
	}
	return cust, usr
}

func CreateTariff(t *testing.T, repo tariff.Repository, name string, price decimal.Decimal) tariff.Tariff {
	now := time.Now().UTC()
	trf, err := repo.CreateTariff(context.Background(), tariff.Tariff{
		Name:          name,
		UnitMin:       0,
		UnitMax:       1000,
		Price:         price,
		EffectiveDate: now.Truncate(24 * time.Hour),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateTariff() failed: %v", err)
	}
	return trf
}

func CreateReading(
	t *testing.T,
	repo reading.Repository,
	readerID, customerID string,
	amount decimal.Decimal,
	date time.Time,
) reading.Reading {
	now := time.Now().UTC()
	rdg, err := repo.CreateReading(context.Background(), reading.Reading{
		ReaderID:    readerID,
		CustomerID:  customerID,
		Amount:      amount,
		ReadingType: "monthly",
		ReadingDate: date.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateReading() failed: %v", err)
	}
	return rdg
}

// CreateBill stores a bill as is; amounts are not computed.
func CreateBill(
	t *testing.T,
	repo billing.Repository,
	cust customer.Customer,
	rdg reading.Reading,
	trf tariff.Tariff,
	status string,
	createdAt time.Time,
) billing.Bill {
	bill, err := repo.CreateBill(context.Background(), billing.Bill{
		CustomerID: cust.ID,
		ReadingID:  rdg.ID,
		TariffID:   trf.ID,
		Amount:     billing.ComputeAmount(rdg, trf),
		Status:     status,
		DueDate:    billing.DueDate(createdAt).UTC(),
		CreatedAt:  createdAt.UTC(),
		UpdatedAt:  createdAt.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateBill() failed: %v", err)
	}
	return bill
}

// ResetDB empties the in-memory database between tests.
func ResetDB(t *testing.T, db *dummydb.DB) {
	t.Helper()
	db.Reset()
}
