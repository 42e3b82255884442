// Package dummydb provides in-memory repositories, used by tests & by debug runs without a database.
package dummydb

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/complaint"
	"github.com/trezcool/smartbill/core/contact"
	"github.com/trezcool/smartbill/core/customer"
	"github.com/trezcool/smartbill/core/notification"
	"github.com/trezcool/smartbill/core/payment"
	"github.com/trezcool/smartbill/core/reading"
	"github.com/trezcool/smartbill/core/report"
	"github.com/trezcool/smartbill/core/tariff"
	"github.com/trezcool/smartbill/core/user"
)

type (
	DB struct {
		user         *userTable
		customer     *customerTable
		tariff       *tariffTable
		reading      *readingTable
		bill         *billTable
		payment      *paymentTable
		complaint    *complaintTable
		report       *reportTable
		notification *notificationTable
		contact      *contactTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]user.User
	}
	customerTable struct {
		sync.RWMutex
		table map[string]customer.Customer
	}
	tariffTable struct {
		sync.RWMutex
		table map[string]tariff.Tariff
	}
	readingTable struct {
		sync.RWMutex
		table map[string]reading.Reading
	}
	billTable struct {
		sync.RWMutex
		table map[string]billing.Bill
	}
	paymentTable struct {
		sync.RWMutex
		table map[string]payment.Payment
	}
	complaintTable struct {
		sync.RWMutex
		table map[string]complaint.Complaint
	}
	reportTable struct {
		sync.RWMutex
		table map[string]report.Report
	}
	notificationTable struct {
		sync.RWMutex
		table map[string]notification.Notification
	}
	contactTable struct {
		sync.RWMutex
		table map[string]contact.Message
	}
)

func Open() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]user.User)},
		customer:     &customerTable{table: make(map[string]customer.Customer)},
		tariff:       &tariffTable{table: make(map[string]tariff.Tariff)},
		reading:      &readingTable{table: make(map[string]reading.Reading)},
		bill:         &billTable{table: make(map[string]billing.Bill)},
		payment:      &paymentTable{table: make(map[string]payment.Payment)},
		complaint:    &complaintTable{table: make(map[string]complaint.Complaint)},
		report:       &reportTable{table: make(map[string]report.Report)},
		notification: &notificationTable{table: make(map[string]notification.Notification)},
		contact:      &contactTable{table: make(map[string]contact.Message)},
	}
}

// billed tells whether any bill matches.
func (db *DB) billed(match func(b billing.Bill) bool) bool {
	db.bill.RLock()
	defer db.bill.RUnlock()

	for _, b := range db.bill.table {
		if match(b) {
			return true
		}
	}
	return false
}

// Reset empties every table.
func (db *DB) Reset() {
	fresh := Open()
	for _, mu := range []sync.Locker{
		&db.user.RWMutex, &db.customer.RWMutex, &db.tariff.RWMutex, &db.reading.RWMutex, &db.bill.RWMutex,
		&db.payment.RWMutex, &db.complaint.RWMutex, &db.report.RWMutex, &db.notification.RWMutex, &db.contact.RWMutex,
	} {
		mu.Lock()
		defer mu.Unlock()
	}
	db.user.table = fresh.user.table
	db.customer.table = fresh.customer.table
	db.tariff.table = fresh.tariff.table
	db.reading.table = fresh.reading.table
	db.bill.table = fresh.bill.table
	db.payment.table = fresh.payment.table
	db.complaint.table = fresh.complaint.table
	db.report.table = fresh.report.table
	db.notification.table = fresh.notification.table
	db.contact.table = fresh.contact.table
}

// Transactor runs fn straight away; in-memory writes are not rolled back.
type Transactor struct{}

var _ core.Transactor = Transactor{}

func (Transactor) InTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}

func newID() string {
	return uuid.New().String()
}

// userName returns the name of a user, "" if not found.
func (db *DB) userName(id string) string {
	db.user.RLock()
	defer db.user.RUnlock()
	return db.user.table[id].Name
}

// customerName returns the name of a customer, "" if not found.
func (db *DB) customerName(id string) string {
	db.customer.RLock()
	userID := db.customer.table[id].UserID
	db.customer.RUnlock()
	return db.userName(userID)
}
