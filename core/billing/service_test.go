package billing_test

import (
	"context"
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/customer"
	"github.com/trezcool/smartbill/core/notification"
	"github.com/trezcool/smartbill/core/reading"
	"github.com/trezcool/smartbill/core/tariff"
	"github.com/trezcool/smartbill/core/user"
	appfs "github.com/trezcool/smartbill/fs"
	emailsvc "github.com/trezcool/smartbill/services/email"
	logsvc "github.com/trezcool/smartbill/services/logger"
	dummydb "github.com/trezcool/smartbill/storage/database/dummy"
	testutil "github.com/trezcool/smartbill/tests"
)

type fixture struct {
	svc      billing.Service
	db       *dummydb.DB
	mailSvc  *emailsvc.Mock
	notifSvc notification.Service
	usrRepo  user.Repository
	custRepo customer.Repository
	trfRepo  tariff.Repository
	rdgRepo  reading.Repository
	billRepo billing.Repository
}

func setup(t *testing.T) fixture {
	conf := core.NewConfig()
	conf.DefaultCurrency = "ETB"
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	core.ParseEmailTemplates(appfs.FS, conf, logger)

	f := fixture{db: dummydb.Open(), mailSvc: emailsvc.NewMock(conf, logger)}
	f.usrRepo = dummydb.NewUserRepository(f.db)
	f.custRepo = dummydb.NewCustomerRepository(f.db)
	f.trfRepo = dummydb.NewTariffRepository(f.db)
	f.rdgRepo = dummydb.NewReadingRepository(f.db)
	f.billRepo = dummydb.NewBillRepository(f.db)

	tx := dummydb.Transactor{}
	usrSvc := user.NewService(f.usrRepo, f.mailSvc, logger, conf)
	custSvc := customer.NewService(tx, f.custRepo, f.usrRepo, usrSvc)
	f.notifSvc = notification.NewService(dummydb.NewNotificationRepository(f.db))
	f.svc = billing.NewService(
		tx, f.billRepo, custSvc,
		reading.NewService(f.rdgRepo, custSvc),
		tariff.NewService(f.trfRepo),
		f.notifSvc, f.mailSvc, logger, conf,
	)

	t.Cleanup(func() { billing.NowFunc = time.Now })
	return f
}

func TestComputeAmount(t *testing.T) {
	tests := []struct {
		amount string
		price  string
		want   string
	}{
		{amount: "120", price: "2.5", want: "300"},
		{amount: "0", price: "2.5", want: "0"},
		{amount: "10.333", price: "1.5", want: "15.5"},
		{amount: "1.005", price: "1", want: "1.01"},
	}
	for _, tt := range tests {
		t.Run(tt.amount+"x"+tt.price, func(t *testing.T) {
			got := billing.ComputeAmount(
				reading.Reading{Amount: decimal.RequireFromString(tt.amount)},
				tariff.Tariff{Price: decimal.RequireFromString(tt.price)},
			)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestDueDate(t *testing.T) {
	created := time.Date(2021, 3, 20, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2021, 4, 4, 9, 30, 0, 0, time.UTC), billing.DueDate(created))
}

func Test_service_Generate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, f.usrRepo, "Admin", "admin@test.et", "", user.RoleAdmin, true)
	cust, custUsr := testutil.CreateCustomer(t, f.usrRepo, f.custRepo, "Almaz", "almaz@test.et", "", "Residential")
	residential := testutil.CreateTariff(t, f.trfRepo, "Residential", decimal.RequireFromString("2.5"))
	special := testutil.CreateTariff(t, f.trfRepo, "Special", decimal.NewFromInt(1))

	march := time.Date(2021, 3, 10, 8, 0, 0, 0, time.UTC)
	testutil.CreateReading(t, f.rdgRepo, admin.ID, cust.ID, decimal.NewFromInt(80), march.AddDate(0, -1, 0))
	rdg := testutil.CreateReading(t, f.rdgRepo, admin.ID, cust.ID, decimal.NewFromInt(120), march)

	billing.NowFunc = func() time.Time { return march }
	bill, err := f.svc.Generate(ctx, billing.NewBill{CustomerID: cust.ID}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, rdg.ID, bill.ReadingID)
	assert.Equal(t, residential.ID, bill.TariffID)
	assert.True(t, decimal.NewFromInt(300).Equal(bill.Amount))
	assert.Equal(t, billing.StatusUnpaid, bill.Status)
	assert.Equal(t, march, bill.CreatedAt)
	assert.Equal(t, march.Add(billing.DueDelta), bill.DueDate)
	assert.Equal(t, custUsr.Name, bill.CustomerName)

	notifs, err := f.notifSvc.QueryByRecipient(ctx, custUsr.ID)
	require.NoError(t, err)
	if assert.Len(t, notifs, 1) {
		assert.Equal(t, "Your bill for March 2021 is ready: 300.00 ETB, due on 2021-03-25.", notifs[0].Message)
	}
	if msg, ok := f.mailSvc.Last(); assert.True(t, ok) {
		assert.Equal(t, "bill_generated", msg.TemplateName)
	}

	t.Run("once a month", func(t *testing.T) {
		billing.NowFunc = func() time.Time { return march.AddDate(0, 0, 15) }
		_, err := f.svc.Generate(ctx, billing.NewBill{CustomerID: cust.ID}, admin.ID)
		assert.Equal(t, billing.ErrAlreadyBilled, err)
	})

	t.Run("next month with explicit tariff", func(t *testing.T) {
		billing.NowFunc = func() time.Time { return march.AddDate(0, 1, 0) }
		bill, err := f.svc.Generate(ctx, billing.NewBill{CustomerID: cust.ID, TariffID: special.ID}, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, special.ID, bill.TariffID)
		assert.True(t, decimal.NewFromInt(120).Equal(bill.Amount))
	})

	t.Run("unknown tariff", func(t *testing.T) {
		billing.NowFunc = func() time.Time { return march.AddDate(0, 2, 0) }
		_, err := f.svc.Generate(ctx, billing.NewBill{CustomerID: cust.ID, TariffID: "3b241101-e2bb-4255-8caf-4136c566a962"}, admin.ID)
		vErr, ok := err.(*core.ValidationError)
		if assert.True(t, ok, "got %v", err) {
			assert.Equal(t, []core.FieldError{{Field: "tariff_id", Error: "tariff not found"}}, vErr.Fields)
		}
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := f.svc.Generate(ctx, billing.NewBill{CustomerID: "3b241101-e2bb-4255-8caf-4136c566a962"}, admin.ID)
		assert.True(t, core.IsNotFound(err))
	})
}

func Test_service_ReadingDetails(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reader := testutil.CreateUser(t, f.usrRepo, "Reader", "reader@test.et", "", user.RoleMeterReader, true)
	cust, _ := testutil.CreateCustomer(t, f.usrRepo, f.custRepo, "Almaz", "almaz@test.et", "", "Commercial")

	_, err := f.svc.ReadingDetails(ctx, cust.ID)
	assert.Equal(t, billing.ErrNoReadings, err)

	now := time.Now().UTC()
	old := testutil.CreateReading(t, f.rdgRepo, reader.ID, cust.ID, decimal.NewFromInt(10), now.AddDate(0, -1, 0))
	latest := testutil.CreateReading(t, f.rdgRepo, reader.ID, cust.ID, decimal.NewFromInt(20), now)

	details, err := f.svc.ReadingDetails(ctx, cust.ID)
	require.NoError(t, err)
	assert.Equal(t, cust.ID, details.Customer.ID)
	if assert.Len(t, details.Readings, 2) {
		assert.Equal(t, latest.ID, details.Readings[0].ID)
		assert.Equal(t, old.ID, details.Readings[1].ID)
	}
	assert.Nil(t, details.Tariff, "no tariff is named after the customer type")

	trf := testutil.CreateTariff(t, f.trfRepo, "Commercial", decimal.NewFromInt(4))
	details, err = f.svc.ReadingDetails(ctx, cust.ID)
	require.NoError(t, err)
	if assert.NotNil(t, details.Tariff) {
		assert.Equal(t, trf.ID, details.Tariff.ID)
	}
}

func Test_service_MarkPaid_MarkOverdue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	reader := testutil.CreateUser(t, f.usrRepo, "Reader", "reader@test.et", "", user.RoleMeterReader, true)
	cust, _ := testutil.CreateCustomer(t, f.usrRepo, f.custRepo, "Almaz", "almaz@test.et", "", "Residential")
	trf := testutil.CreateTariff(t, f.trfRepo, "Residential", decimal.NewFromInt(2))
	rdg := testutil.CreateReading(t, f.rdgRepo, reader.ID, cust.ID, decimal.NewFromInt(10), time.Now())

	now := time.Now().UTC()
	late := testutil.CreateBill(t, f.billRepo, cust, rdg, trf, billing.StatusUnpaid, now.Add(-billing.DueDelta-time.Hour))
	current := testutil.CreateBill(t, f.billRepo, cust, rdg, trf, billing.StatusUnpaid, now)

	count, err := f.svc.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	late, err = f.svc.GetByID(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusOverdue, late.Status)
	assert.True(t, late.IsPayable())

	paid, err := f.svc.MarkPaid(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, paid.Status)
	assert.False(t, paid.IsPayable())

	again, err := f.svc.MarkPaid(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, paid.UpdatedAt, again.UpdatedAt, "already paid bills are left untouched")

	count, err = f.svc.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	bills, err := f.svc.QueryByCustomer(ctx, cust.ID)
	require.NoError(t, err)
	if assert.Len(t, bills, 2) {
		assert.Equal(t, current.ID, bills[0].ID)
	}
}

type trackedTx struct {
	inTx bool
}

func (tx *trackedTx) InTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	tx.inTx = true
	defer func() { tx.inTx = false }()
	return fn(nil)
}

// racyBillRepo only sees the concurrent bill once it tries to insert.
type racyBillRepo struct {
	billing.Repository
	tx            *trackedTx
	checkedInTx   bool
	concurrentHit bool
}

func (repo *racyBillRepo) BillExists(ctx context.Context, filter billing.QueryFilter, exec ...core.DBExecutor) (bool, error) {
	repo.checkedInTx = repo.tx.inTx
	return repo.Repository.BillExists(ctx, filter, exec...)
}

func (repo *racyBillRepo) CreateBill(ctx context.Context, b billing.Bill, exec ...core.DBExecutor) (billing.Bill, error) {
	if repo.concurrentHit {
		return billing.Bill{}, billing.ErrAlreadyBilled
	}
	return repo.Repository.CreateBill(ctx, b, exec...)
}

func Test_service_Generate_concurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
	tx := new(trackedTx)
	repo := &racyBillRepo{Repository: f.billRepo, tx: tx}
	custSvc := customer.NewService(tx, f.custRepo, f.usrRepo, user.NewService(f.usrRepo, f.mailSvc, logger, conf))
	svc := billing.NewService(
		tx, repo, custSvc,
		reading.NewService(f.rdgRepo, custSvc),
		tariff.NewService(f.trfRepo),
		f.notifSvc, f.mailSvc, logger, conf,
	)

	admin := testutil.CreateUser(t, f.usrRepo, "Admin", "admin@test.et", "", user.RoleAdmin, true)
	cust, _ := testutil.CreateCustomer(t, f.usrRepo, f.custRepo, "Almaz", "almaz@test.et", "", "Residential")
	testutil.CreateTariff(t, f.trfRepo, "Residential", decimal.NewFromInt(2))
	testutil.CreateReading(t, f.rdgRepo, admin.ID, cust.ID, decimal.NewFromInt(10), time.Now())

	_, err := svc.Generate(ctx, billing.NewBill{CustomerID: cust.ID}, admin.ID)
	require.NoError(t, err)
	assert.True(t, repo.checkedInTx, "the monthly check must share the insert transaction")

	// the check passes but the insert hits the monthly unique index
	other, _ := testutil.CreateCustomer(t, f.usrRepo, f.custRepo, "Kebede", "kebede@test.et", "", "Residential")
	testutil.CreateReading(t, f.rdgRepo, admin.ID, other.ID, decimal.NewFromInt(10), time.Now())
	repo.concurrentHit = true

	_, err = svc.Generate(ctx, billing.NewBill{CustomerID: other.ID}, admin.ID)
	assert.Equal(t, billing.ErrAlreadyBilled, err)
}
