package boiledrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/customer"
	"github.com/trezcool/smartbill/core/tariff"
	"github.com/trezcool/smartbill/core/user"
)

var userCols = []string{
	"id", "name", "email", "phone_number", "address", "image", "role", "is_active", "password_hash",
	"created_at", "updated_at", "last_login",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	}
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func TestUserRepository_CreateUser(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("inserted", func(t *testing.T) {
		mockDB, mock, done := newMock(t)
		defer done()

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
			WithArgs(anyArgs(12)...).
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(
				"0b4f2c1e-8f8a-4d52-9b8c-1f1e4a3b2c10", "Abebe Kebede", "abebe@test.et", "251911223344", "Bole", nil,
				user.RoleCustomer, true, []byte("hash"), now, now, nil,
			))

		repo := NewUserRepository(mockDB)
		usr, err := repo.CreateUser(ctx, user.User{
			Name:         "Abebe Kebede",
			Email:        "abebe@test.et",
			PhoneNumber:  "251911223344",
			Address:      "Bole",
			Role:         user.RoleCustomer,
			IsActive:     true,
			PasswordHash: []byte("hash"),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		require.NoError(t, err)
		assert.Equal(t, "0b4f2c1e-8f8a-4d52-9b8c-1f1e4a3b2c10", usr.ID)
		assert.Equal(t, "251911223344", usr.PhoneNumber)
		assert.Equal(t, "", usr.Image)
		assert.True(t, usr.LastLogin.IsZero())
	})

	t.Run("duplicate email", func(t *testing.T) {
		mockDB, mock, done := newMock(t)
		defer done()

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
			WithArgs(anyArgs(12)...).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

		_, err := NewUserRepository(mockDB).CreateUser(ctx, user.User{Email: "abebe@test.et"})
		assert.Equal(t, user.ErrEmailExists, err)
	})
}

func TestUserRepository_GetUser(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed id", func(t *testing.T) {
		mockDB, _, done := newMock(t)
		defer done()

		_, err := NewUserRepository(mockDB).GetUser(ctx, user.GetFilter{ID: "42"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		mockDB, mock, done := newMock(t)
		defer done()

		mock.ExpectQuery(`FROM "users" WHERE .*email = \$1.* LIMIT 1`).
			WithArgs("nobody@test.et").
			WillReturnRows(sqlmock.NewRows(userCols))

		_, err := NewUserRepository(mockDB).GetUser(ctx, user.GetFilter{Email: "nobody@test.et"})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestUserRepository_DeleteUsersByID(t *testing.T) {
	mockDB, mock, done := newMock(t)
	defer done()

	ids := []string{"0b4f2c1e-8f8a-4d52-9b8c-1f1e4a3b2c10", "7d9a4f7e-0d2b-4f0e-a5c3-2e1b6c8d9f01"}
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "users" WHERE "id" = ANY($1::uuid[])`)).
		WithArgs(pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	cnt, err := NewUserRepository(mockDB).DeleteUsersByID(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, 2, cnt)
}

func TestCustomerRepository_DeleteCustomer(t *testing.T) {
	mockDB, mock, done := newMock(t)
	defer done()

	id := "0b4f2c1e-8f8a-4d52-9b8c-1f1e4a3b2c10"
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "customers" WHERE "id" = $1`)).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewCustomerRepository(mockDB).DeleteCustomer(context.Background(), id)
	assert.Equal(t, customer.ErrNotFound, err)
}

func TestTariffRepository_CheckNameUniqueness(t *testing.T) {
	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		wantErr error
	}{
		{name: "unique", rows: sqlmock.NewRows([]string{"?column?"})},
		{name: "taken", rows: sqlmock.NewRows([]string{"?column?"}).AddRow(1), wantErr: tariff.ErrNameExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB, mock, done := newMock(t)
			defer done()

			mock.ExpectQuery(`SELECT 1 FROM "tariffs" WHERE .*LOWER\(tariff_name\) = LOWER\(\$1\).* LIMIT 1`).
				WithArgs("residential").
				WillReturnRows(tt.rows)

			err := NewTariffRepository(mockDB).CheckNameUniqueness(context.Background(), "residential", "")
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestBillRepository_UpdateBill(t *testing.T) {
	mockDB, mock, done := newMock(t)
	defer done()

	now := time.Now().UTC().Truncate(time.Second)
	bill := billing.Bill{
		ID:         "0b4f2c1e-8f8a-4d52-9b8c-1f1e4a3b2c10",
		CustomerID: "7d9a4f7e-0d2b-4f0e-a5c3-2e1b6c8d9f01",
		ReadingID:  "3c2b1a09-8f7e-4d6c-b5a4-938271605f4e",
		TariffID:   "5e4d3c2b-1a09-4f8e-9d7c-6b5a49382716",
		Amount:     decimal.RequireFromString("375.50"),
		Status:     billing.StatusPaid,
		DueDate:    now.Add(billing.DueDelta),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "bills" SET`)).
		WithArgs(bill.ID, bill.Amount, bill.Status, bill.DueDate, bill.UpdatedAt).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "customer_id", "generated_by", "reading_id", "tariff_id", "bill_amount", "status", "due_date", "created_at", "updated_at",
		}).AddRow(
			bill.ID, bill.CustomerID, nil, bill.ReadingID, bill.TariffID, "375.50", bill.Status, bill.DueDate, now, now,
		))

	got, err := NewBillRepository(mockDB).UpdateBill(context.Background(), bill)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, got.Status)
	assert.True(t, bill.Amount.Equal(got.Amount))
	assert.Equal(t, "", got.GeneratedBy)
}

func TestBillRepository_MarkOverdue(t *testing.T) {
	mockDB, mock, done := newMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "bills" SET "status" = $1`)).
		WithArgs(billing.StatusOverdue, billing.StatusUnpaid, now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	cnt, err := NewBillRepository(mockDB).MarkOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, cnt)
}
