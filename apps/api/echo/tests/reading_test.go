package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/reading"
	"github.com/trezcool/smartbill/core/user"
	"github.com/trezcool/smartbill/tests"
)

func Test_readingApi(t *testing.T) {
	testutil.ResetDB(t, db)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.et", "", user.RoleAdmin, true)
	reader1 := testutil.CreateUser(t, usrRepo, "Reader 1", "reader1@test.et", "", user.RoleMeterReader, true)
	reader2 := testutil.CreateUser(t, usrRepo, "Reader 2", "reader2@test.et", "", user.RoleMeterReader, true)
	cust1, custUsr := testutil.CreateCustomer(t, usrRepo, custRepo, "Almaz", "almaz@test.et", "", "Residential")
	cust2, _ := testutil.CreateCustomer(t, usrRepo, custRepo, "Bekele", "bekele@test.et", "", "Residential")

	now := time.Now().UTC()
	monthStart, _ := core.MonthBounds(now)
	lastMonth := monthStart.AddDate(0, -1, 10)
	rdg1 := testutil.CreateReading(t, rdgRepo, reader1.ID, cust1.ID, decimal.NewFromInt(120), lastMonth)
	rdg2 := testutil.CreateReading(t, rdgRepo, reader2.ID, cust2.ID, decimal.NewFromInt(80), lastMonth.Add(time.Hour))

	adminToken := getToken(t, admin)
	reader1Token := getToken(t, reader1)

	body := func(customerID string, amount string, date time.Time) []byte {
		return []byte(fmt.Sprintf(
			`{"customer_id": %q, "amount": %q, "reading_type": "monthly", "reading_date": %q}`,
			customerID, amount, date.Format(time.RFC3339),
		))
	}

	tests := []httpTest{
		{name: "auth required", method: http.MethodGet, path: "/api/readings", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "staff only", method: http.MethodGet, path: "/api/readings", token: getToken(t, custUsr), wantCode: http.StatusForbidden},
		{name: "admins see all", method: http.MethodGet, path: "/api/readings", token: adminToken, wantData: marchallList(t, rdg2, rdg1)},
		{name: "filter by customer", method: http.MethodGet, path: "/api/readings?customer_id=" + cust1.ID, token: adminToken, wantData: marchallList(t, rdg1)},
		{name: "readers see their own", method: http.MethodGet, path: "/api/readings", token: reader1Token, wantData: marchallList(t, rdg1)},
		{name: "readers cannot see others'", method: http.MethodGet, path: "/api/readings/" + rdg2.ID, token: reader1Token, wantCode: http.StatusNotFound},
		{name: "create: readers only", method: http.MethodPost, path: "/api/readings", token: adminToken, body: body(cust1.ID, "10", now), wantCode: http.StatusForbidden},
		{
			name: "create: unknown customer", method: http.MethodPost, path: "/api/readings", token: reader1Token, wantCode: http.StatusBadRequest,
			body: body("8a4a2b36-6c61-4b0b-9e1c-5e0f5d6a1f00", "10", now), wantData: marchallObj(t, map[string]string{"customer_id": "customer not found"}),
		},
		{
			name: "create: negative amount", method: http.MethodPost, path: "/api/readings", token: reader1Token,
			body: body(cust1.ID, "-3", now), wantCode: http.StatusBadRequest,
		},
		{
			name: "create: month already read", method: http.MethodPost, path: "/api/readings", token: reader1Token,
			body: body(cust1.ID, "10", lastMonth), wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: reading.ErrAlreadyRead.Error()}),
		},
		{name: "update: readers only", method: http.MethodPut, path: "/api/readings/" + rdg1.ID, token: adminToken, body: []byte(`{"amount": "1"}`), wantCode: http.StatusForbidden},
	}
	runHTTPTests(t, tests)

	var created reading.Reading
	t.Run("create", func(t *testing.T) {
		rec := serve(http.MethodPost, "/api/readings", reader1Token, body(cust1.ID, "150.5", now))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &created)
		assert.Equal(t, reader1.ID, created.ReaderID)
		assert.Equal(t, cust1.ID, created.CustomerID)
		assert.True(t, decimal.RequireFromString("150.5").Equal(created.Amount))
	})

	t.Run("retrieve with names", func(t *testing.T) {
		rec := serve(http.MethodGet, "/api/readings/"+created.ID, adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var got reading.Reading
		decode(t, rec, &got)
		assert.Equal(t, "Reader 1", got.ReaderName)
		assert.Equal(t, "Almaz", got.CustomerName)
	})

	t.Run("update", func(t *testing.T) {
		rec := serve(http.MethodPut, "/api/readings/"+created.ID, reader1Token, []byte(`{"amount": "160"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got reading.Reading
		decode(t, rec, &got)
		assert.True(t, decimal.NewFromInt(160).Equal(got.Amount))

		// moving it onto an already read month
		rec = serve(http.MethodPut, "/api/readings/"+created.ID, reader1Token, []byte(fmt.Sprintf(`{"reading_date": %q}`, lastMonth.Format(time.RFC3339))))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("delete: billed", func(t *testing.T) {
		trf := testutil.CreateTariff(t, trfRepo, "Residential", decimal.NewFromInt(2))
		testutil.CreateBill(t, billRepo, cust1, rdg1, trf, billing.StatusUnpaid, lastMonth)

		rec := serve(http.MethodDelete, "/api/readings/"+rdg1.ID, reader1Token)
		checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: reading.ErrBilled.Error()})}, rec)
		rec = serve(http.MethodGet, "/api/readings/"+rdg1.ID, reader1Token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := serve(http.MethodDelete, "/api/readings/"+created.ID, reader1Token)
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = serve(http.MethodGet, "/api/readings/"+created.ID, reader1Token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
