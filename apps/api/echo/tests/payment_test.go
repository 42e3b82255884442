package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/smartbill/apps/api/echo"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/notification"
	"github.com/trezcool/smartbill/core/payment"
	"github.com/trezcool/smartbill/core/user"
	"github.com/trezcool/smartbill/tests"
)

func postWebhook(body []byte, signature string) int {
	req, rec := newRequest(http.MethodPost, "/api/payments/webhook", body)
	if signature != "" {
		req.Header.Set("Chapa-Signature", signature)
	}
	app.ServeHTTP(rec, req)
	return rec.Code
}

func Test_paymentApi(t *testing.T) {
	testutil.ResetDB(t, db)
	mailSvc.Reset()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.et", "", user.RoleAdmin, true)
	reader := testutil.CreateUser(t, usrRepo, "Reader", "reader@test.et", "", user.RoleMeterReader, true)
	cust1, custUsr1 := testutil.CreateCustomer(t, usrRepo, custRepo, "Almaz Kebede", "almaz@test.et", "", "Residential")
	cust2, custUsr2 := testutil.CreateCustomer(t, usrRepo, custRepo, "Bekele", "bekele@test.et", "", "Residential")
	trf := testutil.CreateTariff(t, trfRepo, "Residential", decimal.RequireFromString("2.5"))

	now := time.Now().UTC()
	rdg1 := testutil.CreateReading(t, rdgRepo, reader.ID, cust1.ID, decimal.NewFromInt(120), now)
	rdg2 := testutil.CreateReading(t, rdgRepo, reader.ID, cust2.ID, decimal.NewFromInt(40), now)
	bill1 := testutil.CreateBill(t, billRepo, cust1, rdg1, trf, billing.StatusUnpaid, now)
	bill2 := testutil.CreateBill(t, billRepo, cust2, rdg2, trf, billing.StatusOverdue, now.AddDate(0, -1, 0))
	paidBill := testutil.CreateBill(t, billRepo, cust1, rdg1, trf, billing.StatusPaid, now.AddDate(0, -2, 0))

	adminToken := getToken(t, admin)
	cust1Token := getToken(t, custUsr1)
	cust2Token := getToken(t, custUsr2)

	body := func(billID string) []byte {
		return []byte(fmt.Sprintf(`{"bill_id": %q}`, billID))
	}

	tests := []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/api/payments", body: body(bill1.ID), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "no payments yet", method: http.MethodGet, path: "/api/payments", token: cust1Token, wantData: marchallList(t)},
		{
			name: "initiate: bill required", method: http.MethodPost, path: "/api/payments", token: cust1Token, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"bill_id": "this field is required"}),
		},
		{name: "initiate: others' bill", method: http.MethodPost, path: "/api/payments", token: cust1Token, body: body(bill2.ID), wantCode: http.StatusNotFound},
		{
			name: "initiate: bill already paid", method: http.MethodPost, path: "/api/payments", token: cust1Token, body: body(paidBill.ID),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: payment.ErrBillSettled.Error()}),
		},
		{
			name: "initiate: amount too low", method: http.MethodPost, path: "/api/payments", token: cust1Token,
			body: []byte(fmt.Sprintf(`{"bill_id": %q, "amount": "0.5"}`, bill1.ID)), wantCode: http.StatusBadRequest,
		},
		{
			name: "verify: tx_ref required", method: http.MethodPost, path: "/api/payments/verify", token: cust1Token, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"tx_ref": "this field is required"}),
		},
		{name: "verify: unknown tx_ref", method: http.MethodPost, path: "/api/payments/verify", token: cust1Token, body: []byte(`{"tx_ref": "TX_nope"}`), wantCode: http.StatusNotFound},
		{name: "callback: tx_ref required", method: http.MethodGet, path: "/api/payments/callback", wantCode: http.StatusBadRequest},
		{name: "webhook: unsigned", method: http.MethodPost, path: "/api/payments/webhook", body: []byte(`{"tx_ref": "TX_nope"}`), wantCode: http.StatusUnauthorized},
	}
	runHTTPTests(t, tests)

	var pmt payment.Payment
	t.Run("initiate", func(t *testing.T) {
		rec := serve(http.MethodPost, "/api/payments", cust1Token, body(bill1.ID))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &pmt)

		assert.Equal(t, bill1.ID, pmt.BillID)
		assert.Equal(t, custUsr1.ID, pmt.PaidBy)
		assert.Equal(t, payment.StatusPending, pmt.Status)
		assert.True(t, bill1.Amount.Equal(pmt.Amount))
		assert.Equal(t, conf.DefaultCurrency, pmt.Currency)
		assert.Equal(t, "Almaz", pmt.FirstName)
		assert.Equal(t, "Kebede", pmt.LastName)
		assert.Equal(t, custUsr1.Email, pmt.Email)
		assert.Equal(t, "https://checkout.test/pay/"+pmt.TxRef, pmt.CheckoutURL)

		req, ok := gateway.Checkout(pmt.TxRef)
		require.True(t, ok)
		assert.Equal(t, conf.Chapa.CallbackURL, req.CallbackURL)

		var bill billing.Bill
		decode(t, serve(http.MethodGet, "/api/bills/"+bill1.ID, cust1Token), &bill)
		assert.Equal(t, billing.StatusUnpaid, bill.Status, "bills are settled on verification only")
	})

	verifyBody := []byte(fmt.Sprintf(`{"tx_ref": %q}`, pmt.TxRef))

	t.Run("verify: others' payment", func(t *testing.T) {
		rec := serve(http.MethodPost, "/api/payments/verify", cust2Token, verifyBody)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("verify: still pending", func(t *testing.T) {
		var got payment.Payment
		rec := serve(http.MethodPost, "/api/payments/verify", cust1Token, verifyBody)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &got)
		assert.Equal(t, payment.StatusPending, got.Status)
	})

	t.Run("callback: pending", func(t *testing.T) {
		var resp CallbackResponse
		rec := serve(http.MethodGet, "/api/payments/callback?trx_ref="+pmt.TxRef, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &resp)
		assert.Equal(t, "Payment pending", resp.Message)
		assert.Equal(t, conf.FrontendBaseURL+"/payment-pending", resp.RedirectURL)
	})

	t.Run("callback: success", func(t *testing.T) {
		gateway.Complete(pmt.TxRef)

		var resp CallbackResponse
		rec := serve(http.MethodGet, "/api/payments/callback?tx_ref="+pmt.TxRef, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &resp)
		assert.Equal(t, "Payment successful", resp.Message)
		assert.Equal(t, conf.FrontendBaseURL+"/payment-success", resp.RedirectURL)
		assert.Equal(t, payment.StatusSuccess, resp.Payment.Status)
		assert.Equal(t, "REF-"+pmt.TxRef, resp.Payment.GatewayRef)

		var bill billing.Bill
		decode(t, serve(http.MethodGet, "/api/bills/"+bill1.ID, cust1Token), &bill)
		assert.Equal(t, billing.StatusPaid, bill.Status)

		msg, ok := mailSvc.Last()
		require.True(t, ok)
		assert.Equal(t, "payment_received", msg.TemplateName)
		assert.Equal(t, custUsr1.Email, msg.To[0].Address)
	})

	t.Run("verify is idempotent", func(t *testing.T) {
		var got payment.Payment
		rec := serve(http.MethodPost, "/api/payments/verify", adminToken, verifyBody)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &got)
		assert.Equal(t, payment.StatusSuccess, got.Status)

		var notifs []notification.Notification
		decode(t, serve(http.MethodGet, "/api/notifications/mine", cust1Token), &notifs)
		if assert.Len(t, notifs, 1, "the payer is notified once") {
			assert.Equal(t, notification.TypePayment, notifs[0].Type)
		}
	})

	t.Run("cannot pay twice", func(t *testing.T) {
		rec := serve(http.MethodPost, "/api/payments", cust1Token, body(bill1.ID))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	var failed payment.Payment
	t.Run("webhook", func(t *testing.T) {
		rec := serve(http.MethodPost, "/api/payments", cust2Token, []byte(fmt.Sprintf(`{"bill_id": %q, "amount": "50"}`, bill2.ID)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &failed)
		assert.True(t, decimal.NewFromInt(50).Equal(failed.Amount))
		gateway.Fail(failed.TxRef)

		event := []byte(fmt.Sprintf(`{"tx_ref": %q, "status": "failed"}`, failed.TxRef))
		assert.Equal(t, http.StatusUnauthorized, postWebhook(event, payment.Sign(event, "wrong secret")))
		malformed := []byte(`{"tx_ref": `)
		assert.Equal(t, http.StatusBadRequest, postWebhook(malformed, payment.Sign(malformed, webhookSecret)))
		assert.Equal(t, http.StatusOK, postWebhook(event, payment.Sign(event, webhookSecret)))

		var got payment.Payment
		rec = serve(http.MethodGet, "/api/payments/"+failed.ID, cust2Token)
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &got)
		assert.Equal(t, payment.StatusFailed, got.Status)

		var bill billing.Bill
		decode(t, serve(http.MethodGet, "/api/bills/"+bill2.ID, cust2Token), &bill)
		assert.Equal(t, billing.StatusOverdue, bill.Status)
	})

	t.Run("gateway down", func(t *testing.T) {
		gateway.InitErr = errors.New("connection refused")
		defer func() { gateway.InitErr = nil }()

		rec := serve(http.MethodPost, "/api/payments", cust2Token, body(bill2.ID))
		assert.Equal(t, http.StatusBadGateway, rec.Code)

		var payments []payment.Payment
		decode(t, serve(http.MethodGet, "/api/payments?status=failed", cust2Token), &payments)
		assert.Len(t, payments, 2)
	})

	t.Run("listing", func(t *testing.T) {
		var payments []payment.Payment
		decode(t, serve(http.MethodGet, "/api/payments", cust1Token), &payments)
		if assert.Len(t, payments, 1) {
			assert.Equal(t, pmt.ID, payments[0].ID)
		}

		decode(t, serve(http.MethodGet, "/api/payments", adminToken), &payments)
		assert.Len(t, payments, 3)

		rec := serve(http.MethodGet, "/api/payments/"+failed.ID, cust1Token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
