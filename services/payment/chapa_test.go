package paymentsvc

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/payment"
	logsvc "github.com/trezcool/smartbill/services/logger"
)

func newTestChapa(t *testing.T, handler http.HandlerFunc) *Chapa {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := logsvc.NewRollbarLogger(log.New(new(strings.Builder), "", 0), &core.Config{TestMode: true})
	return NewChapa(core.ChapaConfig{
		BaseURL:          srv.URL,
		SecretKey:        "CHASECK_TEST-123",
		Timeout:          time.Second,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	}, logger)
}

func TestChapa_Initialize(t *testing.T) {
	var got chapaInitRequest
	chapa := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, initializePath, r.URL.Path)
		assert.Equal(t, "Bearer CHASECK_TEST-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":"Hosted Link","status":"success","data":{"checkout_url":"https://checkout.chapa.co/checkout/payment/abc"}}`))
	})

	res, err := chapa.Initialize(context.Background(), payment.CheckoutRequest{
		TxRef:     "TX_1",
		Amount:    decimal.RequireFromString("120.5"),
		Currency:  "ETB",
		Email:     "abebe@test.et",
		FirstName: "Abebe",
		Title:     "Electric bill",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.chapa.co/checkout/payment/abc", res.CheckoutURL)
	assert.Equal(t, "120.50", got.Amount)
	assert.Equal(t, "TX_1", got.TxRef)
	assert.Equal(t, "Electric bill", got.Customization.Title)
}

func TestChapa_Initialize_rejected(t *testing.T) {
	chapa := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":{"email":["The email must be a valid email address."]},"status":"failed","data":null}`))
	})

	for i := 0; i < 3; i++ { // rejections must not open the circuit
		_, err := chapa.Initialize(context.Background(), payment.CheckoutRequest{TxRef: "TX_1", Amount: decimal.NewFromInt(10)})
		require.Error(t, err)
		apiErr, ok := errors.Cause(err).(apiError)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, "valid email")
	}
}

func TestChapa_Verify(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus string
	}{
		{
			name:       "success",
			body:       `{"status":"success","data":{"tx_ref":"TX_1","status":"success","reference":"AP123","amount":120.5,"currency":"ETB"}}`,
			wantStatus: payment.StatusSuccess,
		},
		{
			name:       "pending",
			body:       `{"status":"success","data":{"tx_ref":"TX_1","status":"pending","amount":"120.50","currency":"ETB"}}`,
			wantStatus: payment.StatusPending,
		},
		{
			name:       "failed",
			body:       `{"status":"success","data":{"tx_ref":"TX_1","status":"failed","amount":"120.50","currency":"ETB"}}`,
			wantStatus: payment.StatusFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chapa := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, verifyPath+"TX_1", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			})
			v, err := chapa.Verify(context.Background(), "TX_1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, v.Status)
			assert.Equal(t, "TX_1", v.TxRef)
			assert.True(t, decimal.RequireFromString("120.5").Equal(v.Amount))
		})
	}
}

func TestChapa_circuitBreaker(t *testing.T) {
	var calls int
	chapa := newTestChapa(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 2; i++ {
		_, err := chapa.Verify(context.Background(), "TX_1")
		require.Error(t, err)
		assert.NotEqual(t, ErrCircuitOpen, errors.Cause(err))
	}

	_, err := chapa.Verify(context.Background(), "TX_1")
	assert.Equal(t, ErrCircuitOpen, errors.Cause(err))
	assert.Equal(t, 2, calls)
}

func TestFake(t *testing.T) {
	ctx := context.Background()
	fake := NewFake()

	res, err := fake.Initialize(ctx, payment.CheckoutRequest{TxRef: "TX_1", Amount: decimal.NewFromInt(50), Currency: "ETB"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/pay/TX_1", res.CheckoutURL)

	v, err := fake.Verify(ctx, "TX_1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, v.Status)

	fake.Complete("TX_1")
	v, err = fake.Verify(ctx, "TX_1")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSuccess, v.Status)
	assert.Equal(t, "REF-TX_1", v.Reference)

	_, err = fake.Verify(ctx, "TX_unknown")
	assert.Error(t, err)
}
