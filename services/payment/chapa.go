package paymentsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/payment"
)

const (
	initializePath = "/v1/transaction/initialize"
	verifyPath     = "/v1/transaction/verify/"
)

var ErrCircuitOpen = errors.New("chapa is unavailable, try again later")

type (
	// Chapa talks to the Chapa hosted checkout API.
	// Calls go through a circuit breaker which opens after too many consecutive failures.
	Chapa struct {
		baseURL   string
		secretKey string
		client    *http.Client
		breaker   *gobreaker.CircuitBreaker
		logger    core.Logger
	}

	chapaCustomization struct {
		Title       string `json:"title,omitempty"`
		Description string `json:"description,omitempty"`
	}

	chapaInitRequest struct {
		Amount        string             `json:"amount"`
		Currency      string             `json:"currency"`
		Email         string             `json:"email,omitempty"`
		FirstName     string             `json:"first_name,omitempty"`
		LastName      string             `json:"last_name,omitempty"`
		PhoneNumber   string             `json:"phone_number,omitempty"`
		TxRef         string             `json:"tx_ref"`
		CallbackURL   string             `json:"callback_url,omitempty"`
		ReturnURL     string             `json:"return_url,omitempty"`
		Customization chapaCustomization `json:"customization"`
	}

	chapaResponse struct {
		Message json.RawMessage `json:"message"`
		Status  string          `json:"status"`
		Data    json.RawMessage `json:"data"`

		statusCode int
	}

	chapaCheckout struct {
		CheckoutURL string `json:"checkout_url"`
	}

	chapaTransaction struct {
		TxRef     string          `json:"tx_ref"`
		Status    string          `json:"status"`
		Reference string          `json:"reference"`
		Amount    decimal.Decimal `json:"amount"`
		Currency  string          `json:"currency"`
	}

	// apiError is a non 2xx answer from Chapa.
	apiError struct {
		StatusCode int
		Message    string
	}
)

var _ payment.Gateway = (*Chapa)(nil)

func (err apiError) Error() string {
	return fmt.Sprintf("chapa: status %d: %s", err.StatusCode, err.Message)
}

func NewChapa(conf core.ChapaConfig, logger core.Logger) *Chapa {
	threshold := conf.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return &Chapa{
		baseURL:   conf.BaseURL,
		secretKey: conf.SecretKey,
		client:    &http.Client{Timeout: conf.Timeout},
		logger:    logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "chapa",
			Timeout: conf.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn(fmt.Sprintf("circuit breaker %s: %s -> %s", name, from, to))
			},
		}),
	}
}

func (c *Chapa) Initialize(ctx context.Context, req payment.CheckoutRequest) (payment.CheckoutResponse, error) {
	body := chapaInitRequest{
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.Phone,
		TxRef:       req.TxRef,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
		Customization: chapaCustomization{
			Title:       req.Title,
			Description: req.Description,
		},
	}

	var checkout chapaCheckout
	if err := c.do(ctx, http.MethodPost, initializePath, body, &checkout); err != nil {
		return payment.CheckoutResponse{}, errors.Wrap(err, "initializing transaction")
	}
	if checkout.CheckoutURL == "" {
		return payment.CheckoutResponse{}, errors.New("chapa: no checkout url in response")
	}
	return payment.CheckoutResponse{CheckoutURL: checkout.CheckoutURL}, nil
}

func (c *Chapa) Verify(ctx context.Context, txRef string) (payment.Verification, error) {
	var tx chapaTransaction
	if err := c.do(ctx, http.MethodGet, verifyPath+url.PathEscape(txRef), nil, &tx); err != nil {
		return payment.Verification{}, errors.Wrap(err, "verifying transaction")
	}

	v := payment.Verification{
		TxRef:     tx.TxRef,
		Reference: tx.Reference,
		Amount:    tx.Amount,
		Currency:  tx.Currency,
	}
	if v.TxRef == "" {
		v.TxRef = txRef
	}
	switch tx.Status {
	case "success":
		v.Status = payment.StatusSuccess
	case "failed", "cancelled":
		v.Status = payment.StatusFailed
	default:
		v.Status = payment.StatusPending
	}
	return v, nil
}

// do sends a request to Chapa & decodes the `data` field of its answer into dest.
// Only transport errors & 5xx answers count as breaker failures.
func (c *Chapa) do(ctx context.Context, method, path string, payload, dest interface{}) error {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, path, payload)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return ErrCircuitOpen
		}
		return err
	}

	resp := res.(chapaResponse)
	if resp.Status != "success" {
		return apiError{StatusCode: resp.statusCode, Message: messageText(resp.Message)}
	}
	if dest == nil || len(resp.Data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(resp.Data, dest), "decoding chapa data")
}

func (c *Chapa) roundTrip(ctx context.Context, method, path string, payload interface{}) (chapaResponse, error) {
	var body io.Reader
	if payload != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return chapaResponse{}, errors.Wrap(err, "encoding chapa request")
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return chapaResponse{}, errors.Wrap(err, "building chapa request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	httpRes, err := c.client.Do(req)
	if err != nil {
		return chapaResponse{}, errors.Wrap(err, "calling chapa")
	}
	defer httpRes.Body.Close()

	var resp chapaResponse
	decodeErr := json.NewDecoder(io.LimitReader(httpRes.Body, 1<<20)).Decode(&resp)

	c.logger.Debug(fmt.Sprintf("chapa %s %s: %d (%s)", method, path, httpRes.StatusCode, time.Since(start)))

	resp.statusCode = httpRes.StatusCode

	switch {
	case httpRes.StatusCode >= http.StatusInternalServerError:
		return chapaResponse{}, apiError{StatusCode: httpRes.StatusCode, Message: messageText(resp.Message)}
	case httpRes.StatusCode >= http.StatusBadRequest:
		// the breaker sees a success; do() reports the rejection
		resp.Status = "failed"
		if len(resp.Message) == 0 {
			resp.Message = json.RawMessage(fmt.Sprintf("%q", http.StatusText(httpRes.StatusCode)))
		}
		return resp, nil
	case decodeErr != nil:
		return chapaResponse{}, errors.Wrap(decodeErr, "decoding chapa response")
	}
	return resp, nil
}

// messageText flattens Chapa's `message` field, which is either a string or an object of field errors.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown error"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
