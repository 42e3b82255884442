package paymentsvc

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core/payment"
)

// Fake is an in-memory payment.Gateway used in development & tests.
// Transactions stay pending until Complete or Fail is called.
type Fake struct {
	mu           sync.Mutex
	checkouts    map[string]payment.CheckoutRequest
	transactions map[string]payment.Verification

	// InitErr & VerifyErr, when set, are returned by the next calls.
	InitErr   error
	VerifyErr error
}

var _ payment.Gateway = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		checkouts:    make(map[string]payment.CheckoutRequest),
		transactions: make(map[string]payment.Verification),
	}
}

func (f *Fake) Initialize(_ context.Context, req payment.CheckoutRequest) (payment.CheckoutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InitErr != nil {
		return payment.CheckoutResponse{}, f.InitErr
	}
	f.checkouts[req.TxRef] = req
	f.transactions[req.TxRef] = payment.Verification{
		TxRef:    req.TxRef,
		Status:   payment.StatusPending,
		Amount:   req.Amount,
		Currency: req.Currency,
	}
	return payment.CheckoutResponse{CheckoutURL: "https://checkout.test/pay/" + req.TxRef}, nil
}

func (f *Fake) Verify(_ context.Context, txRef string) (payment.Verification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.VerifyErr != nil {
		return payment.Verification{}, f.VerifyErr
	}
	v, ok := f.transactions[txRef]
	if !ok {
		return payment.Verification{}, errors.Errorf("unknown transaction %q", txRef)
	}
	return v, nil
}

// Complete marks a transaction as paid in full.
func (f *Fake) Complete(txRef string) {
	f.settle(txRef, payment.StatusSuccess)
}

func (f *Fake) Fail(txRef string) {
	f.settle(txRef, payment.StatusFailed)
}

func (f *Fake) settle(txRef, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.transactions[txRef]; ok {
		v.Status = status
		v.Reference = "REF-" + txRef
		f.transactions[txRef] = v
	}
}

// SetTransaction overrides the gateway's view of a transaction.
func (f *Fake) SetTransaction(v payment.Verification) {
	f.mu.Lock()
	f.transactions[v.TxRef] = v
	f.mu.Unlock()
}

// Checkout returns the checkout request made for txRef.
func (f *Fake) Checkout(txRef string) (payment.CheckoutRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.checkouts[txRef]
	return req, ok
}
