package echoapi

import (
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/payment"
	"github.com/trezcool/smartbill/core/user"
)

// webhook signature headers, by order of preference
var signatureHeaders = []string{"Chapa-Signature", "X-Chapa-Signature"}

type paymentApi struct {
	svc      payment.Service
	conf     *core.Config
	validate *validator.Validate
	metrics  *metrics
}

func registerPaymentAPI(g *echo.Group, authed echo.MiddlewareFunc, s *server) {
	api := paymentApi{
		svc:      s.deps.PaymentSvc,
		conf:     s.deps.Conf,
		validate: s.deps.Validate,
		metrics:  s.metrics,
	}

	pg := g.Group("/payments")

	ag := pg.Group("", authed)
	ag.GET("", api.query)
	ag.POST("", api.initiate)
	ag.POST("/verify", api.verify)
	ag.GET("/:id", api.retrieve, loadObject(api.loadPayment))

	// called by the gateway
	pg.GET("/callback", api.callback)
	pg.POST("/webhook", api.webhook)
}

type CallbackResponse struct {
	Message     string          `json:"message"`
	Payment     payment.Payment `json:"payment"`
	RedirectURL string          `json:"redirect_url"`
}

func (api *paymentApi) initiate(ctx echo.Context) error {
	usr := contextUser(ctx)

	var data payment.NewPayment
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate, usr); err != nil {
		return err
	}

	pmt, err := api.svc.Initiate(ctx.Request().Context(), data, usr)
	if err != nil {
		if payment.IsGatewayError(err) {
			api.metrics.payments.WithLabelValues(payment.StatusFailed).Inc()
		}
		return errors.Wrap(err, "initiating payment")
	}
	api.metrics.payments.WithLabelValues(pmt.Status).Inc()
	return ctx.JSON(http.StatusCreated, pmt)
}

// verify lets payers (or staff) check a transaction without waiting for the gateway callback.
func (api *paymentApi) verify(ctx echo.Context) error {
	var data payment.VerifyPayment
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr := contextUser(ctx)
	pmt, err := api.svc.GetByTxRef(ctx.Request().Context(), data.TxRef)
	if err != nil {
		return errors.Wrap(err, "finding payment by tx_ref")
	}
	if !usr.IsStaff() && pmt.PaidBy != usr.ID {
		return payment.ErrNotFound
	}

	if pmt, err = api.verifyTx(ctx, data.TxRef); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *paymentApi) verifyTx(ctx echo.Context, txRef string) (payment.Payment, error) {
	pmt, err := api.svc.Verify(ctx.Request().Context(), txRef)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "verifying payment")
	}
	if pmt.Status != payment.StatusPending {
		api.metrics.payments.WithLabelValues(pmt.Status).Inc()
	}
	return pmt, nil
}

// callback is where the gateway sends the payer back after checkout.
func (api *paymentApi) callback(ctx echo.Context) error {
	txRef := ctx.QueryParam("tx_ref")
	if txRef == "" {
		txRef = ctx.QueryParam("trx_ref")
	}
	data := payment.VerifyPayment{TxRef: txRef}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pmt, err := api.verifyTx(ctx, data.TxRef)
	if err != nil {
		return err
	}

	resp := CallbackResponse{Payment: pmt}
	switch pmt.Status {
	case payment.StatusSuccess:
		resp.Message = "Payment successful"
		resp.RedirectURL = api.conf.FrontendBaseURL + "/payment-success"
	case payment.StatusPending:
		resp.Message = "Payment pending"
		resp.RedirectURL = api.conf.FrontendBaseURL + "/payment-pending"
	default:
		resp.Message = "Payment failed"
		resp.RedirectURL = api.conf.FrontendBaseURL + "/payment-failed"
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *paymentApi) webhook(ctx echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, 1<<20))
	if err != nil {
		return core.NewValidationError(err)
	}
	var signature string
	for _, h := range signatureHeaders {
		if signature = ctx.Request().Header.Get(h); signature != "" {
			break
		}
	}

	pmt, err := api.svc.HandleWebhook(ctx.Request().Context(), body, signature)
	if err != nil {
		return errors.Wrap(err, "handling webhook")
	}
	if pmt.Status != payment.StatusPending {
		api.metrics.payments.WithLabelValues(pmt.Status).Inc()
	}
	return ctx.NoContent(http.StatusOK)
}

// query lists all payments to staff, and their own payments to other users.
func (api *paymentApi) query(ctx echo.Context) error {
	filter := new(payment.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []payment.Payment{})
	}
	if usr := contextUser(ctx); !usr.IsStaff() {
		filter.PaidBy = usr.ID
	}

	payments, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []payment.Payment{}
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *paymentApi) loadPayment(ctx echo.Context, usr user.User) (interface{}, error) {
	pmt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return nil, err
	}
	if !usr.IsStaff() && pmt.PaidBy != usr.ID {
		return nil, payment.ErrNotFound
	}
	return pmt, nil
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get(objContextKey))
}
