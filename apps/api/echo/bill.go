package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/customer"
	"github.com/trezcool/smartbill/core/user"
)

type billApi struct {
	svc      billing.Service
	custSvc  customer.Service
	validate *validator.Validate
	metrics  *metrics
}

func registerBillAPI(g *echo.Group, authed echo.MiddlewareFunc, s *server) {
	api := billApi{
		svc:      s.deps.BillSvc,
		custSvc:  s.deps.CustomerSvc,
		validate: s.deps.Validate,
		metrics:  s.metrics,
	}

	bg := g.Group("/bills", authed)
	bg.GET("", api.query)
	bg.POST("", api.generate, adminOnly)
	bg.POST("/mark-overdue", api.markOverdue, adminOnly)
	bg.GET("/:id", api.retrieve, loadObject(api.loadBill))
}

type MarkOverdueResponse struct {
	Count int `json:"count"`
}

func (api *billApi) generate(ctx echo.Context) error {
	var data billing.NewBill
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	bill, err := api.svc.Generate(ctx.Request().Context(), data, contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "generating bill")
	}
	api.metrics.billsGenerated.Inc()
	return ctx.JSON(http.StatusCreated, bill)
}

// query lists all bills to staff, and their own bills to customers.
func (api *billApi) query(ctx echo.Context) error {
	filter := new(billing.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []billing.Bill{})
	}
	if err := filter.Validate(api.validate); err != nil {
		return err
	}

	usr := contextUser(ctx)
	if !usr.IsStaff() {
		cust, err := api.custSvc.GetByUserID(ctx.Request().Context(), usr.ID)
		if err != nil {
			if core.IsNotFound(err) {
				return ctx.JSON(http.StatusOK, []billing.Bill{})
			}
			return errors.Wrap(err, "finding customer by user ID")
		}
		filter.CustomerID = cust.ID
	}

	bills, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying bills")
	}
	if bills == nil {
		bills = []billing.Bill{}
	}
	return ctx.JSON(http.StatusOK, bills)
}

// loadBill hides the bills of other customers.
func (api *billApi) loadBill(ctx echo.Context, usr user.User) (interface{}, error) {
	bill, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return nil, err
	}
	if !usr.IsStaff() {
		cust, err := api.custSvc.GetByUserID(ctx.Request().Context(), usr.ID)
		if err != nil || cust.ID != bill.CustomerID {
			return nil, billing.ErrNotFound
		}
	}
	return bill, nil
}

func (api *billApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get(objContextKey))
}

func (api *billApi) markOverdue(ctx echo.Context) error {
	count, err := api.svc.MarkOverdue(ctx.Request().Context(), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "marking bills overdue")
	}
	return ctx.JSON(http.StatusOK, MarkOverdueResponse{Count: count})
}
