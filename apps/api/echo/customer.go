package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/customer"
	"github.com/trezcool/smartbill/core/reading"
	"github.com/trezcool/smartbill/core/user"
)

type customerApi struct {
	svc        customer.Service
	usrSvc     user.Service
	readingSvc reading.Service
	billSvc    billing.Service
	conf       *core.Config
	validate   *validator.Validate
}

func registerCustomerAPI(g *echo.Group, authed, limited echo.MiddlewareFunc, s *server) {
	api := customerApi{
		svc:        s.deps.CustomerSvc,
		usrSvc:     s.deps.UserSvc,
		readingSvc: s.deps.ReadingSvc,
		billSvc:    s.deps.BillSvc,
		conf:       s.deps.Conf,
		validate:   s.deps.Validate,
	}

	cg := g.Group("/customers")
	ag := cg.Group("", authed)
	ag.GET("", api.query, staffOnly)
	ag.GET("/me", api.me, rolesRequired(user.RoleCustomer))

	dg := ag.Group("/:id", loadObject(api.loadCustomer))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminOnly)
	dg.GET("/readings", api.readings, staffOnly)
	dg.GET("/bills", api.bills)
	dg.GET("/reading-details", api.readingDetails, staffOnly)

	// public sign up, registered last so the authed group does not shadow it
	cg.POST("", api.register, limited)
}

type RegisterResponse struct {
	Token    string            `json:"token"`
	Customer customer.Customer `json:"customer"`
}

// register is the customers' self sign up; they are logged in straight away.
func (api *customerApi) register(ctx echo.Context) error {
	var data customer.NewCustomer
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.usrSvc); err != nil {
		return err
	}

	cust, usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating customer")
	}
	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, RegisterResponse{Token: token, Customer: cust})
}

func (api *customerApi) query(ctx echo.Context) error {
	filter := new(customer.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []customer.Customer{})
	}

	customers, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying customers")
	}
	if customers == nil {
		customers = []customer.Customer{}
	}
	return ctx.JSON(http.StatusOK, customers)
}

func (api *customerApi) me(ctx echo.Context) error {
	cust, err := api.svc.GetByUserID(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "finding customer by user ID")
	}
	return ctx.JSON(http.StatusOK, cust)
}

// loadCustomer lets staff see any customer; customers only see themselves.
func (api *customerApi) loadCustomer(ctx echo.Context, usr user.User) (interface{}, error) {
	cust, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return nil, err
	}
	if !usr.IsStaff() && cust.UserID != usr.ID {
		return nil, customer.ErrNotFound
	}
	return cust, nil
}

func (api *customerApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get(objContextKey))
}

func (api *customerApi) update(ctx echo.Context) error {
	cust := ctx.Get(objContextKey).(customer.Customer)
	usr := contextUser(ctx)
	if usr.IsMeterReader() {
		return errHttpForbidden
	}

	var data customer.UpdateCustomer
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	// customers cannot change their own type, it decides their tariff
	if usr.IsCustomer() && data.CustomerType != "" && data.CustomerType != cust.CustomerType {
		return errHttpForbidden
	}
	if err := data.Validate(ctx.Request().Context(), cust, api.validate, api.usrSvc); err != nil {
		return err
	}

	cust, err := api.svc.Update(ctx.Request().Context(), cust, data)
	if err != nil {
		return errors.Wrap(err, "updating customer")
	}
	return ctx.JSON(http.StatusOK, cust)
}

func (api *customerApi) destroy(ctx echo.Context) error {
	cust := ctx.Get(objContextKey).(customer.Customer)
	if err := api.svc.Delete(ctx.Request().Context(), cust); err != nil {
		return errors.Wrap(err, "deleting customer")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *customerApi) readings(ctx echo.Context) error {
	cust := ctx.Get(objContextKey).(customer.Customer)
	readings, err := api.readingSvc.QueryByCustomer(ctx.Request().Context(), cust.ID)
	if err != nil {
		return errors.Wrap(err, "querying customer readings")
	}
	if readings == nil {
		readings = []reading.Reading{}
	}
	return ctx.JSON(http.StatusOK, readings)
}

func (api *customerApi) bills(ctx echo.Context) error {
	cust := ctx.Get(objContextKey).(customer.Customer)
	bills, err := api.billSvc.QueryByCustomer(ctx.Request().Context(), cust.ID)
	if err != nil {
		return errors.Wrap(err, "querying customer bills")
	}
	if bills == nil {
		bills = []billing.Bill{}
	}
	return ctx.JSON(http.StatusOK, bills)
}

func (api *customerApi) readingDetails(ctx echo.Context) error {
	cust := ctx.Get(objContextKey).(customer.Customer)
	details, err := api.billSvc.ReadingDetails(ctx.Request().Context(), cust.ID)
	if err != nil {
		return errors.Wrap(err, "getting reading details")
	}
	return ctx.JSON(http.StatusOK, details)
}
