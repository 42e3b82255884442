package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core/report"
	"github.com/trezcool/smartbill/core/user"
)

type reportApi struct {
	svc      report.Service
	validate *validator.Validate
}

func registerReportAPI(g *echo.Group, authed echo.MiddlewareFunc, s *server) {
	api := reportApi{
		svc:      s.deps.ReportSvc,
		validate: s.deps.Validate,
	}

	rg := g.Group("/reports", authed, staffOnly)
	rg.GET("", api.query)
	rg.POST("", api.create)
	rg.GET("/mine", api.queryMine)

	dg := rg.Group("/:id", loadObject(api.loadReport))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, senderOnly)
	dg.DELETE("", api.destroy, senderOnly)
}

func (api *reportApi) query(ctx echo.Context) error {
	reports, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	return api.list(ctx, reports)
}

func (api *reportApi) queryMine(ctx echo.Context) error {
	reports, err := api.svc.QueryBySender(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying sent reports")
	}
	return api.list(ctx, reports)
}

func (api *reportApi) list(ctx echo.Context, reports []report.Report) error {
	if reports == nil {
		reports = []report.Report{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *reportApi) create(ctx echo.Context) error {
	var data report.NewReport
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Create(ctx.Request().Context(), data, contextUser(ctx))
	if err != nil {
		return errors.Wrap(err, "creating report")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *reportApi) loadReport(ctx echo.Context, _ user.User) (interface{}, error) {
	return api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
}

// senderOnly only lets the sender of the loaded report through.
func senderOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		r := ctx.Get(objContextKey).(report.Report)
		if r.SenderID != contextUser(ctx).ID {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

func (api *reportApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get(objContextKey))
}

func (api *reportApi) update(ctx echo.Context) error {
	orig := ctx.Get(objContextKey).(report.Report)

	var data report.UpdateReport
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	r, err := data.Validate(orig, api.validate)
	if err != nil {
		return err
	}

	if r, err = api.svc.Update(ctx.Request().Context(), r); err != nil {
		return errors.Wrap(err, "updating report")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reportApi) destroy(ctx echo.Context) error {
	r := ctx.Get(objContextKey).(report.Report)
	if err := api.svc.Delete(ctx.Request().Context(), r.ID); err != nil {
		return errors.Wrap(err, "deleting report")
	}
	return ctx.NoContent(http.StatusNoContent)
}
