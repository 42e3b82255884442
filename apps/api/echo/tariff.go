package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core/tariff"
	"github.com/trezcool/smartbill/core/user"
)

type tariffApi struct {
	svc      tariff.Service
	validate *validator.Validate
}

func registerTariffAPI(g *echo.Group, authed echo.MiddlewareFunc, s *server) {
	api := tariffApi{
		svc:      s.deps.TariffSvc,
		validate: s.deps.Validate,
	}

	tg := g.Group("/tariffs")

	sg := tg.Group("", authed, superAdminOnly)
	sg.POST("", api.create)
	sg.PUT("/:id", api.update, loadObject(api.loadTariff))
	sg.DELETE("/:id", api.destroy, loadObject(api.loadTariff))

	// public endpoints, registered last so the authed group does not shadow them
	tg.GET("", api.query)
	tg.GET("/:id", api.retrieve)
}

func (api *tariffApi) query(ctx echo.Context) error {
	tariffs, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying tariffs")
	}
	if tariffs == nil {
		tariffs = []tariff.Tariff{}
	}
	return ctx.JSON(http.StatusOK, tariffs)
}

func (api *tariffApi) loadTariff(ctx echo.Context, _ user.User) (interface{}, error) {
	return api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
}

func (api *tariffApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding tariff")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *tariffApi) create(ctx echo.Context) error {
	var data tariff.NewTariff
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating tariff")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *tariffApi) update(ctx echo.Context) error {
	orig := ctx.Get(objContextKey).(tariff.Tariff)

	var data tariff.UpdateTariff
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	t, err := data.Validate(orig, api.validate)
	if err != nil {
		return err
	}

	if t, err = api.svc.Update(ctx.Request().Context(), t); err != nil {
		return errors.Wrap(err, "updating tariff")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *tariffApi) destroy(ctx echo.Context) error {
	t := ctx.Get(objContextKey).(tariff.Tariff)
	if err := api.svc.Delete(ctx.Request().Context(), t.ID); err != nil {
		return errors.Wrap(err, "deleting tariff")
	}
	return ctx.NoContent(http.StatusNoContent)
}
