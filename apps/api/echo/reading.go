package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core/reading"
	"github.com/trezcool/smartbill/core/user"
)

type readingApi struct {
	svc      reading.Service
	validate *validator.Validate
}

func registerReadingAPI(g *echo.Group, authed echo.MiddlewareFunc, s *server) {
	api := readingApi{
		svc:      s.deps.ReadingSvc,
		validate: s.deps.Validate,
	}

	rg := g.Group("/readings", authed, staffOnly)
	rg.GET("", api.query)
	rg.POST("", api.create, readerOnly)

	dg := rg.Group("/:id", loadObject(api.loadReading))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, readerOnly)
	dg.DELETE("", api.destroy, readerOnly)
}

// query lists the readings of the meter reader; admins see all of them.
// Both can narrow the list down to one customer with `?customer_id=`.
func (api *readingApi) query(ctx echo.Context) error {
	usr := contextUser(ctx)
	filter := reading.QueryFilter{CustomerID: ctx.QueryParam("customer_id")}
	if usr.IsMeterReader() {
		filter.ReaderID = usr.ID
	}

	readings, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying readings")
	}
	if readings == nil {
		readings = []reading.Reading{}
	}
	return ctx.JSON(http.StatusOK, readings)
}

func (api *readingApi) create(ctx echo.Context) error {
	var data reading.NewReading
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Create(ctx.Request().Context(), data, contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "creating reading")
	}
	return ctx.JSON(http.StatusCreated, r)
}

// loadReading hides the readings of other meter readers.
func (api *readingApi) loadReading(ctx echo.Context, usr user.User) (interface{}, error) {
	r, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return nil, err
	}
	if usr.IsMeterReader() && r.ReaderID != usr.ID {
		return nil, reading.ErrNotFound
	}
	return r, nil
}

func (api *readingApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get(objContextKey))
}

func (api *readingApi) update(ctx echo.Context) error {
	orig := ctx.Get(objContextKey).(reading.Reading)

	var data reading.UpdateReading
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	r, err := data.Validate(orig, api.validate)
	if err != nil {
		return err
	}

	if r, err = api.svc.Update(ctx.Request().Context(), r); err != nil {
		return errors.Wrap(err, "updating reading")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *readingApi) destroy(ctx echo.Context) error {
	r := ctx.Get(objContextKey).(reading.Reading)
	if err := api.svc.Delete(ctx.Request().Context(), r.ID); err != nil {
		return errors.Wrap(err, "deleting reading")
	}
	return ctx.NoContent(http.StatusNoContent)
}
