package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core/contact"
)

type contactApi struct {
	svc      contact.Service
	validate *validator.Validate
}

func registerContactAPI(g *echo.Group, authed, limited echo.MiddlewareFunc, s *server) {
	api := contactApi{
		svc:      s.deps.ContactSvc,
		validate: s.deps.Validate,
	}

	g.POST("/contact", api.create, limited)
	g.GET("/contact", api.query, authed, staffOnly)
}

func (api *contactApi) create(ctx echo.Context) error {
	var data contact.NewMessage
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	msg, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving contact message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *contactApi) query(ctx echo.Context) error {
	msgs, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying contact messages")
	}
	if msgs == nil {
		msgs = []contact.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}
