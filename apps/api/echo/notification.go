package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/notification"
	"github.com/trezcool/smartbill/core/user"
)

var errUnknownRecipient = errors.New("user not found")

type notificationApi struct {
	svc      notification.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerNotificationAPI(g *echo.Group, authed echo.MiddlewareFunc, s *server) {
	api := notificationApi{
		svc:      s.deps.NotificationSvc,
		usrSvc:   s.deps.UserSvc,
		validate: s.deps.Validate,
	}

	ng := g.Group("/notifications", authed)
	ng.GET("", api.query, superAdminOnly)
	ng.POST("", api.send, superAdminOnly)
	ng.GET("/mine", api.queryMine)

	dg := ng.Group("/:id", loadObject(api.loadNotification))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, superAdminOnly)
	dg.DELETE("", api.destroy, superAdminOnly)
	dg.POST("/read", api.markRead)
}

func (api *notificationApi) query(ctx echo.Context) error {
	notifs, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	return api.list(ctx, notifs)
}

func (api *notificationApi) queryMine(ctx echo.Context) error {
	notifs, err := api.svc.QueryByRecipient(ctx.Request().Context(), contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "querying received notifications")
	}
	return api.list(ctx, notifs)
}

func (api *notificationApi) list(ctx echo.Context, notifs []notification.Notification) error {
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) send(ctx echo.Context) error {
	var data notification.NewNotification
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if _, err := api.usrSvc.GetByID(ctx.Request().Context(), data.SentToID); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(errUnknownRecipient, core.FieldError{Field: "sent_to", Error: errUnknownRecipient.Error()})
		}
		return errors.Wrap(err, "finding recipient")
	}

	n, err := api.svc.Send(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "sending notification")
	}
	return ctx.JSON(http.StatusCreated, n)
}

// loadNotification hides the notifications of other users, except from superadmins.
func (api *notificationApi) loadNotification(ctx echo.Context, usr user.User) (interface{}, error) {
	n, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return nil, err
	}
	if !usr.IsSuperAdmin() && n.SentToID != usr.ID {
		return nil, notification.ErrNotFound
	}
	return n, nil
}

func (api *notificationApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get(objContextKey))
}

func (api *notificationApi) update(ctx echo.Context) error {
	orig := ctx.Get(objContextKey).(notification.Notification)

	var data notification.UpdateNotification
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	n, err := data.Validate(orig, api.validate)
	if err != nil {
		return err
	}

	if n, err = api.svc.Update(ctx.Request().Context(), n); err != nil {
		return errors.Wrap(err, "updating notification")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	n := ctx.Get(objContextKey).(notification.Notification)
	if n.SentToID != contextUser(ctx).ID {
		return errHttpForbidden
	}

	n, err := api.svc.MarkRead(ctx.Request().Context(), n)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *notificationApi) destroy(ctx echo.Context) error {
	n := ctx.Get(objContextKey).(notification.Notification)
	if err := api.svc.Delete(ctx.Request().Context(), n.ID); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}
