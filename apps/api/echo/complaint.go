package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core/complaint"
	"github.com/trezcool/smartbill/core/user"
)

type complaintApi struct {
	svc      complaint.Service
	validate *validator.Validate
}

func registerComplaintAPI(g *echo.Group, authed echo.MiddlewareFunc, s *server) {
	api := complaintApi{
		svc:      s.deps.ComplaintSvc,
		validate: s.deps.Validate,
	}

	cg := g.Group("/complaints", authed)
	cg.GET("", api.query)
	cg.POST("", api.create)

	dg := cg.Group("/:id", loadObject(api.loadComplaint))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staffOnly)
	dg.DELETE("", api.destroy)
}

// query lists all complaints to staff, and their own complaints to other users.
func (api *complaintApi) query(ctx echo.Context) error {
	filter := new(complaint.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []complaint.Complaint{})
	}
	if err := api.validate.Struct(filter); err != nil {
		return err
	}
	if usr := contextUser(ctx); !usr.IsStaff() {
		filter.UserID = usr.ID
	}

	complaints, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying complaints")
	}
	if complaints == nil {
		complaints = []complaint.Complaint{}
	}
	return ctx.JSON(http.StatusOK, complaints)
}

func (api *complaintApi) create(ctx echo.Context) error {
	var data complaint.NewComplaint
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data, contextUser(ctx).ID)
	if err != nil {
		return errors.Wrap(err, "creating complaint")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *complaintApi) loadComplaint(ctx echo.Context, usr user.User) (interface{}, error) {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return nil, err
	}
	if !usr.IsStaff() && c.UserID != usr.ID {
		return nil, complaint.ErrNotFound
	}
	return c, nil
}

func (api *complaintApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get(objContextKey))
}

func (api *complaintApi) update(ctx echo.Context) error {
	orig := ctx.Get(objContextKey).(complaint.Complaint)

	var data complaint.UpdateComplaint
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	c, err := data.Validate(orig, api.validate, time.Now().UTC())
	if err != nil {
		return err
	}

	if c, err = api.svc.Update(ctx.Request().Context(), c); err != nil {
		return errors.Wrap(err, "updating complaint")
	}
	return ctx.JSON(http.StatusOK, c)
}

// destroy lets owners withdraw their complaints until staff handle them.
func (api *complaintApi) destroy(ctx echo.Context) error {
	c := ctx.Get(objContextKey).(complaint.Complaint)
	usr := contextUser(ctx)
	if !usr.IsStaff() && c.Status != complaint.StatusPending {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting complaint")
	}
	return ctx.NoContent(http.StatusNoContent)
}
