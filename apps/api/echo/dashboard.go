package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core/dashboard"
)

type dashboardApi struct {
	svc dashboard.Service
}

func registerDashboardAPI(g *echo.Group, authed echo.MiddlewareFunc, s *server) {
	api := dashboardApi{svc: s.deps.DashboardSvc}
	g.GET("/dashboard", api.stats, authed, adminOnly)
}

func (api *dashboardApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context(), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "computing dashboard stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
