package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/complaint"
	"github.com/trezcool/smartbill/core/contact"
	"github.com/trezcool/smartbill/core/customer"
	"github.com/trezcool/smartbill/core/dashboard"
	"github.com/trezcool/smartbill/core/notification"
	"github.com/trezcool/smartbill/core/payment"
	"github.com/trezcool/smartbill/core/reading"
	"github.com/trezcool/smartbill/core/report"
	"github.com/trezcool/smartbill/core/tariff"
	"github.com/trezcool/smartbill/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		UserSvc         user.Service
		CustomerSvc     customer.Service
		TariffSvc       tariff.Service
		ReadingSvc      reading.Service
		BillSvc         billing.Service
		PaymentSvc      payment.Service
		ComplaintSvc    complaint.Service
		ReportSvc       report.Service
		NotificationSvc notification.Service
		ContactSvc      contact.Service
		DashboardSvc    dashboard.Service
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.UserSvc),
		metrics:  newMetrics(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	s.app.Use(s.metrics.middleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/metrics", s.metrics.handler())

	g := s.app.Group("/api")
	authed := s.auth.required()
	limited := newRateLimiter(conf.Server.RateLimit, conf.Server.RateBurst).middleware

	registerUserAPI(g, authed, limited, s)
	registerCustomerAPI(g, authed, limited, s)
	registerTariffAPI(g, authed, s)
	registerReadingAPI(g, authed, s)
	registerBillAPI(g, authed, s)
	registerPaymentAPI(g, authed, s)
	registerComplaintAPI(g, authed, s)
	registerReportAPI(g, authed, s)
	registerNotificationAPI(g, authed, s)
	registerContactAPI(g, authed, limited, s)
	registerDashboardAPI(g, authed, s)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
