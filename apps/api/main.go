package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/smartbill/apps/api/echo"
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
	appfs "github.com/trezcool/smartbill/fs"
	emailsvc "github.com/trezcool/smartbill/services/email"
	logsvc "github.com/trezcool/smartbill/services/logger"
	paymentsvc "github.com/trezcool/smartbill/services/payment"
	"github.com/trezcool/smartbill/storage/database"
	dummydb "github.com/trezcool/smartbill/storage/database/dummy"
	boiledrepos "github.com/trezcool/smartbill/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/smartbill/storage/database/sqlx"
)

// in-memory storage, for local development only
const memoryEngine = "memory"

type repositories struct {
	tx           core.Transactor
	user         user.Repository
	customer     customer.Repository
	tariff       tariff.Repository
	reading      reading.Repository
	bill         billing.Repository
	payment      payment.Repository
	complaint    complaint.Repository
	report       report.Repository
	notification notification.Repository
	contact      contact.Repository
	dashboard    dashboard.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	repos, closeDB, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var gateway payment.Gateway
	if conf.Chapa.SecretKey == "" {
		logger.Warn("chapa secret key not set: payments go through a fake gateway")
		gateway = paymentsvc.NewFake()
	} else {
		gateway = paymentsvc.NewChapa(conf.Chapa, logger)
	}

	usrSvc := user.NewService(repos.user, mailSvc, logger, conf)
	custSvc := customer.NewService(repos.tx, repos.customer, repos.user, usrSvc)
	trfSvc := tariff.NewService(repos.tariff)
	rdgSvc := reading.NewService(repos.reading, custSvc)
	notifSvc := notification.NewService(repos.notification)
	billSvc := billing.NewService(repos.tx, repos.bill, custSvc, rdgSvc, trfSvc, notifSvc, mailSvc, logger, conf)
	pmtSvc := payment.NewService(repos.tx, repos.payment, billSvc, custSvc, notifSvc, gateway, mailSvc, logger, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	customer.InitValidators(validate)
	billing.InitValidators(validate, translator)
	complaint.InitValidators(validate, translator)
	notification.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, conf, logger)

	user.LoadCommonPasswords(appfs.FS, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,

			UserSvc:         usrSvc,
			CustomerSvc:     custSvc,
			TariffSvc:       trfSvc,
			ReadingSvc:      rdgSvc,
			BillSvc:         billSvc,
			PaymentSvc:      pmtSvc,
			ComplaintSvc:    complaint.NewService(repos.complaint),
			ReportSvc:       report.NewService(repos.report),
			NotificationSvc: notifSvc,
			ContactSvc:      contact.NewService(repos.contact),
			DashboardSvc:    dashboard.NewService(repos.dashboard),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpDB opens (creating and migrating it when needed) the database and returns the repositories backed by it.
func setUpDB(conf *core.Config) (repositories, func() error, error) {
	if conf.Database.Engine == memoryEngine {
		mem := dummydb.Open()
		return repositories{
			tx:           dummydb.Transactor{},
			user:         dummydb.NewUserRepository(mem),
			customer:     dummydb.NewCustomerRepository(mem),
			tariff:       dummydb.NewTariffRepository(mem),
			reading:      dummydb.NewReadingRepository(mem),
			bill:         dummydb.NewBillRepository(mem),
			payment:      dummydb.NewPaymentRepository(mem),
			complaint:    dummydb.NewComplaintRepository(mem),
			report:       dummydb.NewReportRepository(mem),
			notification: dummydb.NewNotificationRepository(mem),
			contact:      dummydb.NewContactRepository(mem),
			dashboard:    dummydb.NewDashboardRepository(mem),
		}, func() error { return nil }, nil
	}

	db, err := openDB(conf)
	if err != nil {
		return repositories{}, nil, err
	}
	return repositories{
		tx:           database.NewTransactor(db),
		user:         boiledrepos.NewUserRepository(db),
		customer:     boiledrepos.NewCustomerRepository(db),
		tariff:       boiledrepos.NewTariffRepository(db),
		reading:      boiledrepos.NewReadingRepository(db),
		bill:         boiledrepos.NewBillRepository(db),
		payment:      boiledrepos.NewPaymentRepository(db),
		complaint:    boiledrepos.NewComplaintRepository(db),
		report:       boiledrepos.NewReportRepository(db),
		notification: boiledrepos.NewNotificationRepository(db),
		contact:      boiledrepos.NewContactRepository(db),
		dashboard:    sqlxrepos.NewDashboardRepository(sqlx.NewDb(db, conf.Database.Engine)),
	}, db.Close, nil
}

func openDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
