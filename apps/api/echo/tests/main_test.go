package tests

import (
	"log"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/smartbill/apps/api/echo"
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
	"github.com/trezcool/smartbill/services/email"
	"github.com/trezcool/smartbill/services/logger"
	"github.com/trezcool/smartbill/services/payment"
	"github.com/trezcool/smartbill/storage/database/dummy"
)

const webhookSecret = "whsec_test"

var (
	conf    *core.Config
	db      *dummydb.DB
	app     Server
	mailSvc *emailsvc.Mock
	gateway *paymentsvc.Fake

	usrRepo   user.Repository
	custRepo  customer.Repository
	trfRepo   tariff.Repository
	rdgRepo   reading.Repository
	billRepo  billing.Repository
	pmtRepo   payment.Repository
	cmpRepo   complaint.Repository
	rptRepo   report.Repository
	notifRepo notification.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	conf = core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Server.RateLimit = 0 // unlimited
	conf.Chapa.WebhookSecret = webhookSecret

	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "", log.LstdFlags), conf)
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	customer.InitValidators(validate)
	billing.InitValidators(validate, translator)
	complaint.InitValidators(validate, translator)
	notification.InitValidators(validate, translator)
	core.ParseEmailTemplates(appfs.FS, conf, logger)

	// set up DB & repos
	db = dummydb.Open()
	tx := dummydb.Transactor{}
	usrRepo = dummydb.NewUserRepository(db)
	custRepo = dummydb.NewCustomerRepository(db)
	trfRepo = dummydb.NewTariffRepository(db)
	rdgRepo = dummydb.NewReadingRepository(db)
	billRepo = dummydb.NewBillRepository(db)
	pmtRepo = dummydb.NewPaymentRepository(db)
	cmpRepo = dummydb.NewComplaintRepository(db)
	rptRepo = dummydb.NewReportRepository(db)
	notifRepo = dummydb.NewNotificationRepository(db)

	// set up services
	mailSvc = emailsvc.NewMock(conf, logger)
	gateway = paymentsvc.NewFake()
	usrSvc := user.NewService(usrRepo, mailSvc, logger, conf)
	custSvc := customer.NewService(tx, custRepo, usrRepo, usrSvc)
	trfSvc := tariff.NewService(trfRepo)
	rdgSvc := reading.NewService(rdgRepo, custSvc)
	notifSvc := notification.NewService(notifRepo)
	billSvc := billing.NewService(tx, billRepo, custSvc, rdgSvc, trfSvc, notifSvc, mailSvc, logger, conf)

	// set up server
	app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,

		UserSvc:         usrSvc,
		CustomerSvc:     custSvc,
		TariffSvc:       trfSvc,
		ReadingSvc:      rdgSvc,
		BillSvc:         billSvc,
		PaymentSvc:      payment.NewService(tx, pmtRepo, billSvc, custSvc, notifSvc, gateway, mailSvc, logger, conf),
		ComplaintSvc:    complaint.NewService(cmpRepo),
		ReportSvc:       report.NewService(rptRepo),
		NotificationSvc: notifSvc,
		ContactSvc:      contact.NewService(dummydb.NewContactRepository(db)),
		DashboardSvc:    dashboard.NewService(dummydb.NewDashboardRepository(db)),
	})

	// run tests
	os.Exit(m.Run())
}
