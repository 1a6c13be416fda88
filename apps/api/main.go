package main

import (
	"fmt"
	"log"
	"net"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/knowledgelearning/backend/apps/api/echo"
	"github.com/knowledgelearning/backend/core"
	"github.com/knowledgelearning/backend/core/catalog"
	"github.com/knowledgelearning/backend/core/certification"
	"github.com/knowledgelearning/backend/core/order"
	"github.com/knowledgelearning/backend/core/progress"
	"github.com/knowledgelearning/backend/core/user"
	emailsvc "github.com/knowledgelearning/backend/services/email"
	logsvc "github.com/knowledgelearning/backend/services/logger"
	paymentsvc "github.com/knowledgelearning/backend/services/payment"
	"github.com/knowledgelearning/backend/storage/database"
	sqlxrepos "github.com/knowledgelearning/backend/storage/database/sqlx"
)

func main() {
	conf := core.Conf

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("failed to close DB", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	paySvc := paymentsvc.NewMidtransService(conf)

	userRepo := sqlxrepos.NewUserRepository(db)
	catRepo := sqlxrepos.NewCatalogRepository(db)
	ordRepo := sqlxrepos.NewOrderRepository(db)
	progRepo := sqlxrepos.NewProgressRepository(db)
	certRepo := sqlxrepos.NewCertificationRepository(db)

	usrSvc := user.NewService(userRepo, mailSvc)
	catSvc := catalog.NewService(catRepo)
	ordSvc := order.NewService(ordRepo, catRepo, paySvc, logger)
	certSvc := certification.NewService(certRepo, userRepo, catRepo, progRepo, mailSvc, logger)
	progSvc := progress.NewService(progRepo, catRepo, ordSvc, certSvc, logger)

	// initialize validation
	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// start API server
	server := echoapi.NewServer(
		&echoapi.Options{
			Address:          net.JoinHostPort(conf.Server.Host, conf.Server.Port),
			UserSvc:          usrSvc,
			CatalogSvc:       catSvc,
			OrderSvc:         ordSvc,
			ProgressSvc:      progSvc,
			CertificationSvc: certSvc,
			Validate:         validate,
			Translator:       translator,
			Logger:           logger,
		},
	)
	server.Start()
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
