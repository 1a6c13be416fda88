package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/knowledgelearning/backend/core"
	"github.com/knowledgelearning/backend/core/catalog"
	"github.com/knowledgelearning/backend/core/certification"
	"github.com/knowledgelearning/backend/core/order"
	"github.com/knowledgelearning/backend/core/progress"
	"github.com/knowledgelearning/backend/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		UserSvc          *user.Service
		CatalogSvc       *catalog.Service
		OrderSvc         *order.Service
		ProgressSvc      *progress.Service
		CertificationSvc *certification.Service

		Validate   *validator.Validate
		Translator ut.Translator
		Logger     core.Logger
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerUserAPI(v1, jwt, s.opts.UserSvc, s.opts.Validate, s.opts.Translator)
	registerCatalogAPI(v1, jwt, s.opts.CatalogSvc, s.opts.OrderSvc, s.opts.Validate)
	registerOrderAPI(v1, jwt, s.opts.OrderSvc, s.opts.UserSvc)
	registerProgressAPI(v1, jwt, s.opts.ProgressSvc, s.opts.UserSvc)
	registerCertificationAPI(v1, jwt, s.opts.CertificationSvc, s.opts.UserSvc)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- s.app.Start(s.opts.Address)
	}()

	select {
	case err := <-serverErrors:
		s.app.Logger.Fatal(err)
	case sig := <-s.shutdown:
		s.opts.Logger.Info("shutting down", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			_ = s.app.Close()
			s.app.Logger.Fatal(err)
		}
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// signalShutdown is called on unrecoverable errors to stop the server gracefully.
func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the Knowledge Learning API!")
}
