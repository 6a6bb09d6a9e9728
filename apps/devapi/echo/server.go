// Package echoapi serves the REST contract of the internship platform for local development and
// end-to-end tests of the client.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/core/user"
	"github.com/lamngoctuu18/chuyen-doi-so-sub001/storage/database"
)

var nowFunc = time.Now // mockable

type (
	ServerDeps struct {
		Conf      *core.Config
		Logger    core.Logger
		Store     database.Store
		UserSvc   *user.Service
		Validator *core.Validator
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) (*Server, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "deps.Conf"),
		vala.IsNotNil(deps.Logger, "deps.Logger"),
		vala.IsNotNil(deps.Store, "deps.Store"),
		vala.IsNotNil(deps.UserSvc, "deps.UserSvc"),
		vala.IsNotNil(deps.Validator, "deps.Validator"),
	).Check(); err != nil {
		return nil, err
	}

	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		auth:       newAuthenticator(deps.Conf),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s, nil
}

func (s *Server) setup() {
	conf := s.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.DevAPI.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.signalShutdown)
	s.app.Debug = false // error messages always go through the envelope

	s.app.GET("/", home)
	if conf.DevAPI.UploadDir != "" {
		s.app.Static(uploadsPath, conf.DevAPI.UploadDir)
	}

	api := s.app.Group("/api")
	authed := []echo.MiddlewareFunc{middleware.JWTWithConfig(s.auth.jwtConfig()), contextUserMiddleware(s.Store)}

	registerUserAPI(api, authed, s)
	registerNotificationAPI(api, authed, s)
	registerSubmissionAPI(api, authed, s)
	registerEvaluationAPI(api, authed, s)
	registerRegistrationAPI(api, authed, s)
	registerResourceAPIs(api, authed, s)
}

// Start blocks until the server stops. Listener failures are reported on Errors.
func (s *Server) Start() {
	s.Logger.Info("API listening", map[string]interface{}{"address": s.Conf.DevAPI.Address})
	if err := s.app.Start(s.Conf.DevAPI.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

// IssueToken signs a bearer token for usr.
func (s *Server) IssueToken(usr user.User) (string, error) {
	return s.auth.generateToken(usr)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the internship API!")
}
