package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Real-Dev-Squad/website-backend/config"
	"github.com/Real-Dev-Squad/website-backend/internal/logging"
	"github.com/Real-Dev-Squad/website-backend/internal/metrics"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

// AWSAccessFlag gates self-service AWS group access.
const AWSAccessFlag = "aws-access"

type Server struct {
	cfg         config.ServerConfig
	deps        Dependencies
	httpMetrics *metrics.HTTPMetrics
	logger      *logrus.Logger
	e           *echo.Echo
}

// NewServer returns a new server with every route registered. httpMetrics may
// be nil when metrics are disabled.
func NewServer(cfg config.ServerConfig, deps Dependencies, httpMetrics *metrics.HTTPMetrics, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		deps:        deps,
		httpMetrics: httpMetrics,
		logger:      logger,
	}
	s.e = s.newEcho()
	return s
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler
	e.Validator = NewRequestValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M"))
	e.Use(logging.LoggerMiddleware(s.logger))
	if s.httpMetrics != nil {
		e.Use(s.httpMetrics.Middleware())
	}
	if len(s.cfg.Server.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     s.cfg.Server.CORSOrigins,
			AllowCredentials: true,
		}))
	} else {
		e.Use(middleware.CORS())
	}
	if s.cfg.RateLimit.Rate > 0 {
		limiterStore := middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(s.cfg.RateLimit.Rate),
				Burst:     s.cfg.RateLimit.Burst,
				ExpiresIn: s.cfg.RateLimit.ExpiresIn,
			},
		)
		e.Use(middleware.RateLimiter(limiterStore))
	}

	s.registerRoutes(e)
	return e
}

func (s *Server) registerRoutes(e *echo.Echo) {
	superUser := s.authorizeRoles(types.RoleSuperUser)

	e.GET("/healthz", s.Healthz)

	authGroup := e.Group("/auth")
	authGroup.GET("/github/callback", s.GithubCallback)
	authGroup.GET("/signout", s.SignOut)
	authGroup.POST("/qr-code-auth", s.RegisterDevice)
	authGroup.PATCH("/qr-code-auth/authorization_status/:status", s.UpdateDeviceAuthStatus, s.authenticate)
	authGroup.GET("/device", s.PollDevice)

	usersGroup := e.Group("/users", s.authenticate)
	usersGroup.GET("/self", s.GetSelf)
	usersGroup.GET("/self/devices", s.ListDevices)
	usersGroup.GET("/:userId", s.GetUser)
	usersGroup.PATCH("/:userId/roles", s.UpdateUserRoles, superUser)

	flagsGroup := e.Group("/feature-flags")
	flagsGroup.GET("", s.ListFeatureFlags)
	flagsGroup.GET("/evaluate", s.EvaluateFeatureFlags, s.optionalAuthenticate)
	flagsGroup.GET("/:name", s.GetFeatureFlag)
	flagsGroup.GET("/:name/evaluate", s.EvaluateFeatureFlag, s.optionalAuthenticate)
	flagsGroup.POST("", s.CreateFeatureFlag, s.authenticate, superUser)
	flagsGroup.PATCH("/:name", s.UpdateFeatureFlag, s.authenticate, superUser)
	flagsGroup.DELETE("/:name", s.DeleteFeatureFlag, s.authenticate, superUser)

	e.GET("/stocks", s.ListStocks)
	e.POST("/stocks", s.CreateStock, s.authenticate, superUser)
	e.GET("/stocks/user/self", s.ListUserStocks, s.authenticate)
	e.GET("/wallet", s.GetWallet, s.authenticate)
	e.POST("/trade/stock/new/self", s.TradeStock, s.authenticate)

	skillsGroup := e.Group("/skills")
	skillsGroup.GET("", s.ListSkills)
	skillsGroup.POST("", s.CreateSkill, s.authenticate, superUser)
	skillsGroup.POST("/endorse", s.EndorseSkill, s.authenticate)
	skillsGroup.GET("/users/:userId", s.GetUserSkills)

	if s.deps.Discord != nil {
		discordGroup := e.Group("/discord-actions", s.authenticate)
		discordGroup.GET("/groups", s.ListGroupRoles)
		discordGroup.POST("/groups", s.CreateGroupRole, s.authorizeRoles(types.RoleInDiscord))
		discordGroup.POST("/roles", s.AddMemberRole)
		discordGroup.DELETE("/roles", s.RemoveMemberRole)
		discordGroup.POST("/invite", s.GenerateInvite)
		discordGroup.POST("/nicknames/sync", s.SyncNicknames, superUser)

		e.POST("/external-accounts", s.SaveExternalAccount, s.botAuthenticate)
		e.PATCH("/external-accounts/link/:token", s.LinkExternalAccount, s.authenticate)
	}

	if s.deps.AWS != nil {
		e.POST("/aws/groups/access", s.RequestAWSAccess,
			s.authenticate, superUser, s.RequireFeature(AWSAccessFlag))
	}

	if s.deps.Tasks != nil {
		e.GET("/tasks/:taskId", s.GetTaskResult, s.authenticate, superUser)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Starting api server on %s", addr)
		if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.e.Shutdown(shutdownCtx)
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := http.StatusInternalServerError, MsgInternalError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else {
		s.logger.WithError(err).WithField("route", c.Path()).Error("unhandled error")
	}
	if err := c.JSON(code, NewErrorResponse(code, msg)); err != nil {
		s.logger.WithError(err).Error("failed to write error response")
	}
}

func (s *Server) Healthz(c echo.Context) error {
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DB.Ping(ctx); err != nil {
			s.logger.WithError(err).Warn("health check failed")
			return c.JSON(http.StatusServiceUnavailable, NewErrorResponse(http.StatusServiceUnavailable, "database unavailable"))
		}
	}
	return c.String(http.StatusOK, "OK")
}

// handleError writes the envelope for a service error. Internal errors are
// logged with action and replaced by a generic message.
func (s *Server) handleError(c echo.Context, err error, action string) error {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.WithError(err).Error(action)
	}
	return c.JSON(code, NewErrorResponse(code, msg))
}

// bindRequest binds and validates the request body into v. The returned
// error is an *echo.HTTPError rendered by errorHandler.
func bindRequest(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, MsgInvalidRequest)
	}
	return c.Validate(v)
}
