package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Real-Dev-Squad/website-backend/internal/logging"
	"github.com/Real-Dev-Squad/website-backend/internal/rollout"
	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

const (
	userKey      = "user"
	evaluatorKey = "rollout_evaluator"
)

// sessionToken reads the session cookie, falling back to a bearer token for
// clients such as the mobile app that cannot hold cookies.
func (s *Server) sessionToken(c echo.Context) string {
	if cookie, err := c.Cookie(s.cfg.Server.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bearerToken(c)
}

func bearerToken(c echo.Context) string {
	parts := strings.Fields(c.Request().Header.Get(echo.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := s.sessionToken(c)
		if token == "" {
			return c.JSON(http.StatusUnauthorized, NewErrorResponse(http.StatusUnauthorized, MsgUnauthorized))
		}

		user, refreshed, err := s.deps.Auth.Authenticate(c.Request().Context(), token)
		if err != nil {
			return s.handleError(c, err, "failed to authenticate request")
		}
		if refreshed != "" {
			s.setSessionCookie(c, refreshed)
		}
		setUser(c, user)
		return next(c)
	}
}

// optionalAuthenticate resolves the caller when a valid session is present and
// otherwise continues anonymously.
func (s *Server) optionalAuthenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := s.sessionToken(c)
		if token == "" {
			return next(c)
		}
		user, refreshed, err := s.deps.Auth.Authenticate(c.Request().Context(), token)
		if err != nil {
			s.logger.WithError(err).Debug("continuing anonymously")
			return next(c)
		}
		if refreshed != "" {
			s.setSessionCookie(c, refreshed)
		}
		setUser(c, user)
		return next(c)
	}
}

// authorizeRoles must run after authenticate.
func (s *Server) authorizeRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !userFrom(c).HasAnyRole(roles...) {
				return c.JSON(http.StatusForbidden, NewErrorResponse(http.StatusForbidden, MsgForbidden))
			}
			return next(c)
		}
	}
}

// RequireFeature answers 404 unless the named flag is enabled for the caller.
// Unknown flags count as disabled.
func (s *Server) RequireFeature(name string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			enabled, err := s.deps.Flags.IsEnabled(c.Request().Context(), evaluatorFor(c), name, userFrom(c))
			if err != nil {
				return s.handleError(c, err, "failed to evaluate feature gate "+name)
			}
			if !enabled {
				return c.JSON(http.StatusNotFound, NewErrorResponse(http.StatusNotFound, MsgNotFound))
			}
			return next(c)
		}
	}
}

// botAuthenticate accepts requests carrying the shared Discord bot token.
func (s *Server) botAuthenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		want := s.cfg.Server.BotToken
		got := bearerToken(c)
		if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			return c.JSON(http.StatusUnauthorized, NewErrorResponse(http.StatusUnauthorized, MsgInvalidBotToken))
		}
		return next(c)
	}
}

func setUser(c echo.Context, user *types.User) {
	c.Set(userKey, user)
	c.Set(logging.UserIDKey, user.ID.String())
}

// userFrom returns the caller, or nil for anonymous requests.
func userFrom(c echo.Context) *types.User {
	user, _ := c.Get(userKey).(*types.User)
	return user
}

// evaluatorFor returns the request's rollout evaluator. All anonymous
// percentage decisions inside one request share an identifier.
func evaluatorFor(c echo.Context) *rollout.Evaluator {
	if ev, ok := c.Get(evaluatorKey).(*rollout.Evaluator); ok {
		return ev
	}
	ev := rollout.NewEvaluator(rollout.WithStickyIdentifier())
	c.Set(evaluatorKey, ev)
	return ev
}

func (s *Server) setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     s.cfg.Server.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.cfg.Server.CookieDomain,
		MaxAge:   int(s.deps.Auth.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     s.cfg.Server.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.cfg.Server.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
