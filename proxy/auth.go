package proxy

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/localchat/pkg/identity"
	"github.com/papercomputeco/localchat/pkg/llm"
)

// SessionCookie names the cookie carrying the session token.
const SessionCookie = "localchat_session"

// Credentials is the body of the sign-up and sign-in endpoints.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (p *Proxy) handleSignUp(c *fiber.Ctx) error {
	var creds Credentials
	if err := c.BodyParser(&creds); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	sess, err := p.backends.Identity.SignUp(c.UserContext(), creds.Email, creds.Password)
	p.backends.Metrics.ObserveAuth("signup", err)
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(llm.ErrorResponse{Error: err.Error()})
	case errors.Is(err, identity.ErrInvalidSignUp):
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	case err != nil:
		p.logger.Error("sign up failed", zap.Error(err))
		return internalError(c, err)
	}

	p.logger.Info("user signed up", zap.String("user_id", sess.User.ID))
	p.setSessionCookie(c, sess)
	return c.Status(fiber.StatusCreated).JSON(sess)
}

func (p *Proxy) handleSignIn(c *fiber.Ctx) error {
	var creds Credentials
	if err := c.BodyParser(&creds); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	sess, err := p.backends.Identity.SignIn(c.UserContext(), creds.Email, creds.Password)
	p.backends.Metrics.ObserveAuth("signin", err)
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{Error: err.Error()})
	case err != nil:
		p.logger.Error("sign in failed", zap.Error(err))
		return internalError(c, err)
	}

	p.setSessionCookie(c, sess)
	return c.JSON(sess)
}

// handleLogout revokes the caller's session, if any, and always clears the
// cookie.
func (p *Proxy) handleLogout(c *fiber.Ctx) error {
	if token := sessionToken(c); token != "" {
		err := p.backends.Identity.SignOut(c.UserContext(), token)
		p.backends.Metrics.ObserveAuth("logout", err)
		if err != nil {
			p.logger.Error("sign out failed", zap.Error(err))
			return internalError(c, err)
		}
	}

	c.ClearCookie(SessionCookie)
	return c.SendStatus(fiber.StatusNoContent)
}

// requireUser resolves the session token into a user and attaches it to the
// request's user context. Requests without a live session stop here.
func (p *Proxy) requireUser(c *fiber.Ctx) error {
	user, err := p.backends.Identity.CurrentUser(c.UserContext(), sessionToken(c))
	if errors.Is(err, identity.ErrNoSession) {
		return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{Error: "sign in required"})
	}
	if err != nil {
		p.logger.Error("session lookup failed", zap.Error(err))
		return internalError(c, err)
	}

	c.SetUserContext(identity.WithUser(c.UserContext(), user))
	return c.Next()
}

func (p *Proxy) setSessionCookie(c *fiber.Ctx, sess identity.Session) {
	expires := p.cookieExpiry(sess, time.Now())
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HTTPOnly: true,
		Secure:   p.config.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// cookieExpiry is the session's own expiry, capped at SessionTTL from now
// when one is configured.
func (p *Proxy) cookieExpiry(sess identity.Session, now time.Time) time.Time {
	if p.config.SessionTTL <= 0 {
		return sess.ExpiresAt
	}
	if limit := now.Add(p.config.SessionTTL); limit.Before(sess.ExpiresAt) {
		return limit
	}
	return sess.ExpiresAt
}

// sessionToken reads a bearer token, falling back to the session cookie.
func sessionToken(c *fiber.Ctx) string {
	if token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return c.Cookies(SessionCookie)
}
