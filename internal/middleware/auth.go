package middleware

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"kwtrack/internal/models"
)

// PrincipalKey is the fiber.Ctx locals key holding the authenticated *models.Principal.
const PrincipalKey = "principal"

// Session keys written by the OIDC callback.
const (
	SessionSubject = "subject"
	SessionEmail   = "email"
)

// TokenVerifier verifies raw OIDC ID tokens. *oidc.IDTokenVerifier implements it.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// AuthMiddleware establishes the caller identity from a bearer ID token or a session.
type AuthMiddleware struct {
	verifier       TokenVerifier
	allowAnonymous bool
}

// NewAuthMiddleware creates a new auth middleware instance. verifier may be nil
// when no identity provider is configured; allowAnonymous then lets requests
// through as models.AnonymousSubject.
func NewAuthMiddleware(verifier TokenVerifier, allowAnonymous bool) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, allowAnonymous: allowAnonymous}
}

// RequireAuth ensures the caller is authenticated, responding 401 if not.
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	if raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization)); ok {
		if m.verifier == nil {
			return unauthorized(c, "bearer tokens are not accepted")
		}
		token, err := m.verifier.Verify(c.Context(), raw)
		if err != nil {
			return unauthorized(c, "invalid token")
		}

		principal := &models.Principal{Subject: token.Subject}
		var claims struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := token.Claims(&claims); err == nil {
			principal.Email = claims.Email
			principal.Name = claims.Name
		}
		c.Locals(PrincipalKey, principal)
		return c.Next()
	}

	if sess := session.FromContext(c); sess != nil {
		if sub, ok := sess.Get(SessionSubject).(string); ok && sub != "" {
			email, _ := sess.Get(SessionEmail).(string)
			c.Locals(PrincipalKey, &models.Principal{Subject: sub, Email: email})
			return c.Next()
		}
	}

	if m.allowAnonymous {
		c.Locals(PrincipalKey, &models.Principal{Subject: models.AnonymousSubject})
		return c.Next()
	}

	return unauthorized(c, "unauthorized")
}

// PrincipalFrom returns the principal set by RequireAuth, or nil.
func PrincipalFrom(c fiber.Ctx) *models.Principal {
	p, _ := c.Locals(PrincipalKey).(*models.Principal)
	return p
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}
