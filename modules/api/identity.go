package api

import (
	"errors"
	"strings"
	"time"

	domain "github.com/example/roomchat/domain/chat"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// IdentityContextKey is the key the resolved identity is stored under in
	// the Fiber context. The websocket upgrade carries it into the connection.
	IdentityContextKey = "identity"

	// IdentityCookie holds the signed identity token in token mode.
	IdentityCookie = "roomchat_identity"

	identityTokenIssuer   = "roomchat"
	identityTokenDuration = 365 * 24 * time.Hour
)

var (
	// ErrNoIdentity is returned when a request carries nothing to identify it by.
	ErrNoIdentity = errors.New("identity unavailable")
	// ErrInvalidToken is returned when an identity token fails verification.
	ErrInvalidToken = errors.New("invalid token")
)

// IdentityResolver derives the caller identity from a request.
type IdentityResolver interface {
	Resolve(c *fiber.Ctx) (domain.Identity, error)
}

// AddressResolver identifies callers by network address. Behind a proxy
// the first address of the configured proxy header is used.
type AddressResolver struct{}

// Resolve returns the caller's address.
func (AddressResolver) Resolve(c *fiber.Ctx) (domain.Identity, error) {
	ip := c.IP()
	if i := strings.IndexByte(ip, ','); i >= 0 {
		ip = ip[:i]
	}
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return "", ErrNoIdentity
	}
	return domain.Identity(ip), nil
}

// IdentityClaims are the claims of an identity token.
type IdentityClaims struct {
	jwt.RegisteredClaims
}

// TokenManager issues and verifies identity tokens.
type TokenManager struct {
	secret   []byte
	duration time.Duration
}

// NewTokenManager creates a TokenManager signing with secret.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{
		secret:   []byte(secret),
		duration: identityTokenDuration,
	}
}

// Issue signs a token carrying identity as its subject.
func (m *TokenManager) Issue(identity domain.Identity) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    identityTokenIssuer,
			Subject:   string(identity),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify checks a token and returns the identity it carries.
func (m *TokenManager) Verify(tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(identityTokenIssuer))
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return domain.Identity(claims.Subject), nil
}

// TokenResolver identifies callers by a signed cookie. Callers without a
// valid cookie are given a fresh random identity.
type TokenResolver struct {
	tokens *TokenManager
}

// NewTokenResolver creates a TokenResolver signing with secret.
func NewTokenResolver(secret string) *TokenResolver {
	return &TokenResolver{tokens: NewTokenManager(secret)}
}

// Resolve returns the identity in the request cookie, minting one if needed.
func (r *TokenResolver) Resolve(c *fiber.Ctx) (domain.Identity, error) {
	if raw := c.Cookies(IdentityCookie); raw != "" {
		if identity, err := r.tokens.Verify(raw); err == nil {
			return identity, nil
		}
	}

	identity := domain.Identity(uuid.NewString())
	token, err := r.tokens.Issue(identity)
	if err != nil {
		return "", err
	}
	c.Cookie(&fiber.Cookie{
		Name:     IdentityCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(r.tokens.duration),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return identity, nil
}

// IdentityMiddleware resolves the caller identity and stores it in the
// context. Requests that cannot be identified are rejected.
func IdentityMiddleware(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := resolver.Resolve(c)
		if err != nil || identity == "" {
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Error:   domain.ErrForbidden.Error(),
				Message: "Unable to determine client identity",
			})
		}
		c.Locals(IdentityContextKey, identity)
		return c.Next()
	}
}

// identityFrom returns the identity stored by IdentityMiddleware.
func identityFrom(c *fiber.Ctx) domain.Identity {
	identity, _ := c.Locals(IdentityContextKey).(domain.Identity)
	return identity
}

// IdentityKey is a rate limit key function keyed by caller identity.
func IdentityKey(c *fiber.Ctx) string {
	return string(identityFrom(c))
}
