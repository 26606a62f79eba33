// Package auth authenticates upgrade requests and decides whether the
// authenticated user may run captioning sessions on an account.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	platformerrors "captionkit-server-go/internal/platform/errors"
)

// Identity is the authenticated caller extracted from a verified token.
type Identity struct {
	UserID string
	Email  string
}

// AuthToken signs and verifies user scoped JWT tokens.
type AuthToken struct {
	secretKey []byte
	ttl       time.Duration
}

// NewAuthToken builds a token helper using the provided secret.
func NewAuthToken(secretKey string) *AuthToken {
	return &AuthToken{
		secretKey: []byte(secretKey),
		ttl:       4 * time.Hour,
	}
}

// WithTTL allows customising the expiration duration for issued tokens.
func (at *AuthToken) WithTTL(ttl time.Duration) *AuthToken {
	if ttl > 0 {
		at.ttl = ttl
	}
	return at
}

// GenerateToken issues a JWT for the provided user. Used by tests and
// provisioning tooling; live clients bring tokens from the identity service.
func (at *AuthToken) GenerateToken(userID, email string) (string, error) {
	if len(at.secretKey) == 0 {
		return "", platformerrors.New(platformerrors.KindConfig, "auth.generate",
			"token secret is empty")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   now.Add(at.ttl).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindAuth, "auth.generate",
			"failed to sign token", err)
	}
	return signed, nil
}

// VerifyToken validates a raw token value and extracts the caller identity.
// Clients sometimes send a comma separated token list; the last entry is the
// live one.
func (at *AuthToken) VerifyToken(raw string) (*Identity, error) {
	op := "auth.verify"

	if len(at.secretKey) == 0 {
		return nil, platformerrors.New(platformerrors.KindConfig, op, "token secret is empty")
	}

	parts := strings.Split(raw, ",")
	tokenString := strings.TrimSpace(parts[len(parts)-1])
	if tokenString == "" {
		return nil, platformerrors.New(platformerrors.KindAuth, op, "token not provided")
	}
	if !strings.HasPrefix(tokenString, "ey") || strings.Count(tokenString, ".") != 2 {
		return nil, platformerrors.New(platformerrors.KindAuth, op, "malformed token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, platformerrors.New(platformerrors.KindAuth, op, "unexpected signing method")
		}
		return at.secretKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindAuth, op, "token verification failed", err)
	}
	if !token.Valid {
		return nil, platformerrors.New(platformerrors.KindAuth, op, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, platformerrors.New(platformerrors.KindAuth, op, "invalid claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, platformerrors.New(platformerrors.KindAuth, op, "missing sub claim")
	}
	email, _ := claims["email"].(string)

	return &Identity{UserID: sub, Email: email}, nil
}
