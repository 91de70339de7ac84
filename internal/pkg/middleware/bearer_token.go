package middleware

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ManuelReschke/Lernhub/internal/pkg/env"
	"github.com/ManuelReschke/Lernhub/internal/pkg/usercontext"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
	ErrNoVerifyKey  = errors.New("no token verification key configured")
)

// TokenVerifier validates identity-provider session tokens. Clerk issues
// RS256 tokens verifiable with the instance's PEM public key; an HS256
// shared secret is accepted for service-to-service callers and local setups.
type TokenVerifier struct {
	publicKey *rsa.PublicKey
	secret    []byte
	leeway    time.Duration
}

// NewTokenVerifier builds a verifier from a PEM encoded RSA public key and/or an HMAC secret.
func NewTokenVerifier(publicKeyPEM, hmacSecret string) (*TokenVerifier, error) {
	v := &TokenVerifier{leeway: 5 * time.Second}
	if pemKey := strings.TrimSpace(publicKeyPEM); pemKey != "" {
		// .env files usually carry the key on one line with literal \n
		pemKey = strings.ReplaceAll(pemKey, `\n`, "\n")
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemKey))
		if err != nil {
			return nil, fmt.Errorf("parse jwt public key: %w", err)
		}
		v.publicKey = key
	}
	if hmacSecret != "" {
		v.secret = []byte(hmacSecret)
	}
	if v.publicKey == nil && v.secret == nil {
		return nil, ErrNoVerifyKey
	}
	return v, nil
}

// NewTokenVerifierFromEnv reads CLERK_JWT_KEY and AUTH_JWT_SECRET.
func NewTokenVerifierFromEnv() (*TokenVerifier, error) {
	return NewTokenVerifier(env.GetEnv("CLERK_JWT_KEY", ""), env.GetEnv("AUTH_JWT_SECRET", ""))
}

// Verify parses the token and returns the caller identity.
func (v *TokenVerifier) Verify(tokenString string) (usercontext.Identity, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc,
		jwt.WithValidMethods([]string{"RS256", "HS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil || !token.Valid {
		return usercontext.Identity{}, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return usercontext.Identity{}, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	return usercontext.Identity{Subject: sub, Email: email}, nil
}

func (v *TokenVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA:
		if v.publicKey == nil {
			return nil, ErrNoVerifyKey
		}
		return v.publicKey, nil
	case *jwt.SigningMethodHMAC:
		if v.secret == nil {
			return nil, ErrNoVerifyKey
		}
		return v.secret, nil
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}

// BearerIdentityMiddleware resolves the caller from the Authorization header.
// Requests without a valid token continue as anonymous; RequireAPIIdentity rejects them.
func BearerIdentityMiddleware(verifier *TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" || verifier == nil {
			return c.Next()
		}

		id, err := verifier.Verify(token)
		if err != nil {
			log.Debugf("[Auth] Rejected bearer token: %v", err)
			return c.Next()
		}
		usercontext.SetIdentity(c, id)
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
