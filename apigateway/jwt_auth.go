// Package gateway implements session credential signing and the HTTP
// middleware shared across huddle-gateway services.
package gateway

import (
	"errors"
	"fmt"
	"time"

	"github.com/alumnihuddle/huddle-gateway/fields"
	"github.com/golang-jwt/jwt"
)

// SessionCookie is the cookie carrying the local session credential.
const SessionCookie = "session"

const issuer = "huddle-gateway"

// JWTAuth signs and verifies local session credentials. The signing key is a
// process-wide secret from configuration; it must be identical across all
// replicas for credentials to verify everywhere.
type JWTAuth struct {
	Config fields.Config
	Key    []byte
}

// TokenClaims is the session credential payload: the local user id plus the
// email and tenant it was issued for.
type TokenClaims struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	TenantID string `json:"tenant_id"`
	jwt.StandardClaims
}

// Init loads the signing key from configuration. A missing key is a fatal
// configuration error; the caller must not serve traffic without one.
func (j *JWTAuth) Init() error {
	if j.Config.JWTKey == "" {
		return errors.New("configuration_error: empty jwt signing key")
	}
	j.Key = []byte(j.Config.JWTKey)
	return nil
}

// GenerateJWT mints a session credential for a user, expiring after the
// configured session lifetime (default 7 days).
func (j *JWTAuth) GenerateJWT(userID uint, email, tenantID string) (string, error) {
	if len(j.Key) == 0 {
		return "", errors.New("empty jwt key")
	}
	lifetime := j.Config.SessionLifetime
	if lifetime <= 0 {
		lifetime = fields.DefaultSessionLifetime
	}
	now := time.Now().UTC()
	claims := TokenClaims{
		UserID:   userID,
		Email:    email,
		TenantID: tenantID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(time.Duration(lifetime) * time.Second).Unix(),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Key)
}

// VerifyJWT validates a session credential and returns its claims. Expired and
// malformed tokens come back as *jwt.ValidationError so callers can tell the
// cases apart.
func (j *JWTAuth) VerifyJWT(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Key, nil
	})
	if err != nil {
		if token != nil {
			if claims, ok := token.Claims.(*TokenClaims); ok {
				return claims, err
			}
		}
		return nil, err
	}
	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// IsExpired reports whether a verification error is specifically expiry.
func IsExpired(err error) bool {
	if ve, ok := err.(*jwt.ValidationError); ok {
		return ve.Errors&jwt.ValidationErrorExpired != 0
	}
	return false
}
