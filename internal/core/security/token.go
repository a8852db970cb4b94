package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"agora/internal/core/actor"
	"agora/internal/core/id"
)

// Claims carried in access tokens.
type Claims struct {
	Username   string `json:"username"`
	Admin      bool   `json:"admin"`
	Moderator  bool   `json:"moderator"`
	TrustLevel int    `json:"trust_level"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HMAC-signed access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a token manager with the given signing secret.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for the actor.
func (m *TokenManager) Issue(a actor.Actor) (string, error) {
	now := time.Now()
	claims := Claims{
		Username:   a.Username,
		Admin:      a.Admin,
		Moderator:  a.Moderator,
		TrustLevel: a.TrustLevel,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses and verifies a token, returning the embedded actor.
func (m *TokenManager) Validate(tokenString string) (actor.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return actor.Actor{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return actor.Actor{}, fmt.Errorf("invalid token")
	}

	userID, err := id.Parse(claims.Subject)
	if err != nil {
		return actor.Actor{}, fmt.Errorf("parse subject: %w", err)
	}

	return actor.Actor{
		UserID:     userID,
		Username:   claims.Username,
		Admin:      claims.Admin,
		Moderator:  claims.Moderator,
		TrustLevel: claims.TrustLevel,
	}, nil
}
