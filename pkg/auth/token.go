// Package auth verifies the bearer tokens this service trusts. Tokens
// are minted elsewhere (account service, or the token subcommand for
// local testing); here they are only parsed and expiry-checked.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"course-media/apperr"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Identity struct {
	UserID uuid.UUID
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type tokenClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

func (m *TokenManager) Issue(userID uuid.UUID, role Role) (string, error) {
	now := time.Now().UTC()
	claims := tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse validates signature, issuer and expiry. Every failure maps to
// the same unauthorized error so callers cannot probe token internals.
func (m *TokenManager) Parse(raw string) (Identity, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(m.issuer))
	if err != nil || !token.Valid {
		return Identity{}, apperr.Auth("invalid or expired token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, apperr.Auth("invalid or expired token")
	}

	role := claims.Role
	if role != RoleAdmin {
		role = RoleUser
	}

	return Identity{UserID: userID, Role: role}, nil
}

func ExtractBearer(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
