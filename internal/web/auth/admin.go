// Package auth guards the study administration endpoints with a single
// bcrypt-hashed admin password and short-lived JWTs.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer    = "faithdive"
	adminRole = "admin"
)

var (
	// ErrAdminDisabled is returned when no secret or password hash is configured
	ErrAdminDisabled = errors.New("admin access is not configured")
	// ErrInvalidCredentials is returned for a wrong admin password
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for tokens that fail validation
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the JWT claims issued to the admin
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Token is the result of a successful login
type Token struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Admin issues and validates admin tokens
type Admin struct {
	secret       []byte
	passwordHash string
	tokenTTL     time.Duration
	now          func() time.Time
}

// NewAdmin creates the admin authenticator
func NewAdmin(secret, passwordHash string, tokenTTL time.Duration) *Admin {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &Admin{
		secret:       []byte(secret),
		passwordHash: passwordHash,
		tokenTTL:     tokenTTL,
		now:          time.Now,
	}
}

// Enabled reports whether admin login is possible
func (a *Admin) Enabled() bool {
	return len(a.secret) > 0 && a.passwordHash != ""
}

// Login checks the password and issues a token
func (a *Admin) Login(password string) (*Token, error) {
	if !a.Enabled() {
		return nil, ErrAdminDisabled
	}
	if !CheckPassword(password, a.passwordHash) {
		return nil, ErrInvalidCredentials
	}

	now := a.now()
	expires := now.Add(a.tokenTTL)
	claims := Claims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   adminRole,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign admin token: %w", err)
	}
	return &Token{Token: signed, TokenType: "bearer", ExpiresAt: expires.UTC()}, nil
}

// Validate parses a token and checks it was issued to the admin
func (a *Admin) Validate(tokenString string) (*Claims, error) {
	if !a.Enabled() {
		return nil, ErrAdminDisabled
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Role != adminRole {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
