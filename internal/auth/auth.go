// Package auth handles password hashing and bearer-token identity. The core
// services never see credentials, only the resolved Identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"lavanderia/internal/core"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller, resolved from a verified token.
type Identity struct {
	UserID int64
	Role   core.Role
}

type contextKey struct{}

// WithIdentity stores the identity in the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom extracts the identity placed by the auth middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// HashSenha hashes a plaintext password with bcrypt.
func HashSenha(senha string) (string, error) {
	if len(senha) < 6 {
		return "", core.NewValidationError("senha must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(senha), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash senha: %w", err)
	}
	return string(hash), nil
}

// CheckSenha reports whether the plaintext password matches the stored hash.
func CheckSenha(hash, senha string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(senha)) == nil
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 JWTs carrying the user id and role.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the user, expiring after the configured TTL.
func (m *TokenManager) Issue(user core.User, now time.Time) (string, error) {
	claims := tokenClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the caller identity.
func (m *TokenManager) Verify(tokenString string) (Identity, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrInvalidToken
	}
	role := core.Role(claims.Role)
	if !role.Valid() {
		role = core.RoleUser
	}

	return Identity{UserID: userID, Role: role}, nil
}
