// Package auth issues and validates the bearer tokens protecting the admin
// API. Dashboard sessions are minted by the managed identity provider; this
// service only needs to verify the shared-secret HS256 tokens it forwards.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims the admin API cares about.
type Claims struct {
	AccountID string `json:"sub"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and validates admin API tokens.
type JWTService struct {
	secretKey      []byte
	accessDuration time.Duration
}

// NewJWTService creates a JWTService with the given HS256 secret.
func NewJWTService(secretKey string) *JWTService {
	return &JWTService{
		secretKey:      []byte(secretKey),
		accessDuration: 15 * time.Minute,
	}
}

// GenerateToken mints an access token for an account.
func (j *JWTService) GenerateToken(accountID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		AccountID: accountID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessDuration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateToken parses and verifies a token, returning its claims.
func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
