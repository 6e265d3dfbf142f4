package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrSecretNotConfigured = errors.New("JWT secret not configured")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrInvalidTokenType    = errors.New("invalid token type")
)

// Claims is the subset of token claims the catalog service reads.
type Claims struct {
	UserID string
	Role   string
	Type   string
}

// TokenValidator verifies HMAC-signed access tokens issued by the auth service.
type TokenValidator struct {
	secret []byte
}

func NewTokenValidator(secret string) *TokenValidator {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &TokenValidator{}
	}
	return &TokenValidator{secret: []byte(secret)}
}

// ParseAndValidateToken parses tokenStr and returns its claims.
// If expectedType is non-empty the "typ" claim must match it.
func (v *TokenValidator) ParseAndValidateToken(tokenStr, expectedType string) (*Claims, error) {
	if v == nil || v.secret == nil {
		return nil, ErrSecretNotConfigured
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	claims.UserID, _ = mc["user_id"].(string)
	if claims.UserID == "" {
		claims.UserID, _ = mc["sub"].(string)
	}
	claims.Role, _ = mc["role"].(string)
	claims.Type, _ = mc["typ"].(string)

	if expectedType != "" && claims.Type != expectedType {
		return nil, ErrInvalidTokenType
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SignToken issues an HS256 token with the same claim layout the auth service uses.
// Used by local tooling and tests.
func (v *TokenValidator) SignToken(userID, role, typ string, ttl time.Duration) (string, error) {
	if v == nil || v.secret == nil {
		return "", ErrSecretNotConfigured
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"typ":     typ,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	return token.SignedString(v.secret)
}
