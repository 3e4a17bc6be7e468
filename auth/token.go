package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chat-api/errors"
)

// Claims is the data carried inside an issued JWT. The user identity
// travels in the registered "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed bearer tokens. The signing key
// is injected at construction (decoded from JWT_SECRET) rather than held
// in package state, so the service owns the full credential lifecycle.
type TokenService struct {
	key      []byte
	duration time.Duration
}

func NewTokenService(key []byte, duration time.Duration) *TokenService {
	return &TokenService{key: key, duration: duration}
}

// Issue creates a signed JWT for a specific user using the HS256 algorithm.
func (s *TokenService) Issue(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chat-api",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	return signed, nil
}

// Verify parses and validates the signature and expiration of a JWT string,
// returning the subject user id. Any failure surfaces as ErrInvalidToken so
// callers can treat it as "unauthenticated" rather than a server fault.
func (s *TokenService) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", errors.ErrInvalidToken
	}
	return claims.Subject, nil
}
