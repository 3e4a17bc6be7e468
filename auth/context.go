package auth

import (
	"context"
	"strings"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the per-request caller identity. The zero value is the
// anonymous identity: absence of a token is not a transport-level error,
// authorization is deferred to each operation.
type Identity struct {
	UserID string
}

func (i Identity) Anonymous() bool { return i.UserID == "" }

// WithIdentity stores the caller identity in the request context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the caller identity, anonymous when none was set.
func IdentityFrom(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey).(Identity); ok {
		return id
	}
	return Identity{}
}

// FromAuthorizationHeader derives an identity from an HTTP Authorization
// header. An empty header yields the anonymous identity; a present but
// invalid bearer token is an error, which transports map to 401.
func (s *TokenService) FromAuthorizationHeader(header string) (Identity, error) {
	if header == "" {
		return Identity{}, nil
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")
	userID, err := s.Verify(tokenString)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: userID}, nil
}

// FromConnectionParams derives an identity from the accessToken field of a
// WebSocket connection-init payload. A missing token yields the anonymous
// identity; an invalid one fails closed and the connection attempt must be
// rejected by the caller.
func (s *TokenService) FromConnectionParams(params map[string]any) (Identity, error) {
	token, ok := params["accessToken"].(string)
	if !ok || token == "" {
		return Identity{}, nil
	}
	userID, err := s.Verify(token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: userID}, nil
}
