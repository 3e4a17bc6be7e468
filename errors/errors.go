package errors

import "fmt"

var (
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidToken       = fmt.Errorf("invalid token")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrEmptyMessage       = fmt.Errorf("message text is empty")
	ErrUnknownUser        = fmt.Errorf("unknown user")
)
