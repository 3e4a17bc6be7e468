package services

import (
	"crypto/subtle"
	"fmt"

	"chat-api/auth"
	"chat-api/errors"
	"chat-api/repositories"
)

type IAuthService interface {
	Login(userID, password string) (Token, error)
}

type Token string

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenService
}

func NewAuthService(repo repositories.IUserRepository, tokens *auth.TokenService) IAuthService {
	return &AuthService{userRepository: repo, tokens: tokens}
}

func (s *AuthService) Login(userID, password string) (Token, error) {
	// 1. Validate the request shape before touching storage.
	req := auth.LoginRequest{UserID: userID, Password: password}
	if err := auth.ValidateLogin(req); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidCredentials, err)
	}

	// 2. Retrieve the user record.
	user, err := s.userRepository.GetUser(userID)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", errors.ErrInvalidCredentials
	}

	// 3. Compare credentials. Stored passwords are plain text by contract;
	// the comparison is still constant time.
	if subtle.ConstantTimeCompare([]byte(password), []byte(user.Password)) != 1 {
		return "", errors.ErrInvalidCredentials
	}

	// 4. Issue the JWT token.
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}
