package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/exceptions"
)

type Session struct {
	Token string
	User  data.UserDTO
}

type Service struct {
	Users  data.UserRepository
	Google GoogleVerifier
	Tokens *TokenService
}

func NewService(users data.UserRepository, google GoogleVerifier, tokens *TokenService) *Service {
	return &Service{
		Users:  users,
		Google: google,
		Tokens: tokens,
	}
}

// Login exchanges a Google credential for a session token, creating or
// refreshing the user record.
func (s *Service) Login(ctx context.Context, credential string) (Session, error) {
	if strings.TrimSpace(credential) == "" {
		return Session{}, exceptions.InvalidInput("Google credential is required")
	}
	if err := s.Tokens.Ready(); err != nil {
		return Session{}, err
	}
	profile, err := s.Google.Verify(ctx, credential)
	if err != nil {
		return Session{}, err
	}
	if strings.TrimSpace(profile.Email) == "" || strings.TrimSpace(profile.Name) == "" {
		return Session{}, exceptions.InvalidInput("Google profile is missing email or name")
	}
	input := data.UserInputDTO{
		Name: &profile.Name,
	}
	if profile.Picture != "" {
		input.Picture = &profile.Picture
	}
	user, err := s.Users.Upsert(ctx, profile.Email, input)
	if err != nil {
		return Session{}, err
	}
	token, err := s.Tokens.Issue(Identity{Email: user.Email, Name: user.Name})
	if err != nil {
		return Session{}, err
	}
	zap.L().Info("User logged in", zap.String("email", user.Email))
	return Session{Token: token, User: user}, nil
}

// VerifySession resolves the user behind a session token.
func (s *Service) VerifySession(ctx context.Context, token string) (data.UserDTO, error) {
	if strings.TrimSpace(token) == "" {
		return data.UserDTO{}, exceptions.InvalidInput("Token is required")
	}
	identity, err := s.Tokens.Verify(token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return data.UserDTO{}, exceptions.Unauthorized("Invalid or expired token")
		}
		return data.UserDTO{}, err
	}
	user, err := s.Users.Get(ctx, identity.Email)
	if exceptions.IsNotFound(err) {
		return data.UserDTO{}, exceptions.NotFound("user", "")
	}
	return user, err
}

type identityKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}
