package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"philcali.me/groceries/internal/exceptions"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Identity struct {
	Email string
	Name  string
}

// SessionClaims is the payload of a session token. The name claim keeps the
// key existing clients already read.
type SessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"nome"`
	jwt.RegisteredClaims
}

type TokenService struct {
	Secret string
	Expiry time.Duration
	Now    func() time.Time
}

func NewTokenService(secret string, expiry time.Duration) *TokenService {
	return &TokenService{
		Secret: secret,
		Expiry: expiry,
		Now:    time.Now,
	}
}

func (ts *TokenService) Ready() error {
	if ts == nil || ts.Secret == "" {
		return exceptions.InternalServer("Server misconfigured: missing session secret")
	}
	return nil
}

func (ts *TokenService) Issue(identity Identity) (string, error) {
	if err := ts.Ready(); err != nil {
		return "", err
	}
	now := ts.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Email: identity.Email,
		Name:  identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.Expiry)),
		},
	})
	return token.SignedString([]byte(ts.Secret))
}

// Verify returns the identity carried by a valid token. Any rejected token
// yields an error wrapping ErrInvalidToken.
func (ts *TokenService) Verify(tokenString string) (Identity, error) {
	if err := ts.Ready(); err != nil {
		return Identity{}, err
	}
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(ts.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.Now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Email == "" {
		return Identity{}, fmt.Errorf("%w: missing email claim", ErrInvalidToken)
	}
	return Identity{
		Email: claims.Email,
		Name:  claims.Name,
	}, nil
}
