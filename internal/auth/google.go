package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/idtoken"
	"philcali.me/groceries/internal/exceptions"
)

type GoogleProfile struct {
	Email   string
	Name    string
	Picture string
}

type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (GoogleProfile, error)
}

type IDTokenVerifier struct {
	ClientId string
	Validate func(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

func NewIDTokenVerifier(clientId string) *IDTokenVerifier {
	return &IDTokenVerifier{
		ClientId: clientId,
		Validate: idtoken.Validate,
	}
}

func (v *IDTokenVerifier) Verify(ctx context.Context, credential string) (GoogleProfile, error) {
	if v.ClientId == "" {
		return GoogleProfile{}, exceptions.InternalServer("Server misconfigured: missing Google client id")
	}
	payload, err := v.Validate(ctx, credential, v.ClientId)
	if err != nil {
		zap.L().Info("Rejected Google credential", zap.Error(err))
		return GoogleProfile{}, exceptions.Unauthorized("Invalid Google token")
	}
	return GoogleProfile{
		Email:   claim(payload.Claims, "email"),
		Name:    claim(payload.Claims, "name"),
		Picture: claim(payload.Claims, "picture"),
	}, nil
}

func claim(claims map[string]interface{}, name string) string {
	if value, ok := claims[name]; ok && value != nil {
		return fmt.Sprintf("%v", value)
	}
	return ""
}
