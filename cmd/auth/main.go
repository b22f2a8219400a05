package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
	"philcali.me/groceries/internal/auth"
	"philcali.me/groceries/internal/config"
	"philcali.me/groceries/internal/logging"
	"philcali.me/groceries/internal/routes/filters"
)

// Authorizer is the API Gateway lambda authorizer. The verified identity is
// handed to the API through the authorizer context.
type Authorizer struct {
	Tokens *auth.TokenService
}

func (a *Authorizer) HandleRequest(ctx context.Context, event events.APIGatewayV2CustomAuthorizerV2Request) (events.APIGatewayV2CustomAuthorizerSimpleResponse, error) {
	response := events.APIGatewayV2CustomAuthorizerSimpleResponse{
		IsAuthorized: false,
	}
	token := filters.BearerToken(event.Headers)
	if token == "" {
		return response, nil
	}
	identity, err := a.Tokens.Verify(token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			zap.L().Error("Failed to verify token", zap.Error(err))
		}
		return response, nil
	}
	return events.APIGatewayV2CustomAuthorizerSimpleResponse{
		IsAuthorized: true,
		Context: map[string]interface{}{
			"email": identity.Email,
			"name":  identity.Name,
		},
	}, nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %s", err))
	}
	flush, err := logging.Install(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(fmt.Sprintf("Failed to install logger: %s", err))
	}
	defer flush()
	authorizer := &Authorizer{
		Tokens: auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry),
	}
	lambda.Start(authorizer.HandleRequest)
}
