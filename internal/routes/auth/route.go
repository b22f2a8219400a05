package auth

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	identity "philcali.me/groceries/internal/auth"
	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/routes"
	"philcali.me/groceries/internal/routes/util"
)

type AuthService struct {
	sessions *identity.Service
}

func NewRoute(sessions *identity.Service) routes.Service {
	return &AuthService{
		sessions: sessions,
	}
}

func (as *AuthService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"POST:/api/auth/google": as.GoogleLogin,
		"POST:/api/auth/verify": as.Verify,
	}
}

func (as *AuthService) GoogleLogin(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	input := GoogleLoginInput{}
	if err := util.ParseBody(event, &input); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	session, err := as.sessions.Login(ctx, input.Credential)
	return util.SerializeResponseOK(func(s identity.Session) LoginResponse {
		return LoginResponse{
			Token: s.Token,
			User:  NewUser(s.User),
		}
	}, session, err)
}

func (as *AuthService) Verify(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	input := VerifyInput{}
	if err := util.ParseBody(event, &input); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	user, err := as.sessions.VerifySession(ctx, input.Token)
	return util.SerializeResponseOK(func(u data.UserDTO) VerifyResponse {
		return VerifyResponse{User: NewUser(u)}
	}, user, err)
}
