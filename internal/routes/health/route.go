package health

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/groceries/internal/routes"
	"philcali.me/groceries/internal/routes/util"
)

type Status struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type HealthService struct {
	Now func() time.Time
}

func NewRoute() routes.Service {
	return &HealthService{
		Now: time.Now,
	}
}

func (hs *HealthService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/health": hs.Check,
	}
}

func (hs *HealthService) Check(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	return util.SerializeResponseOK(func(now time.Time) Status {
		return Status{Status: "ok", Timestamp: now.UTC()}
	}, hs.Now(), nil)
}
