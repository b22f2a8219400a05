package history

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/groceries/internal/auth"
	"philcali.me/groceries/internal/history"
	"philcali.me/groceries/internal/routes"
	"philcali.me/groceries/internal/routes/shopping"
	"philcali.me/groceries/internal/routes/util"
)

type HistoryService struct {
	history *history.Service
}

func NewRoute(service *history.Service) routes.Service {
	return &HistoryService{
		history: service,
	}
}

func (hs *HistoryService) GetRoutes() map[string]routes.Route {
	return map[string]routes.Route{
		"GET:/api/history":                        util.AuthorizedRoute(hs.ListPurchases),
		"GET:/api/history/analytics/monthly":      util.AuthorizedRoute(hs.Monthly),
		"GET:/api/history/analytics/top-products": util.AuthorizedRoute(hs.TopProducts),
		"GET:/api/history/analytics/stats":        util.AuthorizedRoute(hs.Stats),
	}
}

func queryInts(event events.APIGatewayV2HTTPRequest, names ...string) ([]int, error) {
	values := make([]int, len(names))
	for i, name := range names {
		value, err := util.QueryInt(event, name)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

func (hs *HistoryService) ListPurchases(event events.APIGatewayV2HTTPRequest, ctx context.Context, identity auth.Identity) (events.APIGatewayV2HTTPResponse, error) {
	values, err := queryInts(event, "month", "year", "limit")
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	purchases, err := hs.history.History(ctx, identity.Email, history.HistoryQuery{
		Month: values[0],
		Year:  values[1],
		Limit: values[2],
	})
	return util.SerializeResponseOK(util.MapOnListPartial(shopping.NewShoppingList), purchases, err)
}

func (hs *HistoryService) Monthly(event events.APIGatewayV2HTTPRequest, ctx context.Context, identity auth.Identity) (events.APIGatewayV2HTTPResponse, error) {
	values, err := queryInts(event, "months")
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	summaries, err := hs.history.Monthly(ctx, identity.Email, values[0])
	return util.SerializeResponseOK(util.MapOnListPartial(NewMonthlyAnalytics), summaries, err)
}

func (hs *HistoryService) TopProducts(event events.APIGatewayV2HTTPRequest, ctx context.Context, identity auth.Identity) (events.APIGatewayV2HTTPResponse, error) {
	values, err := queryInts(event, "limit", "months")
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	products, err := hs.history.TopProducts(ctx, identity.Email, values[0], values[1])
	return util.SerializeResponseOK(util.MapOnListPartial(NewTopProduct), products, err)
}

func (hs *HistoryService) Stats(event events.APIGatewayV2HTTPRequest, ctx context.Context, identity auth.Identity) (events.APIGatewayV2HTTPResponse, error) {
	stats, err := hs.history.Stats(ctx, identity.Email)
	return util.SerializeResponseOK(NewGeneralStats, stats, err)
}
