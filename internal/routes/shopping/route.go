package shopping

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/groceries/internal/auth"
	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/routes"
	"philcali.me/groceries/internal/routes/util"
	"philcali.me/groceries/internal/shopping"
)

const BASE_PATH = "/api/shopping-list"

type ShoppingListService struct {
	lists *shopping.Service
}

func NewRoute(lists *shopping.Service) routes.Service {
	return &ShoppingListService{
		lists: lists,
	}
}

func (sl *ShoppingListService) GetRoutes() map[string]routes.Route {
	paths := map[string]routes.Route{
		"GET:" + BASE_PATH: util.AuthorizedRoute(sl.GetList(data.ACTIVE)),
		"POST:" + BASE_PATH + "/planning/items/:itemId/include": util.AuthorizedRoute(sl.IncludeItem),
		"POST:" + BASE_PATH + "/planning/copy-to-active":        util.AuthorizedRoute(sl.CopyToActive),
		"POST:" + BASE_PATH + "/active/finish":                  util.AuthorizedRoute(sl.FinishPurchase),
	}
	for listType, segment := range map[data.ListType]string{data.PLANNING: "planning", data.ACTIVE: "active"} {
		path := fmt.Sprintf("%s/%s", BASE_PATH, segment)
		paths["GET:"+path] = util.AuthorizedRoute(sl.GetList(listType))
		paths["POST:"+path+"/items"] = util.AuthorizedRoute(sl.AddItem(listType))
		paths["PUT:"+path+"/items/:itemId"] = util.AuthorizedRoute(sl.UpdateItem(listType))
		paths["DELETE:"+path+"/items/:itemId"] = util.AuthorizedRoute(sl.RemoveItem(listType))
	}
	return paths
}

func (sl *ShoppingListService) respondWithList(ctx context.Context, owner string, listType data.ListType, err error) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	details, err := sl.lists.Get(ctx, owner, listType)
	return util.SerializeResponseOK(NewShoppingList, details, err)
}

func (sl *ShoppingListService) GetList(listType data.ListType) util.AuthorizedHandler {
	return func(event events.APIGatewayV2HTTPRequest, ctx context.Context, identity auth.Identity) (events.APIGatewayV2HTTPResponse, error) {
		details, err := sl.lists.Get(ctx, identity.Email, listType)
		return util.SerializeResponseOK(NewShoppingList, details, err)
	}
}

func (sl *ShoppingListService) AddItem(listType data.ListType) util.AuthorizedHandler {
	return func(event events.APIGatewayV2HTTPRequest, ctx context.Context, identity auth.Identity) (events.APIGatewayV2HTTPResponse, error) {
		input := ShoppingItemInput{}
		if err := util.ParseBody(event, &input); err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		_, err := sl.lists.AddItem(ctx, identity.Email, listType, input.ToData())
		return sl.respondWithList(ctx, identity.Email, listType, err)
	}
}

func (sl *ShoppingListService) UpdateItem(listType data.ListType) util.AuthorizedHandler {
	return func(event events.APIGatewayV2HTTPRequest, ctx context.Context, identity auth.Identity) (events.APIGatewayV2HTTPResponse, error) {
		input := ShoppingItemInput{}
		if err := util.ParseBody(event, &input); err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		_, err := sl.lists.UpdateItem(ctx, identity.Email, listType, util.RequestParam(ctx, "itemId"), input.ToData())
		return sl.respondWithList(ctx, identity.Email, listType, err)
	}
}

func (sl *ShoppingListService) RemoveItem(listType data.ListType) util.AuthorizedHandler {
	return func(event events.APIGatewayV2HTTPRequest, ctx context.Context, identity auth.Identity) (events.APIGatewayV2HTTPResponse, error) {
		err := sl.lists.RemoveItem(ctx, identity.Email, listType, util.RequestParam(ctx, "itemId"))
		return sl.respondWithList(ctx, identity.Email, listType, err)
	}
}

func (sl *ShoppingListService) IncludeItem(event events.APIGatewayV2HTTPRequest, ctx context.Context, identity auth.Identity) (events.APIGatewayV2HTTPResponse, error) {
	_, err := sl.lists.IncludeItem(ctx, identity.Email, util.RequestParam(ctx, "itemId"))
	return sl.respondWithList(ctx, identity.Email, data.PLANNING, err)
}

func (sl *ShoppingListService) CopyToActive(event events.APIGatewayV2HTTPRequest, ctx context.Context, identity auth.Identity) (events.APIGatewayV2HTTPResponse, error) {
	details, err := sl.lists.CopyToActive(ctx, identity.Email)
	return util.SerializeResponseOK(NewShoppingList, details, err)
}

func (sl *ShoppingListService) FinishPurchase(event events.APIGatewayV2HTTPRequest, ctx context.Context, identity auth.Identity) (events.APIGatewayV2HTTPResponse, error) {
	input := FinishInput{}
	if err := util.ParseBody(event, &input); err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	replacement, err := sl.lists.FinishPurchase(ctx, identity.Email, input.TotalValue.Value)
	return util.SerializeResponseOK(func(list data.ShoppingListDTO) FinishResponse {
		return FinishResponse{
			Message: "Compra finalizada com sucesso",
			List: NewShoppingList(data.ShoppingListDetails{
				List:  list,
				Items: make([]data.ShoppingItemDTO, 0),
			}),
		}
	}, replacement, err)
}
