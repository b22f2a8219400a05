package routes_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/maps"
	"philcali.me/groceries/internal/auth"
	"philcali.me/groceries/internal/history"
	"philcali.me/groceries/internal/routes"
	authRoutes "philcali.me/groceries/internal/routes/auth"
	"philcali.me/groceries/internal/routes/filters"
	"philcali.me/groceries/internal/routes/health"
	historyRoutes "philcali.me/groceries/internal/routes/history"
	"philcali.me/groceries/internal/routes/shopping"
	shoppingService "philcali.me/groceries/internal/shopping"
	"philcali.me/groceries/internal/test"
)

type LocalGoogle struct {
	Profiles map[string]auth.GoogleProfile
}

func (lg *LocalGoogle) Verify(ctx context.Context, credential string) (auth.GoogleProfile, error) {
	if profile, ok := lg.Profiles[credential]; ok {
		return profile, nil
	}
	return auth.GoogleProfile{}, fmt.Errorf("unknown credential %s", credential)
}

type LocalServer struct {
	Router *routes.Router
	Store  *test.MemoryStore
	Tokens *auth.TokenService
	Token  string
}

func NewLocalServer(t *testing.T) *LocalServer {
	store := test.NewMemoryStore()
	tokens := auth.NewTokenService("router-secret", time.Hour)
	google := &LocalGoogle{
		Profiles: map[string]auth.GoogleProfile{
			"good-credential": {Email: "Maria@Example.com", Name: "Maria", Picture: "https://example.com/maria.png"},
		},
	}
	router := routes.NewRouter(
		filters.DefaultFilters("*", tokens),
		authRoutes.NewRoute(auth.NewService(store.Users(), google, tokens)),
		shopping.NewRoute(shoppingService.NewService(store.Lists(), store.Items())),
		historyRoutes.NewRoute(history.NewService(store.Lists(), store.Items(), time.UTC)),
		health.NewRoute(),
	)
	token, err := tokens.Issue(auth.Identity{Email: "maria@example.com", Name: "Maria"})
	require.NoError(t, err)
	return &LocalServer{
		Router: router,
		Store:  store,
		Tokens: tokens,
		Token:  token,
	}
}

func (ls *LocalServer) Request(t *testing.T, method string, path string, body any, out any, params map[string]string) events.APIGatewayV2HTTPResponse {
	request := events.APIGatewayV2HTTPRequest{
		RawPath:               path,
		QueryStringParameters: params,
		Headers:               map[string]string{},
	}
	request.RequestContext.HTTP.Method = method
	request.RequestContext.HTTP.Path = path
	if ls.Token != "" {
		request.Headers["Authorization"] = "Bearer " + ls.Token
	}
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err, "Failed to serialize input")
		request.Body = string(payload)
	}
	response := ls.Router.Invoke(request, context.TODO())
	if out != nil {
		// Decoding into a reused value keeps fields the response omits.
		target := reflect.ValueOf(out).Elem()
		target.Set(reflect.Zero(target.Type()))
		require.NoError(t, json.Unmarshal([]byte(response.Body), out), "Failed to deserialize payload for %s %s: %s", method, path, response.Body)
	}
	return response
}

func (ls *LocalServer) Get(t *testing.T, out any, path string) events.APIGatewayV2HTTPResponse {
	return ls.Request(t, "GET", path, nil, out, nil)
}

func (ls *LocalServer) GetQuery(t *testing.T, out any, path string, params map[string]string) events.APIGatewayV2HTTPResponse {
	return ls.Request(t, "GET", path, nil, out, params)
}

func (ls *LocalServer) Post(t *testing.T, out any, path string, body any) events.APIGatewayV2HTTPResponse {
	return ls.Request(t, "POST", path, body, out, nil)
}

func (ls *LocalServer) Put(t *testing.T, out any, path string, body any) events.APIGatewayV2HTTPResponse {
	return ls.Request(t, "PUT", path, body, out, nil)
}

func (ls *LocalServer) Delete(t *testing.T, out any, path string) events.APIGatewayV2HTTPResponse {
	return ls.Request(t, "DELETE", path, nil, out, nil)
}

type errorBody struct {
	Error string `json:"error"`
}

func requireOK(t *testing.T, response events.APIGatewayV2HTTPResponse) {
	t.Helper()
	require.Equal(t, http.StatusOK, response.StatusCode, response.Body)
}

func TestAuthentication(t *testing.T) {
	server := NewLocalServer(t)

	t.Run("MissingToken", func(t *testing.T) {
		anonymous := *server
		anonymous.Token = ""
		var body errorBody
		response := anonymous.Get(t, &body, "/api/shopping-list/active")
		assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
		assert.Equal(t, "Access token required", body.Error)
		assert.Equal(t, "*", response.Headers["access-control-allow-origin"])
	})

	t.Run("InvalidToken", func(t *testing.T) {
		forged := *server
		forged.Token = "not-a-jwt"
		var body errorBody
		response := forged.Get(t, &body, "/api/shopping-list/active")
		assert.Equal(t, http.StatusForbidden, response.StatusCode)
		assert.Equal(t, "Invalid or expired token", body.Error)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		past := auth.NewTokenService("router-secret", time.Hour)
		past.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.Issue(auth.Identity{Email: "maria@example.com", Name: "Maria"})
		require.NoError(t, err)
		expired := *server
		expired.Token = token
		response := expired.Get(t, nil, "/api/shopping-list/active")
		assert.Equal(t, http.StatusForbidden, response.StatusCode)
	})

	t.Run("AuthorizerContext", func(t *testing.T) {
		request := events.APIGatewayV2HTTPRequest{RawPath: "/api/shopping-list/planning"}
		request.RequestContext.HTTP.Method = "GET"
		request.RequestContext.Authorizer = &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
			Lambda: map[string]interface{}{"email": "joao@example.com", "name": "Joao"},
		}
		response := server.Router.Invoke(request, context.TODO())
		requireOK(t, response)
		var list shopping.ShoppingList
		require.NoError(t, json.Unmarshal([]byte(response.Body), &list))
		assert.Equal(t, "joao@example.com", list.Owner)
		assert.Equal(t, "planejamento", list.Type)
	})

	t.Run("GoogleLogin", func(t *testing.T) {
		anonymous := *server
		anonymous.Token = ""
		var login authRoutes.LoginResponse
		requireOK(t, anonymous.Post(t, &login, "/api/auth/google", authRoutes.GoogleLoginInput{Credential: "good-credential"}))
		assert.NotEmpty(t, login.Token)
		assert.Equal(t, "maria@example.com", login.User.Email)
		require.NotNil(t, login.User.Picture)

		var verified authRoutes.VerifyResponse
		requireOK(t, anonymous.Post(t, &verified, "/api/auth/verify", authRoutes.VerifyInput{Token: login.Token}))
		assert.Equal(t, "Maria", verified.User.Name)

		var body errorBody
		response := anonymous.Post(t, &body, "/api/auth/google", authRoutes.GoogleLoginInput{})
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
		assert.NotEmpty(t, body.Error)

		response = anonymous.Post(t, nil, "/api/auth/verify", authRoutes.VerifyInput{Token: "garbage"})
		assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
	})

	t.Run("Health", func(t *testing.T) {
		anonymous := *server
		anonymous.Token = ""
		var status health.Status
		requireOK(t, anonymous.Get(t, &status, "/health"))
		assert.Equal(t, "ok", status.Status)
		assert.False(t, status.Timestamp.IsZero())
	})
}

func TestShoppingWorkflow(t *testing.T) {
	server := NewLocalServer(t)

	var planning shopping.ShoppingList
	requireOK(t, server.Get(t, &planning, "/api/shopping-list/planning"))
	assert.Equal(t, "planejamento", planning.Type)
	assert.Equal(t, "ativa", planning.Status)
	assert.Equal(t, planning.Id, planning.LegacyId)
	assert.Empty(t, planning.Items)

	requireOK(t, server.Post(t, &planning, "/api/shopping-list/planning/items", map[string]any{
		"nome_produto":   "Arroz",
		"quantidade":     2,
		"valor_unitario": "5.50",
	}))
	require.Len(t, planning.Items, 1)
	rice := planning.Items[0]
	assert.Equal(t, 2, rice.Quantity)
	require.NotNil(t, rice.UnitPrice)
	assert.Equal(t, 5.5, *rice.UnitPrice)
	assert.False(t, rice.Included)

	var body errorBody
	response := server.Post(t, &body, "/api/shopping-list/planning/items", map[string]any{"nome_produto": " arroz "})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.NotEmpty(t, body.Error)

	response = server.Post(t, nil, "/api/shopping-list/planning/items", map[string]any{"nome_produto": "Sal", "quantidade": 0})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	var cleared shopping.ShoppingList
	response = server.Put(t, &cleared, "/api/shopping-list/planning/items/"+rice.Id, map[string]any{
		"quantidade":     3,
		"valor_unitario": nil,
	})
	requireOK(t, response)
	assert.NotContains(t, response.Body, "valor_unitario")
	require.Len(t, cleared.Items, 1)
	assert.Equal(t, 3, cleared.Items[0].Quantity)
	assert.Nil(t, cleared.Items[0].UnitPrice)

	requireOK(t, server.Get(t, &planning, "/api/shopping-list/planning"))
	require.Len(t, planning.Items, 1)
	assert.Nil(t, planning.Items[0].UnitPrice)

	response = server.Put(t, nil, "/api/shopping-list/planning/items/missing", map[string]any{"quantidade": 1})
	assert.Equal(t, http.StatusNotFound, response.StatusCode)

	requireOK(t, server.Post(t, &planning, "/api/shopping-list/planning/items", map[string]any{"nome_produto": "Feijao"}))
	require.Len(t, planning.Items, 2)
	beans := planning.Items[1]
	assert.Equal(t, 1, beans.Quantity)

	requireOK(t, server.Post(t, &planning, fmt.Sprintf("/api/shopping-list/planning/items/%s/include", beans.Id), nil))
	for _, item := range planning.Items {
		assert.Equal(t, item.Id == beans.Id, item.Included, item.Name)
	}

	var active shopping.ShoppingList
	requireOK(t, server.Get(t, &active, "/api/shopping-list/active"))
	require.Len(t, active.Items, 1)
	assert.Equal(t, "Feijao", active.Items[0].Name)

	var alias shopping.ShoppingList
	requireOK(t, server.Get(t, &alias, "/api/shopping-list"))
	assert.Equal(t, active.Id, alias.Id)

	requireOK(t, server.Post(t, &active, "/api/shopping-list/planning/copy-to-active", nil))
	assert.Equal(t, "ativa", active.Type)
	assert.Len(t, active.Items, 2)

	requireOK(t, server.Put(t, &active, "/api/shopping-list/active/items/"+active.Items[0].Id, map[string]any{
		"comprado": true,
	}))
	assert.True(t, active.Items[0].Purchased)

	requireOK(t, server.Delete(t, &planning, "/api/shopping-list/planning/items/"+rice.Id))
	assert.Len(t, planning.Items, 1)
	response = server.Delete(t, nil, "/api/shopping-list/planning/items/"+rice.Id)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)

	response = server.Post(t, nil, "/api/shopping-list/active/finish", map[string]any{"valor_total": -1})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)

	var finished shopping.FinishResponse
	requireOK(t, server.Post(t, &finished, "/api/shopping-list/active/finish", map[string]any{"valor_total": 42.5}))
	assert.Equal(t, "Compra finalizada com sucesso", finished.Message)
	assert.NotEqual(t, active.Id, finished.List.Id)
	assert.Equal(t, "ativa", finished.List.Status)
	assert.NotNil(t, finished.List.Items)
	assert.Empty(t, finished.List.Items)

	var purchases []shopping.ShoppingList
	requireOK(t, server.Get(t, &purchases, "/api/history"))
	require.Len(t, purchases, 1)
	assert.Equal(t, active.Id, purchases[0].Id)
	assert.Equal(t, "finalizada", purchases[0].Status)
	require.NotNil(t, purchases[0].FinalizeTime)
	require.NotNil(t, purchases[0].TotalValue)
	assert.Equal(t, 42.5, *purchases[0].TotalValue)
	require.Len(t, purchases[0].Items, 2)
	for _, item := range purchases[0].Items {
		assert.True(t, item.Purchased, item.Name)
	}

	var stats historyRoutes.GeneralStats
	requireOK(t, server.Get(t, &stats, "/api/history/analytics/stats"))
	assert.Equal(t, 1, stats.TotalPurchases)
	assert.Equal(t, 42.5, stats.TotalSpent)
	assert.Equal(t, 42.5, stats.AverageTicket)
	assert.Equal(t, 1, stats.CurrentMonth.Purchases)
	assert.Equal(t, 0, stats.ActiveItemsCount)

	var monthly []historyRoutes.MonthlyAnalytics
	requireOK(t, server.GetQuery(t, &monthly, "/api/history/analytics/monthly", map[string]string{"months": "3"}))
	require.Len(t, monthly, 1)
	assert.Equal(t, 1, monthly[0].PurchaseCount)
	assert.Equal(t, 42.5, monthly[0].TotalSpent)

	var products []historyRoutes.TopProduct
	requireOK(t, server.GetQuery(t, &products, "/api/history/analytics/top-products", map[string]string{"limit": "1"}))
	require.Len(t, products, 1)
	assert.Equal(t, "Arroz", products[0].Name)
	assert.Equal(t, 3, products[0].TotalQuantity)

	response = server.GetQuery(t, nil, "/api/history", map[string]string{"limit": "zero"})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	response = server.GetQuery(t, nil, "/api/history", map[string]string{"month": "13", "year": "2026"})
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
}

func TestFinishWithoutItems(t *testing.T) {
	server := NewLocalServer(t)
	var body errorBody
	response := server.Post(t, &body, "/api/shopping-list/active/finish", nil)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)

	requireOK(t, server.Get(t, nil, "/api/shopping-list/active"))
	response = server.Post(t, &body, "/api/shopping-list/active/finish", nil)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.NotEmpty(t, body.Error)
}

func TestRouter(t *testing.T) {
	server := NewLocalServer(t)

	t.Run("UnknownRoute", func(t *testing.T) {
		var body errorBody
		response := server.Get(t, &body, "/api/pantry")
		assert.Equal(t, http.StatusNotFound, response.StatusCode)
		assert.NotEmpty(t, body.Error)
		assert.Equal(t, "application/json", response.Headers["Content-Type"])
	})

	t.Run("MalformedBody", func(t *testing.T) {
		request := events.APIGatewayV2HTTPRequest{
			RawPath: "/api/shopping-list/active/items",
			Headers: map[string]string{"authorization": "Bearer " + server.Token},
			Body:    "{not json",
		}
		request.RequestContext.HTTP.Method = "POST"
		response := server.Router.Invoke(request, context.TODO())
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})

	t.Run("InvalidPrice", func(t *testing.T) {
		response := server.Post(t, nil, "/api/shopping-list/active/items", map[string]any{
			"nome_produto":   "Leite",
			"valor_unitario": "abc",
		})
		assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	})

	t.Run("CorsPreflight", func(t *testing.T) {
		preflight := server.Request(t, "OPTIONS", "/api/shopping-list/active", nil, nil, nil)
		assert.Equal(t, http.StatusOK, preflight.StatusCode)
		assert.Empty(t, preflight.Body)
		expected := map[string]string{
			"content-length":               "0",
			"access-control-allow-headers": "Content-Type, Content-Length, Authorization",
			"access-control-allow-methods": "GET, PUT, POST, DELETE",
			"access-control-allow-origin":  "*",
		}
		assert.True(t, maps.Equal(preflight.Headers, expected), "Headers from preflight %v, do not match expected %v", preflight.Headers, expected)
	})
}
