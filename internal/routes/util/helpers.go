package util

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"philcali.me/groceries/internal/auth"
	"philcali.me/groceries/internal/exceptions"
	"philcali.me/groceries/internal/routes"
)

type AuthorizedHandler func(event events.APIGatewayV2HTTPRequest, ctx context.Context, identity auth.Identity) (events.APIGatewayV2HTTPResponse, error)

// AuthorizedRoute hands the caller identity resolved by the auth filter to
// the handler.
func AuthorizedRoute(handler AuthorizedHandler) routes.Route {
	return func(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
		if identity, ok := auth.IdentityFrom(ctx); ok {
			return handler(event, ctx, identity)
		}
		return events.APIGatewayV2HTTPResponse{}, exceptions.InternalServer("Unexpected internal error")
	}
}

func RequestParam(ctx context.Context, name string) string {
	return routes.RequestParams(ctx)[name]
}

// ParseBody decodes the JSON body into out. An empty body leaves out as is.
func ParseBody(event events.APIGatewayV2HTTPRequest, out any) error {
	if strings.TrimSpace(event.Body) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(event.Body), out); err != nil {
		return exceptions.InvalidInput(fmt.Sprintf("Invalid request body: %s", err.Error()))
	}
	return nil
}

// QueryInt parses a positive integer query parameter, returning 0 when it is
// absent.
func QueryInt(event events.APIGatewayV2HTTPRequest, name string) (int, error) {
	raw, ok := event.QueryStringParameters[name]
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		return 0, exceptions.InvalidInput(fmt.Sprintf("Query parameter %s must be a positive integer", name))
	}
	return value, nil
}

func SerializeResponse[T interface{}, R interface{}](delayed func(T) R, thing T, err error, statusCode int) (events.APIGatewayV2HTTPResponse, error) {
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	body, err := json.Marshal(delayed(thing))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	headers := map[string]string{
		"Content-Type":   "application/json",
		"Content-Length": strconv.Itoa(len(body)),
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: statusCode,
		Headers:    headers,
		Body:       string(body),
	}, nil
}

func SerializeResponseOK[T interface{}, R interface{}](delayed func(T) R, thing T, err error) (events.APIGatewayV2HTTPResponse, error) {
	return SerializeResponse(delayed, thing, err, 200)
}

func MapOnList[T interface{}, R interface{}](items []T, thunk func(T) R) []R {
	results := make([]R, len(items))
	for i, item := range items {
		results[i] = thunk(item)
	}
	return results
}

// MapOnListPartial lifts thunk for use with SerializeResponseOK.
func MapOnListPartial[T interface{}, R interface{}](thunk func(T) R) func([]T) []R {
	return func(items []T) []R {
		return MapOnList(items, thunk)
	}
}
