package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
	"philcali.me/groceries/internal/exceptions"
	"philcali.me/groceries/internal/routes/filters"
)

type Route func(event events.APIGatewayV2HTTPRequest, ctx context.Context) (events.APIGatewayV2HTTPResponse, error)

type Service interface {
	GetRoutes() map[string]Route
}

type CachedMatcher struct {
	Matcher    *regexp.Regexp
	ParamNames []string
	Mutex      *sync.Mutex
}

type CachedRoute struct {
	Method  string
	Path    string
	Route   Route
	Matcher *CachedMatcher
}

func (cr *CachedMatcher) Refresh(path string) *regexp.Regexp {
	cr.Mutex.Lock()
	defer cr.Mutex.Unlock()
	if cr.Matcher == nil {
		namex := regexp.MustCompile(":[^/]+")
		regexPath := namex.ReplaceAllStringFunc(path, func(found string) string {
			cr.ParamNames = append(cr.ParamNames, found[1:])
			return "([^/]+)"
		})
		cr.Matcher = regexp.MustCompile("^" + regexPath + "$")
	}
	return cr.Matcher
}

func (cr *CachedRoute) MatchEvent(event events.APIGatewayV2HTTPRequest) (map[string]string, bool) {
	if event.RequestContext.HTTP.Method != cr.Method {
		return nil, false
	}
	if event.RawPath == cr.Path {
		return make(map[string]string), true
	}
	values := cr.Matcher.Refresh(cr.Path).FindStringSubmatch(event.RawPath)
	if values == nil {
		return nil, false
	}
	params := make(map[string]string, len(cr.Matcher.ParamNames))
	for i, p := range cr.Matcher.ParamNames {
		params[p] = values[i+1]
	}
	return params, true
}

type paramsKey struct{}

// RequestParams are the path segments captured by the matched route.
func RequestParams(ctx context.Context) map[string]string {
	if params, ok := ctx.Value(paramsKey{}).(map[string]string); ok {
		return params
	}
	return nil
}

type Router struct {
	Filters []filters.RequestFilter
	Routes  []CachedRoute
}

func NewRouter(fltrs []filters.RequestFilter, services ...Service) *Router {
	var routes []CachedRoute
	for _, service := range services {
		for composite, route := range service.GetRoutes() {
			parts := strings.SplitN(composite, ":", 2)
			cachedRoute := CachedRoute{
				Method: parts[0],
				Path:   parts[1],
				Route:  route,
				Matcher: &CachedMatcher{
					Mutex: &sync.Mutex{},
				},
			}
			routes = append(routes, cachedRoute)
		}
	}
	// Literal paths win over parameterized ones sharing a prefix.
	sortRoutes(routes)
	return &Router{
		Routes:  routes,
		Filters: fltrs,
	}
}

func sortRoutes(routes []CachedRoute) {
	for i := 1; i < len(routes); i++ {
		for j := i; j > 0 && !strings.Contains(routes[j].Path, ":") && strings.Contains(routes[j-1].Path, ":"); j-- {
			routes[j], routes[j-1] = routes[j-1], routes[j]
		}
	}
}

func ErrorResponse(statusCode int, message string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(map[string]string{"error": message})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: statusCode,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type":   "application/json",
			"Content-Length": strconv.Itoa(len(body)),
		},
	}
}

func translateError(event events.APIGatewayV2HTTPRequest, err error) events.APIGatewayV2HTTPResponse {
	statusCode := exceptions.StatusCode(err)
	if statusCode >= http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("method", event.RequestContext.HTTP.Method),
			zap.String("path", event.RawPath),
			zap.Error(err))
		var se *exceptions.ServiceError
		if !errors.As(err, &se) {
			return ErrorResponse(statusCode, "Internal server error")
		}
	}
	return ErrorResponse(statusCode, err.Error())
}

func (r *Router) Invoke(event events.APIGatewayV2HTTPRequest, ctx context.Context) events.APIGatewayV2HTTPResponse {
	filterContext := filters.DefaultFilterContext(event, ctx)
	response := r.dispatch(filterContext)
	for _, filter := range r.Filters {
		if after, ok := filter.(filters.ResponseFilter); ok {
			after.After(filterContext, &response)
		}
	}
	return response
}

func (r *Router) dispatch(filterContext *filters.FilterContext) events.APIGatewayV2HTTPResponse {
	for _, filter := range r.Filters {
		updatedContext, broken := filter.Filter(filterContext)
		if broken {
			*filterContext = *updatedContext
			return *updatedContext.Response
		}
		*filterContext = *updatedContext
	}
	event := *filterContext.Request
	for _, route := range r.Routes {
		if params, ok := route.MatchEvent(event); ok {
			resp, err := route.Route(event, context.WithValue(*filterContext.Context, paramsKey{}, params))
			if err != nil {
				return translateError(event, err)
			}
			return resp
		}
	}
	return translateError(event, exceptions.NotFound("route", event.RawPath))
}
