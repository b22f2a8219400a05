package filters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
	"philcali.me/groceries/internal/auth"
)

type FilterContext struct {
	Request  *events.APIGatewayV2HTTPRequest
	Response *events.APIGatewayV2HTTPResponse
	Context  *context.Context
}

type RequestFilter interface {
	Filter(ctx *FilterContext) (*FilterContext, bool)
}

// ResponseFilter is run on the final response of every request, including
// responses produced by a filter breaking the chain.
type ResponseFilter interface {
	After(ctx *FilterContext, response *events.APIGatewayV2HTTPResponse)
}

func (fc *FilterContext) WithContext(ctx context.Context) *FilterContext {
	return &FilterContext{
		Request:  fc.Request,
		Response: fc.Response,
		Context:  &ctx,
	}
}

func (fc *FilterContext) Break(statusCode int, message string) (*FilterContext, bool) {
	body, _ := json.Marshal(map[string]string{"error": message})
	return &FilterContext{
		Request: fc.Request,
		Context: fc.Context,
		Response: &events.APIGatewayV2HTTPResponse{
			Headers: map[string]string{
				"Content-Type":   "application/json",
				"Content-Length": strconv.Itoa(len(body)),
			},
			StatusCode: statusCode,
			Body:       string(body),
		},
	}, true
}

type CorsFilter struct {
	Methods []string
	Origins []string
	Headers []string
}

func (cf *CorsFilter) Filter(ctx *FilterContext) (*FilterContext, bool) {
	if ctx.Request.RequestContext.HTTP.Method == "OPTIONS" {
		headers := ctx.Response.Headers
		if headers == nil {
			headers = make(map[string]string, 4)
		}
		headers["content-length"] = "0"
		headers["access-control-allow-headers"] = strings.Join(cf.Headers, ", ")
		headers["access-control-allow-methods"] = strings.Join(cf.Methods, ", ")
		headers["access-control-allow-origin"] = strings.Join(cf.Origins, ", ")
		return &FilterContext{
			Request: ctx.Request,
			Context: ctx.Context,
			Response: &events.APIGatewayV2HTTPResponse{
				Headers:    headers,
				StatusCode: ctx.Response.StatusCode,
			},
		}, true
	}
	return ctx, false
}

func (cf *CorsFilter) After(ctx *FilterContext, response *events.APIGatewayV2HTTPResponse) {
	if ctx.Request.RequestContext.HTTP.Method == "OPTIONS" {
		return
	}
	if response.Headers == nil {
		response.Headers = make(map[string]string, 1)
	}
	response.Headers["access-control-allow-origin"] = strings.Join(cf.Origins, ", ")
}

type startKey struct{}

// LoggingFilter writes one line per request once the response is known.
type LoggingFilter struct {
	Now func() time.Time
}

func (lf *LoggingFilter) Filter(ctx *FilterContext) (*FilterContext, bool) {
	return ctx.WithContext(context.WithValue(*ctx.Context, startKey{}, lf.Now())), false
}

func (lf *LoggingFilter) After(ctx *FilterContext, response *events.APIGatewayV2HTTPResponse) {
	fields := []zap.Field{
		zap.String("method", ctx.Request.RequestContext.HTTP.Method),
		zap.String("path", ctx.Request.RawPath),
		zap.Int("status", response.StatusCode),
	}
	if start, ok := (*ctx.Context).Value(startKey{}).(time.Time); ok {
		fields = append(fields, zap.Duration("duration", lf.Now().Sub(start)))
	}
	if identity, ok := auth.IdentityFrom(*ctx.Context); ok {
		fields = append(fields, zap.String("email", identity.Email))
	}
	zap.L().Info("Handled request", fields...)
}

// BearerAuthFilter resolves the caller identity for every non public path,
// either from a lambda authorizer context or from the bearer token itself.
type BearerAuthFilter struct {
	Tokens         *auth.TokenService
	PublicPrefixes []string
}

func (bf *BearerAuthFilter) isPublic(path string) bool {
	for _, prefix := range bf.PublicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func AuthorizerIdentity(request *events.APIGatewayV2HTTPRequest) (auth.Identity, bool) {
	if request.RequestContext.Authorizer == nil {
		return auth.Identity{}, false
	}
	email, ok := request.RequestContext.Authorizer.Lambda["email"]
	if !ok || email == nil || fmt.Sprintf("%v", email) == "" {
		return auth.Identity{}, false
	}
	identity := auth.Identity{Email: fmt.Sprintf("%v", email)}
	if name, ok := request.RequestContext.Authorizer.Lambda["name"]; ok && name != nil {
		identity.Name = fmt.Sprintf("%v", name)
	}
	return identity, true
}

func BearerToken(headers map[string]string) string {
	for name, value := range headers {
		if strings.EqualFold(name, "authorization") {
			scheme, token, found := strings.Cut(strings.TrimSpace(value), " ")
			if found && strings.EqualFold(scheme, "bearer") {
				return strings.TrimSpace(token)
			}
			return ""
		}
	}
	return ""
}

func (bf *BearerAuthFilter) Filter(ctx *FilterContext) (*FilterContext, bool) {
	if ctx.Request.RequestContext.HTTP.Method == "OPTIONS" || bf.isPublic(ctx.Request.RawPath) {
		return ctx, false
	}
	if identity, ok := AuthorizerIdentity(ctx.Request); ok {
		return ctx.WithContext(auth.WithIdentity(*ctx.Context, identity)), false
	}
	token := BearerToken(ctx.Request.Headers)
	if token == "" {
		return ctx.Break(http.StatusUnauthorized, "Access token required")
	}
	identity, err := bf.Tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return ctx.Break(http.StatusForbidden, "Invalid or expired token")
		}
		return ctx.Break(http.StatusInternalServerError, err.Error())
	}
	return ctx.WithContext(auth.WithIdentity(*ctx.Context, identity)), false
}

func DefaultFilterContext(event events.APIGatewayV2HTTPRequest, ctx context.Context) *FilterContext {
	return &FilterContext{
		Request: &event,
		Response: &events.APIGatewayV2HTTPResponse{
			StatusCode: 200,
		},
		Context: &ctx,
	}
}

func DefaultCorsFilter(origin string) *CorsFilter {
	methods := [4]string{"GET", "PUT", "POST", "DELETE"}
	headers := [3]string{"Content-Type", "Content-Length", "Authorization"}
	origins := [1]string{origin}
	return &CorsFilter{
		Methods: methods[:],
		Headers: headers[:],
		Origins: origins[:],
	}
}

func DefaultLoggingFilter() *LoggingFilter {
	return &LoggingFilter{
		Now: time.Now,
	}
}

func DefaultAuthorizationFilter(tokens *auth.TokenService) *BearerAuthFilter {
	return &BearerAuthFilter{
		Tokens:         tokens,
		PublicPrefixes: []string{"/api/auth/", "/health"},
	}
}

// DefaultFilters is the chain used by the API: CORS first so preflights
// never need a token.
func DefaultFilters(origin string, tokens *auth.TokenService) []RequestFilter {
	return []RequestFilter{
		DefaultCorsFilter(origin),
		DefaultLoggingFilter(),
		DefaultAuthorizationFilter(tokens),
	}
}
