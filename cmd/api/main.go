package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"philcali.me/groceries/internal/auth"
	"philcali.me/groceries/internal/config"
	"philcali.me/groceries/internal/dynamodb/items"
	"philcali.me/groceries/internal/dynamodb/lists"
	"philcali.me/groceries/internal/dynamodb/users"
	"philcali.me/groceries/internal/history"
	"philcali.me/groceries/internal/logging"
	"philcali.me/groceries/internal/routes"
	authRoutes "philcali.me/groceries/internal/routes/auth"
	"philcali.me/groceries/internal/routes/filters"
	"philcali.me/groceries/internal/routes/health"
	historyRoutes "philcali.me/groceries/internal/routes/history"
	shoppingRoutes "philcali.me/groceries/internal/routes/shopping"
	"philcali.me/groceries/internal/shopping"
)

type App struct {
	Router *routes.Router
	Flush  func()
}

func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	flush, err := logging.Install(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg)
	listData := lists.NewShoppingListService(cfg.Storage.TableName, cfg.Storage.IndexName, client)
	itemData := items.NewShoppingItemService(cfg.Storage.TableName, client)
	userData := users.NewUserService(cfg.Storage.TableName, client)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	sessions := auth.NewService(userData, auth.NewIDTokenVerifier(cfg.Auth.GoogleClientId), tokens)
	router := routes.NewRouter(
		filters.DefaultFilters(cfg.Server.FrontendURL, tokens),
		authRoutes.NewRoute(sessions),
		shoppingRoutes.NewRoute(shopping.NewService(listData, itemData)),
		historyRoutes.NewRoute(history.NewService(listData, itemData, cfg.Server.Location)),
		health.NewRoute(),
	)
	zap.L().Info("Router ready",
		zap.Int("routes", len(router.Routes)),
		zap.String("table", cfg.Storage.TableName))
	return &App{
		Router: router,
		Flush:  flush,
	}, nil
}

func (app *App) HandleRequest(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	defer zap.L().Sync()
	return app.Router.Invoke(request, ctx), nil
}

func main() {
	app, err := NewApp(context.Background())
	if err != nil {
		panic(fmt.Sprintf("Failed to start the API: %s", err))
	}
	defer app.Flush()
	lambda.Start(app.HandleRequest)
}
