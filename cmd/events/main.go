package main

import (
	"context"
	"fmt"

	lambdaEvents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"
	"philcali.me/groceries/internal/config"
	"philcali.me/groceries/internal/events"
	"philcali.me/groceries/internal/logging"
	"philcali.me/groceries/internal/sns/services"
)

type App struct {
	Handlers []events.EventFilter
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	notifier := services.NewNotificationService(sns.NewFromConfig(awsCfg), cfg.Storage.TopicArn)
	return &App{
		Handlers: []events.EventFilter{
			events.NewPurchaseFinalizedHandler(notifier, cfg.Server.Location),
		},
	}, nil
}

func (app *App) HandleRequest(ctx context.Context, event lambdaEvents.DynamoDBEvent) error {
	defer zap.L().Sync()
	failures := events.HandleRecords(ctx, app.Handlers, event.Records)
	zap.L().Info("Processed stream batch",
		zap.Int("records", len(event.Records)),
		zap.Int("failures", failures))
	return nil
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
	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to start the stream handler: %s", err))
	}
	lambda.Start(app.HandleRequest)
}
