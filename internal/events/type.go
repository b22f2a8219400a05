package events

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

type EventFilter interface {
	Filter(record events.DynamoDBEventRecord) bool
	Apply(ctx context.Context, record events.DynamoDBEventRecord) error
}

// HandleRecords applies every matching handler to each record. A failing
// handler is logged and stops the remaining handlers for that record only.
func HandleRecords(ctx context.Context, handlers []EventFilter, records []events.DynamoDBEventRecord) int {
	failures := 0
	for _, record := range records {
		for _, handler := range handlers {
			if !handler.Filter(record) {
				continue
			}
			if err := handler.Apply(ctx, record); err != nil {
				failures++
				zap.L().Error("Failed to handle stream record",
					zap.String("eventId", record.EventID),
					zap.String("eventName", record.EventName),
					zap.Error(err))
				break
			}
		}
	}
	return failures
}
