package events

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"philcali.me/groceries/internal/data"
	"philcali.me/groceries/internal/notifications"
)

const PURCHASE_SUBJECT = "Purchase finalized"

// PurchaseFinalizedHandler announces every active list that moves from
// active to finalized.
type PurchaseFinalizedHandler struct {
	Notifications notifications.NotificationService
	Location      *time.Location
}

func NewPurchaseFinalizedHandler(service notifications.NotificationService, location *time.Location) *PurchaseFinalizedHandler {
	if location == nil {
		location = time.UTC
	}
	return &PurchaseFinalizedHandler{
		Notifications: service,
		Location:      location,
	}
}

func (ph *PurchaseFinalizedHandler) Filter(record events.DynamoDBEventRecord) bool {
	return record.EventName == "MODIFY" &&
		resourceType(record) == "ShoppingList" &&
		stringField(record.Change.OldImage, "status") == string(data.STATUS_ACTIVE) &&
		stringField(record.Change.NewImage, "status") == string(data.STATUS_FINALIZED)
}

func (ph *PurchaseFinalizedHandler) Apply(ctx context.Context, record events.DynamoDBEventRecord) error {
	list, err := DecodeImage[data.ShoppingListDTO](record.Change.NewImage)
	if err != nil {
		return err
	}
	output, err := ph.Notifications.Publish(ctx, PurchaseNotification(list, ph.Location))
	if err != nil {
		return err
	}
	zap.L().Info("Published finalized purchase",
		zap.String("owner", list.Owner),
		zap.String("listId", list.SK),
		zap.String("messageId", output.MessageId))
	return nil
}

func PurchaseNotification(list data.ShoppingListDTO, location *time.Location) notifications.Notification {
	total := "not informed"
	if list.TotalValue != nil {
		total = decimal.NewFromFloat(*list.TotalValue).StringFixed(2)
	}
	finalized := "unknown"
	if list.FinalizeTime != nil {
		finalized = list.FinalizeTime.In(location).Format(time.RFC3339)
	}
	return notifications.Notification{
		Subject: PURCHASE_SUBJECT,
		Message: fmt.Sprintf("Purchase %s by %s was finalized at %s with total %s", list.SK, list.Owner, finalized, total),
		Attributes: map[string]string{
			"owner":  list.Owner,
			"listId": list.SK,
		},
	}
}
