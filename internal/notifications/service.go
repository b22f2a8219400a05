package notifications

import "context"

type Notification struct {
	Subject    string
	Message    string
	Attributes map[string]string
}

type PublishOutput struct {
	MessageId string
}

type NotificationService interface {
	Publish(ctx context.Context, notification Notification) (*PublishOutput, error)
}
