package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"philcali.me/groceries/internal/exceptions"
	"philcali.me/groceries/internal/notifications"
)

type SNSClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type NotificationSNSService struct {
	Sns      SNSClient
	TopicArn string
}

func NewNotificationService(client SNSClient, topicArn string) *NotificationSNSService {
	return &NotificationSNSService{
		Sns:      client,
		TopicArn: topicArn,
	}
}

func (n *NotificationSNSService) Publish(ctx context.Context, notification notifications.Notification) (*notifications.PublishOutput, error) {
	if n.TopicArn == "" {
		return nil, exceptions.InternalServer("Notification topic is not configured")
	}
	attributes := make(map[string]types.MessageAttributeValue, len(notification.Attributes))
	for name, value := range notification.Attributes {
		attributes[name] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(value),
		}
	}
	output, err := n.Sns.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(n.TopicArn),
		Subject:           aws.String(notification.Subject),
		Message:           aws.String(notification.Message),
		MessageAttributes: attributes,
	})
	if err != nil {
		return nil, err
	}
	return &notifications.PublishOutput{
		MessageId: aws.ToString(output.MessageId),
	}, nil
}
