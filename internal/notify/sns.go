package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSender publishes push notifications to a topic. Subscribers filter on the
// user_id message attribute.
type SNSSender struct {
	client   SNSAPI
	topicARN string
}

// NewSNSSender wraps an SNS client.
func NewSNSSender(client SNSAPI, topicARN string) *SNSSender {
	return &SNSSender{client: client, topicARN: topicARN}
}

func (s *SNSSender) Push(ctx context.Context, userID, title, body string, data map[string]string) error {
	attrs := map[string]types.MessageAttributeValue{
		"user_id": {DataType: aws.String("String"), StringValue: aws.String(userID)},
	}
	for k, v := range data {
		attrs[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Subject:           aws.String(title),
		Message:           aws.String(body),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
