// Package notify delivers user-facing notifications over email and push/SMS.
package notify

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"github.com/richharbor/access-service/internal/config"
)

// EmailSender delivers a plain-text email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// PushSender fans a short message out to the user's devices.
type PushSender interface {
	Push(ctx context.Context, userID, title, body string, data map[string]string) error
}

// Senders bundles the configured channels.
type Senders struct {
	Email EmailSender
	Push  PushSender
}

// NewSenders builds SES and SNS senders when AWS is configured, falling back
// to log-only senders for any channel that is not.
func NewSenders(ctx context.Context, cfg config.NotificationConfig, logger *zap.Logger) (Senders, error) {
	fallback := NewLogSender(logger)
	senders := Senders{Email: fallback, Push: fallback}
	if cfg.AWSRegion == "" {
		logger.Info("AWS_REGION not set; notifications are logged only")
		return senders, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return Senders{}, err
	}
	if cfg.EmailFrom != "" {
		senders.Email = NewSESSender(ses.NewFromConfig(awsCfg), cfg.EmailFrom)
	}
	if cfg.SNSTopicARN != "" {
		senders.Push = NewSNSSender(sns.NewFromConfig(awsCfg), cfg.SNSTopicARN)
	}
	return senders, nil
}
