package mail

import (
	"context"
	"fmt"

	"github.com/ManuelReschke/Lernhub/internal/pkg/env"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// sesAPI is the part of the SES client we use.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender sends mail through Amazon SES.
type SESSender struct {
	client sesAPI
	from   string
}

func NewSESSender(ctx context.Context, region, from string) (*SESSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESSender{client: ses.NewFromConfig(cfg), from: from}, nil
}

func (s *SESSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", to, err)
	}
	return nil
}

// NewSenderFromEnv picks the transport named by MAIL_TRANSPORT ("smtp" or "ses").
func NewSenderFromEnv(ctx context.Context) (Sender, error) {
	switch env.GetEnv("MAIL_TRANSPORT", "smtp") {
	case "ses":
		return NewSESSender(ctx, env.GetEnv("SES_REGION", "eu-central-1"), env.GetEnv("MAIL_FROM", "no-reply@localhost"))
	case "smtp":
		return NewSMTPSenderFromEnv(), nil
	default:
		return nil, fmt.Errorf("unknown MAIL_TRANSPORT %q", env.GetEnv("MAIL_TRANSPORT", ""))
	}
}
