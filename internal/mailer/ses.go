package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/ignite/newsletter-backend/internal/pkg/logger"
)

// SESMailer sends subscription confirmation emails through AWS SES.
// When disabled it logs the confirmation URL instead of sending, which is the
// local development mode.
type SESMailer struct {
	client    *sesv2.Client
	fromName  string
	fromEmail string
	enabled   bool
}

// NewSESMailer creates a mailer. With empty credentials the default AWS
// credential chain is used (IAM role on ECS).
func NewSESMailer(ctx context.Context, region, accessKey, secretKey, fromName, fromEmail string, enabled bool) (*SESMailer, error) {
	m := &SESMailer{
		fromName:  fromName,
		fromEmail: fromEmail,
		enabled:   enabled,
	}
	if !enabled {
		return m, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	m.client = sesv2.NewFromConfig(cfg)
	return m, nil
}

// SendConfirmation delivers the double-opt-in email carrying the confirm URL.
func (m *SESMailer) SendConfirmation(ctx context.Context, email, confirmURL string) error {
	if !m.enabled {
		logger.Info("mailer disabled, logging confirmation URL instead",
			"email", email, "confirm_url", confirmURL)
		return nil
	}

	subject := "Confirm your newsletter subscription"
	htmlBody := fmt.Sprintf(
		`<p>Thanks for subscribing. Please confirm your address by clicking the link below.</p>`+
			`<p><a href="%s">Confirm subscription</a></p>`+
			`<p>If you did not request this, ignore this email and nothing will happen.</p>`,
		confirmURL)
	textBody := fmt.Sprintf(
		"Thanks for subscribing. Confirm your address by opening this link:\n\n%s\n\n"+
			"If you did not request this, ignore this email.", confirmURL)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{email}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("sending confirmation email: %w", err)
	}

	logger.Info("confirmation email sent", "email", email)
	return nil
}
