package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// actionValidateEmail is the only job type the validation queue carries.
const actionValidateEmail = "validate_email"

// ValidationJob asks the worker to send a confirmation email for a pending
// subscriber. Delivery is at-least-once and unordered; the consumer side is
// idempotent.
type ValidationJob struct {
	Action       string `json:"action"`
	Email        string `json:"email"`
	SubscriberID string `json:"subscriber_id"`
}

// NewValidationJob builds a job for the given subscriber record.
func NewValidationJob(subscriberID, email string) ValidationJob {
	return ValidationJob{
		Action:       actionValidateEmail,
		Email:        email,
		SubscriberID: subscriberID,
	}
}

// Publisher enqueues validation jobs on SQS.
type Publisher struct {
	client   *sqs.Client
	queueURL string
}

// NewPublisher creates a publisher for the given queue URL.
func NewPublisher(client *sqs.Client, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL}
}

// Enqueue sends the job synchronously. A failure here surfaces to the HTTP
// caller as a retryable error; the subscribe action itself is idempotent, so
// retrying the whole request is safe.
func (p *Publisher) Enqueue(ctx context.Context, job ValidationJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling validation job: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("publishing validation job: %w", err)
	}
	return nil
}
