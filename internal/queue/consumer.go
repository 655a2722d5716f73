package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/ignite/newsletter-backend/internal/pkg/logger"
)

// JobHandler processes one validation job. A returned error leaves the
// message on the queue for redelivery, so handlers must be idempotent.
type JobHandler func(ctx context.Context, job ValidationJob) error

// Consumer long-polls the validation queue and hands jobs to a handler.
type Consumer struct {
	sqsClient *sqs.Client
	queueURL  string
	waitTime  int32
	batchSize int32
	handler   JobHandler
	done      chan struct{}
}

// NewConsumer creates a consumer for the given queue URL.
func NewConsumer(sqsClient *sqs.Client, queueURL string, waitTimeSeconds, batchSize int, handler JobHandler) *Consumer {
	return &Consumer{
		sqsClient: sqsClient,
		queueURL:  queueURL,
		waitTime:  int32(waitTimeSeconds),
		batchSize: int32(batchSize),
		handler:   handler,
		done:      make(chan struct{}),
	}
}

// Start begins polling in a background goroutine.
func (c *Consumer) Start(ctx context.Context) {
	logger.Info("validation queue consumer started", "queue", c.queueURL)
	go c.poll(ctx)
}

// Stop terminates the polling loop.
func (c *Consumer) Stop() {
	close(c.done)
}

func (c *Consumer) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		out, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: c.batchSize,
			WaitTimeSeconds:     c.waitTime,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("receiving from validation queue", "error", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, msg := range out.Messages {
			var job ValidationJob
			if err := json.Unmarshal([]byte(*msg.Body), &job); err != nil {
				// Malformed messages never become processable; drop them.
				logger.Warn("dropping malformed validation message", "error", err)
				c.deleteMessage(ctx, msg.ReceiptHandle)
				continue
			}

			if err := c.handler(ctx, job); err != nil {
				// Leave the message for redelivery.
				logger.Error("processing validation job", "subscriber_id", job.SubscriberID, "error", err)
				continue
			}

			c.deleteMessage(ctx, msg.ReceiptHandle)
		}
	}
}

func (c *Consumer) deleteMessage(ctx context.Context, handle *string) {
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: handle,
	})
	if err != nil {
		logger.Warn("deleting validation message", "error", err)
	}
}
