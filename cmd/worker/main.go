package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/ignite/newsletter-backend/internal/config"
	"github.com/ignite/newsletter-backend/internal/mailer"
	"github.com/ignite/newsletter-backend/internal/pkg/logger"
	"github.com/ignite/newsletter-backend/internal/queue"
	"github.com/ignite/newsletter-backend/internal/storage"
	"github.com/ignite/newsletter-backend/internal/subscription"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.RedactPII != nil {
		logger.SetRedactPII(*cfg.Logging.RedactPII)
	}
	logger.Info("starting newsletter validation worker")

	if cfg.Queue.URL == "" {
		logger.Error("VALIDATION_QUEUE_URL is not configured")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := loadAWSConfig(ctx, cfg.Storage)
	if err != nil {
		logger.Error("loading AWS config", "error", err)
		os.Exit(1)
	}

	store := storage.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.Storage.DynamoDBTable, cfg.Storage.EmailIndex)

	sesMailer, err := mailer.NewSESMailer(ctx,
		cfg.Mailer.Region, cfg.Mailer.AccessKey, cfg.Mailer.SecretKey,
		cfg.Mailer.FromName, cfg.Mailer.FromEmail, cfg.Mailer.Enabled)
	if err != nil {
		logger.Error("initializing SES mailer", "error", err)
		os.Exit(1)
	}
	if !cfg.Mailer.Enabled {
		logger.Warn("mailer disabled, confirmation URLs will only be logged")
	}

	svc := subscription.NewService(store, nil, sesMailer, cfg.Mailer.ConfirmBaseURL)

	consumer := queue.NewConsumer(
		sqs.NewFromConfig(awsCfg),
		cfg.Queue.URL,
		cfg.Queue.WaitTimeSeconds,
		cfg.Queue.BatchSize,
		svc.ProcessValidationJob,
	)
	consumer.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig)

	consumer.Stop()
	cancel()
	logger.Info("worker stopped")
}

// loadAWSConfig builds the shared AWS config, honoring the configured profile
// locally and the IAM role on ECS.
func loadAWSConfig(ctx context.Context, sc config.StorageConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(sc.AWSRegion)}
	if profile := sc.GetAWSProfile(); profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
