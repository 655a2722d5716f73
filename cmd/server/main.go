package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/ignite/newsletter-backend/internal/api"
	"github.com/ignite/newsletter-backend/internal/config"
	"github.com/ignite/newsletter-backend/internal/pkg/logger"
	"github.com/ignite/newsletter-backend/internal/queue"
	"github.com/ignite/newsletter-backend/internal/storage"
	"github.com/ignite/newsletter-backend/internal/subscription"
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

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
	logger.Info("starting newsletter API server")

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		logger.Error("port check failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := loadAWSConfig(ctx, cfg.Storage)
	if err != nil {
		logger.Error("loading AWS config", "error", err)
		os.Exit(1)
	}

	// Record store
	var store subscription.Store
	if cfg.Storage.Type == "memory" {
		store = storage.NewMemoryStore()
		logger.Warn("using in-memory record store; records are lost on restart")
	} else {
		store = storage.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.Storage.DynamoDBTable, cfg.Storage.EmailIndex)
		logger.Info("record store ready", "table", cfg.Storage.DynamoDBTable)
	}

	// Validation queue
	if cfg.Queue.URL == "" {
		logger.Error("VALIDATION_QUEUE_URL is not configured")
		os.Exit(1)
	}
	publisher := queue.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.Queue.URL)

	svc := subscription.NewService(store, publisher, nil, cfg.Mailer.ConfirmBaseURL)
	handlers := api.NewHandlers(svc)

	// Optional Redis rate limiting
	var limiter *api.RateLimiter
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup, rate limiter will fail open", "error", err)
		}
		limiter = api.NewRateLimiter(redisClient, cfg.Redis.RateLimit, cfg.Redis.RateWindow())
		logger.Info("rate limiter enabled", "limit", cfg.Redis.RateLimit, "window", cfg.Redis.RateWindow())
	}

	server := api.NewServer(handlers, limiter)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", host, cfg.Server.Port)
		logger.Info("listening", "addr", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("server exited", "error", err)
		os.Exit(1)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
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
