package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/wolfman30/sms-scheduler/cmd/mainconfig"
	"github.com/wolfman30/sms-scheduler/internal/api/router"
	"github.com/wolfman30/sms-scheduler/internal/calendar"
	appconfig "github.com/wolfman30/sms-scheduler/internal/config"
	"github.com/wolfman30/sms-scheduler/internal/conversation"
	"github.com/wolfman30/sms-scheduler/internal/events"
	"github.com/wolfman30/sms-scheduler/internal/http/handlers"
	"github.com/wolfman30/sms-scheduler/internal/messaging"
	"github.com/wolfman30/sms-scheduler/internal/observability/metrics"
	"github.com/wolfman30/sms-scheduler/internal/session"
	"github.com/wolfman30/sms-scheduler/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sms-scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Domain state: the mock slot calendar is generated once per process.
	cal := calendar.New()
	cal.Generate(time.Now())
	sessions := session.NewStore(cal)

	registry := prometheus.NewRegistry()
	conversationMetrics := metrics.NewConversationMetrics(registry)

	llm := buildLLM(cfg, logger)
	sms := buildSMS(cfg, logger)

	service := conversation.NewService(conversation.ServiceConfig{
		FromNumber:     cfg.FromNumber,
		ModelID:        cfg.BedrockModelID,
		MaxReplyTokens: cfg.MaxReplyTokens,
		HistoryWindow:  cfg.HistoryWindow,
	}, sessions, cal, llm, sms, conversationMetrics, logger)

	ingestor := events.NewIngestor(service, logger.WithComponent("ingestor"))

	queue := buildQueue(cfg, logger)
	publisher := conversation.NewPublisher(queue, logger)
	workers := conversation.StartWorkers(ingestor, queue, logger.WithComponent("worker"),
		conversation.WithWorkerCount(cfg.WorkerCount),
	)

	webhook := handlers.NewSMSWebhookHandler(handlers.SMSWebhookConfig{
		Publisher: publisher,
		Processed: buildProcessedStore(cfg, logger),
		Metrics:   conversationMetrics,
		Logger:    logger,
	})
	admin := handlers.NewAdminHandler(sessions, cal, logger)

	r := router.New(&router.Config{
		Logger:          logger,
		SMSWebhook:      webhook,
		Admin:           admin,
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret: cfg.AdminJWTSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := workers.Shutdown(ctx); err != nil {
		logger.Error("worker shutdown failed", "error", err)
	}
	logger.Info("stopped")
}

// buildLLM wires Bedrock as the primary model with Gemini as an optional
// fallback.
func buildLLM(cfg *appconfig.Config, logger *logging.Logger) conversation.LLMClient {
	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	primary := conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))

	var fallback conversation.LLMClient
	if cfg.GeminiAPIKey != "" {
		gemini, err := conversation.NewGeminiLLMClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini fallback unavailable", "error", err)
		} else {
			fallback = gemini
		}
	}

	return conversation.NewFallbackLLMClient(primary, fallback, logger)
}

func buildSMS(cfg *appconfig.Config, logger *logging.Logger) conversation.SMSSender {
	sender, err := messaging.NewACSSender(messaging.ACSConfig{
		Endpoint:  cfg.ACSEndpoint,
		AccessKey: cfg.ACSAccessKey,
		Timeout:   cfg.ACSTimeout,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to build SMS sender", "error", err)
		os.Exit(1)
	}
	return sender
}

func buildQueue(cfg *appconfig.Config, logger *logging.Logger) conversation.QueueClient {
	if cfg.UseMemoryQueue {
		return conversation.NewMemoryQueue(256)
	}
	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config for SQS", "error", err)
		os.Exit(1)
	}
	return conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL)
}

// buildProcessedStore returns nil when no Redis is configured; the webhook
// then skips deduplication entirely.
func buildProcessedStore(cfg *appconfig.Config, logger *logging.Logger) *events.ProcessedStore {
	if cfg.RedisAddr == "" {
		logger.Warn("no redis configured, webhook deduplication disabled")
		return nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return events.NewProcessedStore(client)
}
