// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the inbox assistant worker that consumes inbound message
// notifications from NATS and runs the meeting-request processing pipeline.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/infrastructure/calendar"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/infrastructure/email"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/infrastructure/llm"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/infrastructure/lock"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/pkg/concurrent"
)

func main() {
	env := parseEnv()
	parseFlags()

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	// Setup NATS connection
	natsConn, err := setupNATS(ctx, env, &gracefulCloseWG)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	// The lock bucket and the durable store (including migrations) come up
	// independently, so they are prepared concurrently.
	var lockBucket jetstream.KeyValue
	var pool *pgxpool.Pool
	setupPool := concurrent.NewWorkerPool(2)
	err = setupPool.Run(ctx,
		func() error {
			var bucketErr error
			lockBucket, bucketErr = setupLockBucket(ctx, natsConn, env.LockTTL)
			return bucketErr
		},
		func() error {
			var storeErr error
			pool, storeErr = setupStore(ctx, env)
			return storeErr
		},
	)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up lock bucket and durable store")
		return
	}

	// Infrastructure adapters
	postgresStore := store.NewPostgresStore(pool)
	resultRepository := store.NewPgProcessingResultRepository(pool)
	settingsRepository := store.NewPgUserSettingsRepository(pool)
	historyRepository := store.NewPgMessageHistoryRepository(pool)
	lockService := lock.NewNatsLockService(lockBucket)
	messageBuilder := messaging.NewMessageBuilder(natsConn)

	chatClient := llm.NewClient(llm.Config{
		APIKey:  env.LLM.APIKey,
		BaseURL: env.LLM.BaseURL,
		Model:   env.LLM.Model,
	})
	calendarProvider := calendar.NewProvider(calendar.NewClient(calendar.Config{
		BaseURL:      env.Calendar.BaseURL,
		ClientID:     env.Calendar.ClientID,
		ClientSecret: env.Calendar.ClientSecret,
		TokenURL:     env.Calendar.TokenURL,
	}))
	emailProvider := email.NewProvider(email.Config{
		BaseURL:      env.Email.BaseURL,
		ClientID:     env.Email.ClientID,
		ClientSecret: env.Email.ClientSecret,
		TokenURL:     env.Email.TokenURL,
	})

	// Initialize services
	occurrenceService := service.NewOccurrenceService()
	intentService := service.NewIntentService(
		llm.NewIntentExtractor(chatClient),
		service.IntentServiceConfig{SelfAddress: env.SelfAddress},
	)
	timezoneService := service.NewTimeZoneService(
		settingsRepository,
		calendarProvider,
		service.TimeZoneServiceConfig{DefaultZone: env.DefaultTimezone},
	)
	availabilityService := service.NewAvailabilityService(
		calendarProvider,
		service.AvailabilityServiceConfig{},
	)
	responseService := service.NewResponseService(
		llm.NewResponseGenerator(chatClient),
		historyRepository,
		settingsRepository,
		occurrenceService,
		service.ResponseServiceConfig{},
	)
	pipelineService := service.NewPipelineService(
		intentService,
		timezoneService,
		availabilityService,
		responseService,
		calendarProvider,
		lockService,
		resultRepository,
		postgresStore,
		messageBuilder,
		service.PipelineServiceConfig{
			LockTTL:  env.LockTTL,
			AutoBook: env.AutoBook,
		},
	)

	// Initialize handlers
	messageHandler := handlers.NewMessageHandlers(pipelineService, emailProvider)

	// Create NATS subscriptions for the worker.
	err = createNatsSubscriptions(ctx, messageHandler, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
		return
	}

	slog.InfoContext(ctx, "assistant worker ready")

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(natsConn, pool, &gracefulCloseWG, cancel)
}
