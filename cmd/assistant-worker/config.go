// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/pkg/constants"
)

// flags are the command line flags for the assistant worker.
type flags struct {
	Debug bool
}

// environment are the environment variables for the assistant worker.
type environment struct {
	NatsURL         string
	DatabaseURL     string
	SelfAddress     string
	DefaultTimezone string
	AutoBook        bool
	LockTTL         time.Duration
	LLM             llmConfig
	Calendar        providerConfig
	Email           providerConfig
}

// llmConfig holds chat API configuration
type llmConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// providerConfig holds an OAuth-protected provider API configuration
type providerConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// parseFlags parses command line flags for the assistant worker
func parseFlags() flags {
	var debug = flag.Bool("d", false, "enable debug logging")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used by [logging.InitStructureLogConfig]
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	return flags{
		Debug: *debug,
	}
}

// parseEnv parses environment variables for the assistant worker
func parseEnv() environment {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL environment variable is required but not set")
		os.Exit(1)
	}

	defaultTimezone := os.Getenv("DEFAULT_TIMEZONE")
	if defaultTimezone == "" {
		defaultTimezone = constants.DefaultTimezone
	}

	lockTTL := constants.DefaultLockTTL
	if raw := os.Getenv("LOCK_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			slog.With(logging.ErrKey, err, "value", raw).Error("invalid LOCK_TTL provided, using default")
		} else {
			lockTTL = parsed
		}
	}

	return environment{
		NatsURL:         natsURL,
		DatabaseURL:     databaseURL,
		SelfAddress:     os.Getenv("ASSISTANT_SELF_ADDRESS"),
		DefaultTimezone: defaultTimezone,
		AutoBook:        os.Getenv("AUTO_BOOK") == "true",
		LockTTL:         lockTTL,
		LLM:             parseLLMConfig(),
		Calendar:        parseProviderConfig("CALENDAR"),
		Email:           parseProviderConfig("EMAIL"),
	}
}

// parseLLMConfig parses chat API configuration from environment variables
func parseLLMConfig() llmConfig {
	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		slog.Error("LLM_API_KEY environment variable is required but not set")
		os.Exit(1)
	}

	return llmConfig{
		APIKey:  apiKey,
		BaseURL: os.Getenv("LLM_BASE_URL"),
		Model:   os.Getenv("LLM_MODEL"),
	}
}

// parseProviderConfig parses an OAuth provider configuration from
// environment variables under the given prefix.
func parseProviderConfig(prefix string) providerConfig {
	baseURL := os.Getenv(prefix + "_BASE_URL")
	if baseURL == "" {
		slog.Error(prefix + "_BASE_URL environment variable is required but not set")
		os.Exit(1)
	}
	clientID := os.Getenv(prefix + "_CLIENT_ID")
	if clientID == "" {
		slog.Error(prefix + "_CLIENT_ID environment variable is required but not set")
		os.Exit(1)
	}
	clientSecret := os.Getenv(prefix + "_CLIENT_SECRET")
	if clientSecret == "" {
		slog.Error(prefix + "_CLIENT_SECRET environment variable is required but not set")
		os.Exit(1)
	}
	tokenURL := os.Getenv(prefix + "_TOKEN_URL")
	if tokenURL == "" {
		slog.Error(prefix + "_TOKEN_URL environment variable is required but not set")
		os.Exit(1)
	}

	return providerConfig{
		BaseURL:      baseURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
}
