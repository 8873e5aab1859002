// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package constants contains shared constants for the inbox assistant service.
package constants

import "time"

// NATS subjects used by the inbox assistant.
const (
	// ProcessMessageSubject receives inbound message notifications from
	// the mail-sync service.
	ProcessMessageSubject = "lfx.inbox_assistant.message.process"

	// PipelineEventSubject carries post-commit audit events about
	// processed messages.
	PipelineEventSubject = "lfx.inbox_assistant.message.processed"

	// ProcessMessageQueue is the queue group shared by worker instances
	// so that each notification is delivered to only one of them.
	ProcessMessageQueue = "inbox-assistant-workers"
)

// Idempotency lock settings.
const (
	// LockBucketName is the NATS KV bucket backing the idempotency guard.
	LockBucketName = "inbox-assistant-locks"

	// DefaultLockTTL bounds how long a crashed worker can hold a
	// processing key before another instance may take it over.
	DefaultLockTTL = 5 * time.Minute
)

// Pipeline defaults.
const (
	// DefaultTimezone is the terminal fallback of the timezone resolution
	// chain.
	DefaultTimezone = "America/Los_Angeles"

	// DefaultMeetingDurationMinutes is assumed when a request does not
	// state a duration.
	DefaultMeetingDurationMinutes = 30

	// DefaultMinConfidence is the detection threshold below which a
	// message is treated as not a meeting request.
	DefaultMinConfidence = 60

	// DefaultBatchDelay is the pause between messages in a per-user
	// batch, to avoid hammering the AI and provider rate limits.
	DefaultBatchDelay = 500 * time.Millisecond

	// DefaultCollaboratorTimeout bounds each network call to the LLM,
	// calendar, and email collaborators.
	DefaultCollaboratorTimeout = 30 * time.Second

	// ShutdownTimeout bounds how long the worker waits for in-flight
	// messages to drain on shutdown.
	ShutdownTimeout = 25 * time.Second
)
