// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// ProcessMessagePayload is the NATS payload that asks the assistant to
// process one inbound message for one user. When only MessageUID is set,
// the worker fetches the full message from the email provider.
type ProcessMessagePayload struct {
	UserUID    string          `json:"user_uid"`
	MessageUID string          `json:"message_uid"`
	Message    *InboundMessage `json:"message,omitempty"`
}

// PipelineEvent is the audit event published after a processing attempt
// reaches a terminal status and its transaction has committed.
type PipelineEvent struct {
	MessageUID       string           `json:"message_uid"`
	UserUID          string           `json:"user_uid"`
	Status           ProcessingStatus `json:"status"`
	IsMeetingRequest bool             `json:"is_meeting_request"`
	Strategy         ResponseStrategy `json:"strategy,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
	ProcessedAt      time.Time        `json:"processed_at"`
}
