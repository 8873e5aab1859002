// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// ProcessingStatus is the terminal status of one processing attempt.
type ProcessingStatus string

const (
	ProcessingStatusProcessed ProcessingStatus = "processed"
	ProcessingStatusSkipped   ProcessingStatus = "skipped"
	ProcessingStatusError     ProcessingStatus = "error"
)

// IsValid checks if the processing status is valid.
func (s ProcessingStatus) IsValid() bool {
	switch s {
	case ProcessingStatusProcessed, ProcessingStatusSkipped, ProcessingStatusError:
		return true
	}
	return false
}

// ProcessingResult records the outcome of processing one (message, user)
// pair. Its durable existence is the idempotency witness: once a row
// exists for a key, the message is never reprocessed.
type ProcessingResult struct {
	MessageUID       string           `json:"message_uid"`
	UserUID          string           `json:"user_uid"`
	IsMeetingRequest bool             `json:"is_meeting_request"`
	Confidence       int              `json:"confidence"`
	Elapsed          time.Duration    `json:"elapsed"`
	Status           ProcessingStatus `json:"status"`
	Reason           string           `json:"reason,omitempty"`
	ProcessedAt      time.Time        `json:"processed_at"`
}

// Terminal reports whether the result carries a durable terminal status.
// Error results are not terminal: no row was written and the message
// remains eligible for reprocessing.
func (r *ProcessingResult) Terminal() bool {
	return r.Status == ProcessingStatusProcessed || r.Status == ProcessingStatusSkipped
}
