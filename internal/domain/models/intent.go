// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// ExtractedIntent is the raw slot-extraction output from the language
// model before time resolution. Candidate times are kept as the sender's
// expressions; the timezone service turns them into instants.
type ExtractedIntent struct {
	IsMeetingRequest    bool            `json:"is_meeting_request"`
	Confidence          int             `json:"confidence"`
	TimeExpressions     []string        `json:"time_expressions,omitempty"`
	DurationMinutes     int             `json:"duration_minutes,omitempty"`
	Attendees           []string        `json:"attendees,omitempty"`
	Category            MeetingCategory `json:"category,omitempty"`
	Urgency             UrgencyLevel    `json:"urgency,omitempty"`
	LocationPreference  string          `json:"location_preference,omitempty"`
	SpecialRequirements string          `json:"special_requirements,omitempty"`
}

// GenerationRequest is the prompt context handed to the generative-text
// collaborator when rendering a response draft.
type GenerationRequest struct {
	System   string `json:"system"`
	Prompt   string `json:"prompt"`
	MaxWords int    `json:"max_words"`
}
