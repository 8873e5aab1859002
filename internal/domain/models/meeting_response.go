// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// ResponseStrategy is the fixed set of response strategies the assistant
// can choose from for a detected meeting request.
type ResponseStrategy string

const (
	// StrategyAccept accepts the requested time outright.
	StrategyAccept ResponseStrategy = "accept"
	// StrategyProposeAlternatives declines the requested time and offers
	// open slots instead.
	StrategyProposeAlternatives ResponseStrategy = "propose_alternatives"
	// StrategySchedulingLink offers the user's self-service booking link
	// for a vague request.
	StrategySchedulingLink ResponseStrategy = "scheduling_link"
	// StrategySchedulingLinkConflict offers the booking link while warning
	// about known busy periods that conflict with it.
	StrategySchedulingLinkConflict ResponseStrategy = "scheduling_link_conflict"
	// StrategyRequestMoreInfo asks the sender for a concrete time.
	StrategyRequestMoreInfo ResponseStrategy = "request_more_info"
)

// IsValid checks if the response strategy is valid.
func (s ResponseStrategy) IsValid() bool {
	switch s {
	case StrategyAccept, StrategyProposeAlternatives, StrategySchedulingLink,
		StrategySchedulingLinkConflict, StrategyRequestMoreInfo:
		return true
	}
	return false
}

// How response text was produced.
const (
	RenderedByGenerator = "generator"
	RenderedByTemplate  = "template"
)

// MeetingResponse is a drafted reply to a meeting request. Drafts require
// human approval before anything is sent; the pipeline only stores them.
type MeetingResponse struct {
	UID          string           `json:"uid"`
	MessageUID   string           `json:"message_uid"`
	UserUID      string           `json:"user_uid"`
	Strategy     ResponseStrategy `json:"strategy"`
	Body         string           `json:"body"`
	EventCreated bool             `json:"event_created"`
	EventRef     string           `json:"event_ref,omitempty"`
	RenderedBy   string           `json:"rendered_by"`
	CreatedAt    *time.Time       `json:"created_at,omitempty"`
}
