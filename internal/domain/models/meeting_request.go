// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// MeetingCategory classifies the kind of meeting a request asks for.
type MeetingCategory string

const (
	MeetingCategoryUrgent    MeetingCategory = "urgent"
	MeetingCategoryRegular   MeetingCategory = "regular"
	MeetingCategoryFlexible  MeetingCategory = "flexible"
	MeetingCategoryRecurring MeetingCategory = "recurring"
)

// IsValid checks if the meeting category is valid.
func (c MeetingCategory) IsValid() bool {
	switch c {
	case MeetingCategoryUrgent, MeetingCategoryRegular, MeetingCategoryFlexible, MeetingCategoryRecurring:
		return true
	}
	return false
}

// UrgencyLevel is the sender-perceived urgency of a request.
type UrgencyLevel string

const (
	UrgencyHigh   UrgencyLevel = "high"
	UrgencyMedium UrgencyLevel = "medium"
	UrgencyLow    UrgencyLevel = "low"
)

// IsValid checks if the urgency level is valid.
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	}
	return false
}

// MeetingRequestStatus is the lifecycle status of a detected request.
// Requests are never deleted, only superseded by a later status.
type MeetingRequestStatus string

const (
	MeetingRequestStatusPending   MeetingRequestStatus = "pending"
	MeetingRequestStatusScheduled MeetingRequestStatus = "scheduled"
	MeetingRequestStatusDeclined  MeetingRequestStatus = "declined"
	MeetingRequestStatusCancelled MeetingRequestStatus = "cancelled"
)

// IsValid checks if the request status is valid.
func (s MeetingRequestStatus) IsValid() bool {
	switch s {
	case MeetingRequestStatusPending, MeetingRequestStatusScheduled, MeetingRequestStatusDeclined, MeetingRequestStatusCancelled:
		return true
	}
	return false
}

// CandidateTime is one preferred time from a request: either a fully
// resolved instant or the raw expression the sender used ("sometime next
// week") when no instant could be resolved.
type CandidateTime struct {
	Instant    *time.Time `json:"instant,omitempty"`
	Expression string     `json:"expression,omitempty"`
}

// IsResolved reports whether the candidate carries a concrete instant.
func (c CandidateTime) IsResolved() bool {
	return c.Instant != nil && !c.Instant.IsZero()
}

// MeetingRequest is a detected meeting request. It is immutable once
// created except for its lifecycle status, which downstream booking and
// approval actions advance.
type MeetingRequest struct {
	UID                 string               `json:"uid"`
	MessageUID          string               `json:"message_uid"`
	UserUID             string               `json:"user_uid"`
	Sender              string               `json:"sender"`
	Subject             string               `json:"subject"`
	CandidateTimes      []CandidateTime      `json:"candidate_times,omitempty"`
	DurationMinutes     int                  `json:"duration_minutes"`
	Category            MeetingCategory      `json:"category"`
	Urgency             UrgencyLevel         `json:"urgency"`
	LocationPreference  string               `json:"location_preference,omitempty"`
	SpecialRequirements string               `json:"special_requirements,omitempty"`
	Confidence          int                  `json:"confidence"`
	Status              MeetingRequestStatus `json:"status"`
	CreatedAt           *time.Time           `json:"created_at,omitempty"`
	UpdatedAt           *time.Time           `json:"updated_at,omitempty"`
}

// HasConcreteTime reports whether any candidate resolved to an instant.
func (r *MeetingRequest) HasConcreteTime() bool {
	for _, c := range r.CandidateTimes {
		if c.IsResolved() {
			return true
		}
	}
	return false
}

// FirstResolvedTime returns the earliest resolved candidate instant, or nil.
func (r *MeetingRequest) FirstResolvedTime() *time.Time {
	var first *time.Time
	for _, c := range r.CandidateTimes {
		if !c.IsResolved() {
			continue
		}
		if first == nil || c.Instant.Before(*first) {
			first = c.Instant
		}
	}
	return first
}

// Tags generates the tag values for a meeting request used in audit events.
func (r *MeetingRequest) Tags() []string {
	var tags []string
	if r == nil {
		return tags
	}
	if r.UID != "" {
		tags = append(tags, r.UID)
	}
	if r.MessageUID != "" {
		tags = append(tags, "message_uid:"+r.MessageUID)
	}
	if r.Sender != "" {
		tags = append(tags, "sender:"+r.Sender)
	}
	if r.Category != "" {
		tags = append(tags, "category:"+string(r.Category))
	}
	return tags
}
