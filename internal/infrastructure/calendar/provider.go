// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
)

// Provider implements domain.CalendarProvider over the REST client.
type Provider struct {
	client *Client
}

// NewProvider creates a new Provider.
func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

// IsReady checks if the provider is ready for use.
func (p *Provider) IsReady() bool {
	return p.client != nil
}

type apiEvent struct {
	UID       string    `json:"uid"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Organizer string    `json:"organizer"`
}

type listEventsResponse struct {
	Events []apiEvent `json:"events"`
}

// ListEvents returns the user's events overlapping the window, queried in
// the given zone.
func (p *Provider) ListEvents(ctx context.Context, userUID string, window models.TimeWindow, zone string) ([]models.CalendarEvent, error) {
	if !p.IsReady() {
		return nil, domain.NewUnavailableError("calendar provider is not available")
	}

	query := url.Values{
		"start":    []string{window.Start.Format(time.RFC3339)},
		"end":      []string{window.End.Format(time.RFC3339)},
		"timezone": []string{zone},
	}
	path := fmt.Sprintf("/users/%s/events?%s", url.PathEscape(userUID), query.Encode())

	var parsed listEventsResponse
	if err := p.client.doJSON(ctx, http.MethodGet, path, nil, &parsed); err != nil {
		return nil, domain.NewUnavailableError("failed to list calendar events", err)
	}

	events := make([]models.CalendarEvent, 0, len(parsed.Events))
	for _, e := range parsed.Events {
		events = append(events, models.CalendarEvent{
			UID:       e.UID,
			Title:     e.Title,
			StartTime: e.StartTime,
			EndTime:   e.EndTime,
			Organizer: e.Organizer,
		})
	}
	return events, nil
}

type createEventRequest struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Timezone  string    `json:"timezone"`
	Attendees []string  `json:"attendees,omitempty"`
}

type createEventResponse struct {
	UID string `json:"uid"`
}

// CreateEvent books an event in the user's calendar and returns the
// provider's event reference.
func (p *Provider) CreateEvent(ctx context.Context, userUID string, window models.TimeWindow, zone string, title string, attendees []string) (string, error) {
	if !p.IsReady() {
		return "", domain.NewUnavailableError("calendar provider is not available")
	}

	payload, err := json.Marshal(createEventRequest{
		Title:     title,
		StartTime: window.Start,
		EndTime:   window.End,
		Timezone:  zone,
		Attendees: attendees,
	})
	if err != nil {
		return "", domain.NewInternalError("failed to encode event request", err)
	}

	path := fmt.Sprintf("/users/%s/events", url.PathEscape(userUID))
	var parsed createEventResponse
	if err := p.client.doJSON(ctx, http.MethodPost, path, bytes.NewReader(payload), &parsed); err != nil {
		return "", domain.NewUnavailableError("failed to create calendar event", err)
	}
	if parsed.UID == "" {
		return "", domain.NewInternalError("calendar provider returned no event reference")
	}
	return parsed.UID, nil
}

type userSettingsResponse struct {
	Timezone string `json:"timezone"`
}

// GetUserTimezone returns the timezone configured in the user's calendar
// provider settings.
func (p *Provider) GetUserTimezone(ctx context.Context, userUID string) (string, error) {
	if !p.IsReady() {
		return "", domain.NewUnavailableError("calendar provider is not available")
	}

	path := fmt.Sprintf("/users/%s/settings", url.PathEscape(userUID))
	var parsed userSettingsResponse
	if err := p.client.doJSON(ctx, http.MethodGet, path, nil, &parsed); err != nil {
		return "", domain.NewUnavailableError("failed to read calendar settings", err)
	}
	if parsed.Timezone == "" {
		return "", domain.NewNotFoundError("calendar settings carry no timezone")
	}
	return parsed.Timezone, nil
}
