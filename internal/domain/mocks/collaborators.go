// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
)

// MockEmailProvider implements EmailProvider for testing
type MockEmailProvider struct {
	mock.Mock
}

func (m *MockEmailProvider) FetchMessage(ctx context.Context, userUID, messageUID string) (*models.InboundMessage, error) {
	args := m.Called(ctx, userUID, messageUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InboundMessage), args.Error(1)
}

// MockCalendarProvider implements CalendarProvider for testing
type MockCalendarProvider struct {
	mock.Mock
}

func (m *MockCalendarProvider) ListEvents(ctx context.Context, userUID string, window models.TimeWindow, zone string) ([]models.CalendarEvent, error) {
	args := m.Called(ctx, userUID, window, zone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CalendarEvent), args.Error(1)
}

func (m *MockCalendarProvider) CreateEvent(ctx context.Context, userUID string, window models.TimeWindow, zone string, title string, attendees []string) (string, error) {
	args := m.Called(ctx, userUID, window, zone, title, attendees)
	return args.String(0), args.Error(1)
}

func (m *MockCalendarProvider) GetUserTimezone(ctx context.Context, userUID string) (string, error) {
	args := m.Called(ctx, userUID)
	return args.String(0), args.Error(1)
}

// MockIntentClient implements IntentClient for testing
type MockIntentClient struct {
	mock.Mock
}

func (m *MockIntentClient) ExtractIntent(ctx context.Context, msg *models.InboundMessage) (*models.ExtractedIntent, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExtractedIntent), args.Error(1)
}

// MockTextGenerator implements TextGenerator for testing
type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockLockService implements LockService for testing
type MockLockService struct {
	mock.Mock
}

func (m *MockLockService) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockLockService) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockPipelineEventPublisher implements PipelineEventPublisher for testing
type MockPipelineEventPublisher struct {
	mock.Mock
}

func (m *MockPipelineEventPublisher) PublishPipelineEvent(ctx context.Context, event models.PipelineEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
