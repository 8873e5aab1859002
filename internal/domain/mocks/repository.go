// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
)

// MockMeetingRequestRepository implements MeetingRequestRepository for testing
type MockMeetingRequestRepository struct {
	mock.Mock
}

func (m *MockMeetingRequestRepository) Get(ctx context.Context, messageUID, userUID string) (*models.MeetingRequest, error) {
	args := m.Called(ctx, messageUID, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MeetingRequest), args.Error(1)
}

func (m *MockMeetingRequestRepository) ListByUser(ctx context.Context, userUID string) ([]*models.MeetingRequest, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MeetingRequest), args.Error(1)
}

// MockProcessingResultRepository implements ProcessingResultRepository for testing
type MockProcessingResultRepository struct {
	mock.Mock
}

func (m *MockProcessingResultRepository) Get(ctx context.Context, messageUID, userUID string) (*models.ProcessingResult, error) {
	args := m.Called(ctx, messageUID, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProcessingResult), args.Error(1)
}

func (m *MockProcessingResultRepository) Exists(ctx context.Context, messageUID, userUID string) (bool, error) {
	args := m.Called(ctx, messageUID, userUID)
	return args.Bool(0), args.Error(1)
}

// MockUserSettingsRepository implements UserSettingsRepository for testing
type MockUserSettingsRepository struct {
	mock.Mock
}

func (m *MockUserSettingsRepository) GetTimezone(ctx context.Context, userUID string) (string, error) {
	args := m.Called(ctx, userUID)
	return args.String(0), args.Error(1)
}

func (m *MockUserSettingsRepository) GetSchedulingLink(ctx context.Context, userUID string) (string, error) {
	args := m.Called(ctx, userUID)
	return args.String(0), args.Error(1)
}

// MockMessageHistoryRepository implements MessageHistoryRepository for testing
type MockMessageHistoryRepository struct {
	mock.Mock
}

func (m *MockMessageHistoryRepository) CountFromSender(ctx context.Context, userUID, sender string) (int, error) {
	args := m.Called(ctx, userUID, sender)
	return args.Int(0), args.Error(1)
}

// MockSession implements Session for testing
type MockSession struct {
	mock.Mock
}

func (m *MockSession) UpsertMeetingRequest(ctx context.Context, req *models.MeetingRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockSession) UpsertResponseDraft(ctx context.Context, resp *models.MeetingResponse) error {
	args := m.Called(ctx, resp)
	return args.Error(0)
}

func (m *MockSession) UpsertProcessingResult(ctx context.Context, result *models.ProcessingResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockSession) RecordSenderMessage(ctx context.Context, userUID, sender, messageUID string) error {
	args := m.Called(ctx, userUID, sender, messageUID)
	return args.Error(0)
}

func (m *MockSession) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSession) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockUnitOfWork implements UnitOfWork for testing
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Begin(ctx context.Context) (domain.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Session), args.Error(1)
}
