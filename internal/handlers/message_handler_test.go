// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/pkg/constants"
)

type mockMessage struct {
	mock.Mock
}

func (m *mockMessage) Subject() string {
	return m.Called().String(0)
}

func (m *mockMessage) Data() []byte {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]byte)
}

func (m *mockMessage) Respond(data []byte) error {
	return m.Called(data).Error(0)
}

func (m *mockMessage) HasReply() bool {
	return m.Called().Bool(0)
}

// handlerFixture wires MessageHandlers over a pipeline whose admission
// check short-circuits, so handler tests stay focused on routing.
type handlerFixture struct {
	results  *mocks.MockProcessingResultRepository
	email    *mocks.MockEmailProvider
	handlers *MessageHandlers
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		results: &mocks.MockProcessingResultRepository{},
		email:   &mocks.MockEmailProvider{},
	}
	settings := &mocks.MockUserSettingsRepository{}
	calendar := &mocks.MockCalendarProvider{}
	history := &mocks.MockMessageHistoryRepository{}
	pipeline := service.NewPipelineService(
		service.NewIntentService(&mocks.MockIntentClient{}, service.IntentServiceConfig{}),
		service.NewTimeZoneService(settings, calendar, service.TimeZoneServiceConfig{}),
		service.NewAvailabilityService(calendar, service.AvailabilityServiceConfig{}),
		service.NewResponseService(&mocks.MockTextGenerator{}, history, settings, service.NewOccurrenceService(), service.ResponseServiceConfig{}),
		calendar,
		&mocks.MockLockService{},
		f.results,
		&mocks.MockUnitOfWork{},
		&mocks.MockPipelineEventPublisher{},
		service.PipelineServiceConfig{},
	)
	f.handlers = NewMessageHandlers(pipeline, f.email)
	return f
}

func processPayload(t *testing.T, payload models.ProcessMessagePayload) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return data
}

func TestMessageHandlers_HandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown subject is ignored", func(t *testing.T) {
		f := newHandlerFixture()
		msg := &mockMessage{}
		msg.On("Subject").Return("lfx.unknown.subject")

		f.handlers.HandleMessage(ctx, msg)

		msg.AssertNotCalled(t, "Respond")
	})

	t.Run("error replies carry an error body", func(t *testing.T) {
		f := newHandlerFixture()
		msg := &mockMessage{}
		msg.On("Subject").Return(constants.ProcessMessageSubject)
		msg.On("Data").Return([]byte("not json"))
		msg.On("HasReply").Return(true)

		var reply []byte
		msg.On("Respond", mock.Anything).Run(func(args mock.Arguments) {
			reply = args.Get(0).([]byte)
		}).Return(nil)

		f.handlers.HandleMessage(ctx, msg)

		require.NotNil(t, reply)
		assert.Contains(t, string(reply), `"error"`)
	})

	t.Run("successful processing replies with the result", func(t *testing.T) {
		f := newHandlerFixture()
		f.results.On("Exists", mock.Anything, "msg-1", "user-1").Return(true, nil)

		msg := &mockMessage{}
		msg.On("Subject").Return(constants.ProcessMessageSubject)
		msg.On("Data").Return(processPayload(t, models.ProcessMessagePayload{
			UserUID:    "user-1",
			MessageUID: "msg-1",
			Message: &models.InboundMessage{
				UID:     "msg-1",
				From:    "ada@example.com",
				Subject: "Quick sync?",
			},
		}))
		msg.On("HasReply").Return(true)

		var reply []byte
		msg.On("Respond", mock.Anything).Run(func(args mock.Arguments) {
			reply = args.Get(0).([]byte)
		}).Return(nil)

		f.handlers.HandleMessage(ctx, msg)

		var result models.ProcessingResult
		require.NoError(t, json.Unmarshal(reply, &result))
		assert.Equal(t, models.ProcessingStatusSkipped, result.Status)
		assert.Equal(t, "msg-1", result.MessageUID)
	})
}

func TestMessageHandlers_HandleProcessMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("missing identifiers are rejected", func(t *testing.T) {
		f := newHandlerFixture()
		msg := &mockMessage{}
		msg.On("Data").Return(processPayload(t, models.ProcessMessagePayload{MessageUID: "msg-1"}))

		_, err := f.handlers.HandleProcessMessage(ctx, msg)
		require.Error(t, err)
	})

	t.Run("reference-only payload fetches the message", func(t *testing.T) {
		f := newHandlerFixture()
		f.email.On("FetchMessage", mock.Anything, "user-1", "msg-1").Return(&models.InboundMessage{
			From:    "ada@example.com",
			Subject: "Quick sync?",
		}, nil)
		f.results.On("Exists", mock.Anything, "msg-1", "user-1").Return(true, nil)

		msg := &mockMessage{}
		msg.On("Data").Return(processPayload(t, models.ProcessMessagePayload{
			UserUID:    "user-1",
			MessageUID: "msg-1",
		}))

		response, err := f.handlers.HandleProcessMessage(ctx, msg)

		require.NoError(t, err)
		f.email.AssertCalled(t, "FetchMessage", mock.Anything, "user-1", "msg-1")

		// The fetched message had no UID; the payload reference fills it in.
		var result models.ProcessingResult
		require.NoError(t, json.Unmarshal(response, &result))
		assert.Equal(t, "msg-1", result.MessageUID)
	})

	t.Run("fetch failure propagates", func(t *testing.T) {
		f := newHandlerFixture()
		f.email.On("FetchMessage", mock.Anything, "user-1", "msg-1").Return(nil, assert.AnError)

		msg := &mockMessage{}
		msg.On("Data").Return(processPayload(t, models.ProcessMessagePayload{
			UserUID:    "user-1",
			MessageUID: "msg-1",
		}))

		_, err := f.handlers.HandleProcessMessage(ctx, msg)
		require.Error(t, err)
	})
}
