// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockChatAPI is a mock implementation of the chat client for testing
type MockChatAPI struct {
	mock.Mock
}

// Complete mocks the Complete method
func (m *MockChatAPI) Complete(ctx context.Context, system, prompt string) (string, error) {
	args := m.Called(ctx, system, prompt)
	return args.String(0), args.Error(1)
}
