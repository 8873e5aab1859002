// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"strings"

	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-inbox-assistant-service/internal/domain/models"
)

// ResponseGenerator implements domain.TextGenerator over a chat API.
type ResponseGenerator struct {
	chat ChatAPI
}

// NewResponseGenerator creates a new ResponseGenerator.
func NewResponseGenerator(chat ChatAPI) *ResponseGenerator {
	return &ResponseGenerator{chat: chat}
}

// Generate renders the requested text. The word budget travels in the
// prompt; enforcement stays with the caller, which owns the fallback.
func (g *ResponseGenerator) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	if g.chat == nil {
		return "", domain.NewUnavailableError("response generator is not available")
	}
	reply, err := g.chat.Complete(ctx, req.System, req.Prompt)
	if err != nil {
		return "", domain.NewUnavailableError("response generation request failed", err)
	}
	return strings.TrimSpace(reply), nil
}
