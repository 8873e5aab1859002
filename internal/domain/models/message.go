// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"strings"
	"time"
)

// InboundMessage is an email message delivered to the assistant for
// processing. It is read-only input; the pipeline never mutates it.
type InboundMessage struct {
	UID        string              `json:"uid"`
	ThreadUID  string              `json:"thread_uid,omitempty"`
	From       string              `json:"from"`
	Subject    string              `json:"subject"`
	Body       string              `json:"body"`
	Headers    map[string][]string `json:"headers,omitempty"`
	ReceivedAt time.Time           `json:"received_at"`
}

// Header returns the first value of the named header, case-insensitively.
func (m *InboundMessage) Header(name string) string {
	for key, values := range m.Headers {
		if strings.EqualFold(key, name) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// IsSelfAddressed reports whether the message was sent by the assistant's
// own user address. Processing such messages would let the assistant reply
// to itself in a loop.
func (m *InboundMessage) IsSelfAddressed(selfAddress string) bool {
	if selfAddress == "" {
		return false
	}
	return strings.EqualFold(normalizeAddress(m.From), strings.ToLower(selfAddress))
}

// normalizeAddress strips a display name from an address like
// "Jane Doe <jane@example.org>" and lowercases the result.
func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if start := strings.LastIndex(addr, "<"); start != -1 {
		if end := strings.LastIndex(addr, ">"); end > start {
			addr = addr[start+1 : end]
		}
	}
	return strings.ToLower(strings.TrimSpace(addr))
}
