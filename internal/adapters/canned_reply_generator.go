// Package adapters contains adapters that bridge different bounded contexts.
// These adapters implement interfaces defined by consuming domains while
// wrapping services from providing domains.
package adapters

import (
	"context"
	"fmt"
	"strings"

	"leadinbox_backend/internal/responder/ports"
)

const (
	cannedModelID    = "canned-v1"
	defaultReplyText = "Thanks for your message! One of our agents will get back to you shortly."
)

// CannedReplyGenerator produces a fixed acknowledgement reply. It stands in
// for a model-backed generator behind the same port.
type CannedReplyGenerator struct {
	text string
}

// NewCannedReplyGenerator creates a generator for the configured reply text.
// An empty text falls back to the default acknowledgement.
func NewCannedReplyGenerator(text string) *CannedReplyGenerator {
	text = strings.TrimSpace(text)
	if text == "" {
		text = defaultReplyText
	}
	return &CannedReplyGenerator{text: text}
}

// Generate returns the canned reply, greeting the customer by name when the
// profile has one.
func (g *CannedReplyGenerator) Generate(_ context.Context, req ports.GenerateRequest) (ports.GeneratedReply, error) {
	text := g.text
	if req.CustomerName != nil && strings.TrimSpace(*req.CustomerName) != "" {
		text = fmt.Sprintf("Hi %s! %s", strings.TrimSpace(*req.CustomerName), text)
	}
	return ports.GeneratedReply{Text: text, ModelID: cannedModelID}, nil
}

// Compile-time check.
var _ ports.Generator = (*CannedReplyGenerator)(nil)
