// Package providers defines the capability set every LLM backend must
// implement: listing models and completing a chat exchange. The session
// controller depends only on this interface, never on a concrete variant.
package providers

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrProvider marks any failed provider call.
	ErrProvider = errors.New("provider request failed")
	// ErrUnavailable marks network-level failures reaching the backend.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrAuth marks a missing or rejected credential.
	ErrAuth = errors.New("provider authentication failed")
)

type Message struct {
	Role    string
	Content string
}

type ChatRequest struct {
	Model         string
	Messages      []Message
	ContextWindow int
}

type ChatResponse struct {
	Text string
}

type Provider interface {
	ListModels(ctx context.Context) ([]string, error)
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
