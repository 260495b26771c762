package ai

import (
	"context"
)

// Message is one chat message exchanged with a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is the base interface for all language-generation providers.
// Providers only transport chat requests; prompt construction lives in Manager.
type Provider interface {
	// Chat sends a system prompt plus messages and returns the model's text
	Chat(ctx context.Context, system string, messages []Message) (string, error)

	// IsAvailable checks if the provider is available/configured
	IsAvailable() bool

	// Name returns the provider name
	Name() string
}

// TurnRequest carries everything the generator needs to drive one turn.
type TurnRequest struct {
	Persona      string
	Slots        map[string]string
	NextQuestion string
	Utterance    string
	History      []Message
	// Strict requests unembellished machine-parseable output. Set on the
	// second attempt after the first response failed to parse.
	Strict bool
}

// RewriteRequest asks for a tone-only rewrite of a fixed line.
// The response shape is reply text only.
type RewriteRequest struct {
	Persona string
	Line    string
}

// SummaryRequest carries a finished transcript plus call metadata.
type SummaryRequest struct {
	CallID     string
	Duration   string
	From       string
	To         string
	Transcript string
}
