package ai

import "context"

// Message is one role/content turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatClient produces one plain-text completion for an ordered list of
// messages. Providers are swappable; no provider-specific fields leak into
// this contract.
type ChatClient interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
