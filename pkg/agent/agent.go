package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"librarydesk/pkg/ai"
	"librarydesk/pkg/domain"
	"librarydesk/pkg/tools"
)

// ToolCall records the name and arguments of one dispatched tool invocation.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// TurnResult is the outcome of one user turn: the final reply plus the
// tool-call payloads for audit logging. The slices are empty, never nil, on
// the plain path.
type TurnResult struct {
	Content     string     `json:"content"`
	ToolCalls   []ToolCall `json:"toolCalls"`
	ToolResults []any      `json:"toolResults"`
}

// Agent orchestrates one decide/summarize round trip per user message. At
// most one tool executes per turn; there is no chaining.
type Agent struct {
	chat     ai.ChatClient
	registry *tools.Registry
}

// New wires the agent to a model client and the tool registry.
func New(chat ai.ChatClient, registry *tools.Registry) *Agent {
	return &Agent{chat: chat, registry: registry}
}

// ProcessTurn composes the prompt from prior history plus the new user text,
// asks the model for a decision, dispatches a tool when one is named, and
// returns the final plain-text reply. Model failures are fatal to the run.
func (a *Agent) ProcessTurn(ctx context.Context, prior []ai.Message, userText string) (TurnResult, error) {
	msgs := make([]ai.Message, 0, len(prior)+2)
	msgs = append(msgs, ai.Message{Role: string(domain.RoleSystem), Content: systemPrompt})
	for _, m := range prior {
		if m.Role == string(domain.RoleSystem) {
			continue
		}
		msgs = append(msgs, m)
	}
	msgs = append(msgs, ai.Message{Role: string(domain.RoleUser), Content: userText})

	raw, err := a.chat.Complete(ctx, msgs)
	if err != nil {
		return TurnResult{}, fmt.Errorf("decide: %w", err)
	}
	slog.Debug("model decision output", "content", raw)

	decision := ExtractDecision(raw)
	if decision.IsToolCall() {
		return a.runTool(ctx, decision)
	}

	content := ""
	if decision != nil {
		content = decision.Response
	}
	if content == "" {
		content = StripObjects(raw)
	}
	return TurnResult{
		Content:     content,
		ToolCalls:   []ToolCall{},
		ToolResults: []any{},
	}, nil
}

// runTool executes the named tool and asks the model, in a fresh single-turn
// context, for a plain-language summary of the result. The decide call has
// always completed before this runs.
func (a *Agent) runTool(ctx context.Context, decision *Decision) (TurnResult, error) {
	args := decision.Args
	if args == nil {
		args = map[string]any{}
	}
	slog.Info("executing tool", "tool", decision.Tool)

	result, err := a.registry.Execute(decision.Tool, args)
	if err != nil {
		return TurnResult{}, fmt.Errorf("execute %s: %w", decision.Tool, err)
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return TurnResult{}, fmt.Errorf("encode tool result: %w", err)
	}

	summary, err := a.chat.Complete(ctx, []ai.Message{{
		Role:    string(domain.RoleUser),
		Content: summarizePrompt(decision.Tool, string(payload)),
	}})
	if err != nil {
		return TurnResult{}, fmt.Errorf("summarize: %w", err)
	}

	return TurnResult{
		Content:     StripObjects(summary),
		ToolCalls:   []ToolCall{{Name: decision.Tool, Args: args}},
		ToolResults: []any{result},
	}, nil
}
