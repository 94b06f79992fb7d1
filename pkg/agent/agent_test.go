package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"librarydesk/pkg/ai"
	"librarydesk/pkg/domain"
	"librarydesk/pkg/store"
	"librarydesk/pkg/tools"
)

// scriptedChat returns canned replies in order and records every prompt.
type scriptedChat struct {
	replies []string
	err     error
	calls   [][]ai.Message
}

func (s *scriptedChat) Complete(_ context.Context, msgs []ai.Message) (string, error) {
	s.calls = append(s.calls, msgs)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func seededRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	st := store.NewMemoryStore()
	if err := st.SaveBook(domain.Book{ISBN: "978-0-13-468599-1", Title: "The Pragmatic Programmer", Author: "Hunt", Price: 39.99, Stock: 5}); err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return tools.NewRegistry(st)
}

func TestProcessTurnPlainReply(t *testing.T) {
	chat := &scriptedChat{replies: []string{`{"response": "Hello there!"}`}}
	a := New(chat, seededRegistry(t))

	res, err := a.ProcessTurn(context.Background(), nil, "hi")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Content != "Hello there!" {
		t.Fatalf("content = %q", res.Content)
	}
	if res.ToolCalls == nil || len(res.ToolCalls) != 0 {
		t.Fatalf("toolCalls = %v, want empty non-nil", res.ToolCalls)
	}
	if len(chat.calls) != 1 {
		t.Fatalf("model called %d times, want 1", len(chat.calls))
	}
	first := chat.calls[0]
	if first[0].Role != "system" {
		t.Fatalf("first message role = %q, want system", first[0].Role)
	}
	if last := first[len(first)-1]; last.Role != "user" || last.Content != "hi" {
		t.Fatalf("last message = %+v", last)
	}
}

func TestProcessTurnToolPath(t *testing.T) {
	chat := &scriptedChat{replies: []string{
		`{"tool": "restock_book", "args": {"isbn": "978-0-13-468599-1", "qty": 3}}`,
		`All set. {"leftover": true} The stock is now 8.`,
	}}
	a := New(chat, seededRegistry(t))

	res, err := a.ProcessTurn(context.Background(), nil, "add 3 copies")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if strings.Contains(res.Content, "{") {
		t.Fatalf("summary not stripped of JSON: %q", res.Content)
	}
	if len(res.ToolCalls) != 1 || res.ToolCalls[0].Name != "restock_book" {
		t.Fatalf("toolCalls = %+v", res.ToolCalls)
	}
	if len(res.ToolResults) != 1 {
		t.Fatalf("toolResults = %+v", res.ToolResults)
	}
	if len(chat.calls) != 2 {
		t.Fatalf("model called %d times, want 2", len(chat.calls))
	}
	// The summarize call is a fresh single-turn prompt carrying the result.
	summarize := chat.calls[1]
	if len(summarize) != 1 || summarize[0].Role != "user" {
		t.Fatalf("summarize prompt = %+v", summarize)
	}
	if !strings.Contains(summarize[0].Content, "restock_book") {
		t.Fatalf("summarize prompt missing tool name: %q", summarize[0].Content)
	}
}

func TestProcessTurnUnknownTool(t *testing.T) {
	chat := &scriptedChat{replies: []string{
		`{"tool": "teleport_books", "args": {}}`,
		`That tool does not exist.`,
	}}
	a := New(chat, seededRegistry(t))

	res, err := a.ProcessTurn(context.Background(), nil, "teleport them")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if len(res.ToolResults) != 1 {
		t.Fatalf("toolResults = %+v", res.ToolResults)
	}
	if _, ok := res.ToolResults[0].(tools.UnknownTool); !ok {
		t.Fatalf("result = %T, want tools.UnknownTool", res.ToolResults[0])
	}
}

func TestProcessTurnModelFailure(t *testing.T) {
	chat := &scriptedChat{err: errors.New("connection refused")}
	a := New(chat, seededRegistry(t))

	if _, err := a.ProcessTurn(context.Background(), nil, "hi"); err == nil {
		t.Fatalf("expected error on model failure")
	}
}

func TestProcessTurnFiltersSystemHistory(t *testing.T) {
	chat := &scriptedChat{replies: []string{`{"response": "ok"}`}}
	a := New(chat, seededRegistry(t))

	prior := []ai.Message{
		{Role: "system", Content: "New session started"},
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}
	if _, err := a.ProcessTurn(context.Background(), prior, "next"); err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	msgs := chat.calls[0]
	for i, m := range msgs {
		if i > 0 && m.Role == "system" {
			t.Fatalf("stray system message at %d: %+v", i, m)
		}
	}
	if len(msgs) != 4 {
		t.Fatalf("prompt has %d messages, want 4", len(msgs))
	}
}

func TestProcessTurnFallsBackToRawText(t *testing.T) {
	chat := &scriptedChat{replies: []string{"Just plain prose, no JSON at all."}}
	a := New(chat, seededRegistry(t))

	res, err := a.ProcessTurn(context.Background(), nil, "hi")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if res.Content != "Just plain prose, no JSON at all." {
		t.Fatalf("content = %q", res.Content)
	}
}
