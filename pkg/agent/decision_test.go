package agent

import "testing"

func TestExtractDecisionToolCall(t *testing.T) {
	d := ExtractDecision(`{"tool": "find_books", "args": {"query": "tolkien", "by": "author"}}`)
	if d == nil {
		t.Fatalf("expected decision, got nil")
	}
	if !d.IsToolCall() {
		t.Fatalf("expected tool call, got %+v", d)
	}
	if d.Tool != "find_books" {
		t.Fatalf("tool = %q, want find_books", d.Tool)
	}
	if got := d.Args["by"]; got != "author" {
		t.Fatalf("args[by] = %v, want author", got)
	}
}

func TestExtractDecisionResponse(t *testing.T) {
	d := ExtractDecision(`{"response": "We have 12 books in stock."}`)
	if d == nil {
		t.Fatalf("expected decision, got nil")
	}
	if d.IsToolCall() {
		t.Fatalf("expected plain response, got tool %q", d.Tool)
	}
	if d.Response != "We have 12 books in stock." {
		t.Fatalf("response = %q", d.Response)
	}
}

func TestExtractDecisionEmbeddedInProse(t *testing.T) {
	raw := "Sure, let me check that for you.\n" +
		`{"tool": "order_status", "args": {"order_id": 7}}` +
		"\nI'll get right on it."
	d := ExtractDecision(raw)
	if d == nil || d.Tool != "order_status" {
		t.Fatalf("decision = %+v, want order_status call", d)
	}
	if got, ok := d.Args["order_id"].(float64); !ok || got != 7 {
		t.Fatalf("args[order_id] = %v", d.Args["order_id"])
	}
}

func TestExtractDecisionNestedBraces(t *testing.T) {
	raw := `Here you go: {"tool": "create_order", "args": {"customer_id": 1, "items": [{"isbn": "978-0-13-468599-1", "qty": 2}]}}`
	d := ExtractDecision(raw)
	if d == nil || d.Tool != "create_order" {
		t.Fatalf("decision = %+v, want create_order call", d)
	}
	items, ok := d.Args["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("args[items] = %v", d.Args["items"])
	}
}

func TestExtractDecisionBracesInStrings(t *testing.T) {
	d := ExtractDecision(`{"response": "Use {curly} braces like this: \"{}\""}`)
	if d == nil {
		t.Fatalf("expected decision, got nil")
	}
	if d.Response != `Use {curly} braces like this: "{}"` {
		t.Fatalf("response = %q", d.Response)
	}
}

func TestExtractDecisionNone(t *testing.T) {
	for _, raw := range []string{
		"Hello! How can I help you today?",
		"",
		`{"unrelated": true}`,
		"mismatched { brace",
	} {
		if d := ExtractDecision(raw); d != nil {
			t.Fatalf("ExtractDecision(%q) = %+v, want nil", raw, d)
		}
	}
}

func TestStripObjects(t *testing.T) {
	got := StripObjects(`The order went through. {"tool": "order_status", "args": {"order_id": 3}} All done.`)
	want := "The order went through.  All done."
	if got != want {
		t.Fatalf("StripObjects = %q, want %q", got, want)
	}
}

func TestStripObjectsOnlyJSON(t *testing.T) {
	raw := `{"response": "ok"}`
	if got := StripObjects(raw); got != raw {
		t.Fatalf("StripObjects = %q, want input back", got)
	}
}

func TestStripObjectsPlainText(t *testing.T) {
	if got := StripObjects("  nothing structured here  "); got != "nothing structured here" {
		t.Fatalf("StripObjects = %q", got)
	}
}
