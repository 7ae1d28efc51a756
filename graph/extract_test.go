package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brunobiangulo/conceptgraph/llm"
)

type fakeChat struct {
	reply string
	err   error
	reqs  []llm.ChatRequest
}

func (f *fakeChat) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.reply}, nil
}

func (f *fakeChat) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

const fencedReply = "Here is the analysis:\n```json\n" + `{
  "concepts": [
    {"id": "Neural Network", "name": "Neural Network", "type": "entity", "importance": 9},
    {"id": "training", "name": "Training", "type": "process"}
  ],
  "relationships": [
    {"source": "training", "target": "neural_network", "relationship_type": "enables", "strength": 7}
  ],
  "summary": "Networks and how they learn."
}` + "\n```\nLet me know if you need more."

func TestExtract(t *testing.T) {
	chat := &fakeChat{reply: fencedReply}
	x := NewExtractor(chat, ExtractorConfig{Model: "test-model", Temperature: 0.3, MaxTokens: 4000})

	res, err := x.Extract(context.Background(), "some document", 25)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Concepts) != 2 || res.Concepts[0].ID != "neural_network" {
		t.Errorf("concepts: %+v", res.Concepts)
	}
	if len(res.Relationships) != 1 || res.Relationships[0].Strength != 7 {
		t.Errorf("relationships: %+v", res.Relationships)
	}
	if res.Summary != "Networks and how they learn." {
		t.Errorf("summary: %q", res.Summary)
	}

	if len(chat.reqs) != 1 {
		t.Fatalf("chat calls: got %d, want 1", len(chat.reqs))
	}
	req := chat.reqs[0]
	if req.Model != "test-model" || req.Temperature != 0.3 || req.MaxTokens != 4000 {
		t.Errorf("request settings: %+v", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Fatalf("messages: %+v", req.Messages)
	}
	user := req.Messages[1].Content
	if !strings.Contains(user, "some document") {
		t.Error("prompt does not embed the document text")
	}
	if strings.Contains(user, "Note: Focus on the top") {
		t.Error("default budget must not add a focus note")
	}
}

func TestExtractBudgetNote(t *testing.T) {
	chat := &fakeChat{reply: `{"concepts": []}`}
	x := NewExtractor(chat, ExtractorConfig{})

	if _, err := x.Extract(context.Background(), "text", 10); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(chat.reqs[0].Messages[1].Content, "Note: Focus on the top 10 most important concepts.") {
		t.Error("missing budget note for non-default concept count")
	}
}

func TestExtractErrors(t *testing.T) {
	t.Run("no json", func(t *testing.T) {
		x := NewExtractor(&fakeChat{reply: "I cannot help with that."}, ExtractorConfig{})
		_, err := x.Extract(context.Background(), "text", 25)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("got %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("broken json", func(t *testing.T) {
		x := NewExtractor(&fakeChat{reply: `{"concepts": [}`}, ExtractorConfig{})
		_, err := x.Extract(context.Background(), "text", 25)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("got %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("transport", func(t *testing.T) {
		boom := errors.New("connection refused")
		x := NewExtractor(&fakeChat{err: boom}, ExtractorConfig{})
		_, err := x.Extract(context.Background(), "text", 25)
		if !errors.Is(err, boom) || errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestGroup(t *testing.T) {
	chat := &fakeChat{reply: `{"groups": [{"group_id": "g1", "group_name": "Learning", "concepts": ["training", "neural_network"], "priority": 1}]}`}
	x := NewExtractor(chat, ExtractorConfig{})

	groups, err := x.Group(context.Background(), []Concept{{ID: "neural_network", Name: "Neural Network"}, {ID: "training", Name: "Training"}})
	if err != nil {
		t.Fatalf("Group: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Concepts) != 2 || groups[0].Priority != 1 {
		t.Errorf("groups: %+v", groups)
	}
	if !strings.Contains(chat.reqs[0].Messages[1].Content, `"id": "training"`) {
		t.Error("grouping prompt should list concept ids")
	}

	empty, err := x.Group(context.Background(), nil)
	if err != nil || len(empty) != 0 || len(chat.reqs) != 1 {
		t.Errorf("empty concept list should not call the model: %v %v", empty, err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"fence without language", "```\n{\"a\":1}\n```", `{"a":1}`, false},
		{"prose around", `Sure! {"a":{"b":2}} Hope this helps.`, `{"a":{"b":2}}`, false},
		{"fence after the object", "{\"concepts\":[{\"id\":\"a\",\"name\":\"A\"}]}\n\nExample usage:\n```python\nprint(1)\n```",
			`{"concepts":[{"id":"a","name":"A"}]}`, false},
		{"prose then fenced object", "Here you go:\n```json\n{\"a\":1}\n```\nDone.", `{"a":1}`, false},
		{"none", "nothing here", "", true},
		{"reversed braces", "} {", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	if got := truncateText("short", 0); got != "short" {
		t.Errorf("limit 0: got %q", got)
	}
	if got := truncateText("hello wonderful world", 18); got != "hello wonderful" {
		t.Errorf("word boundary: got %q", got)
	}
	if got := truncateText("ééééé", 3); got != "ééé" {
		t.Errorf("counts characters: got %q", got)
	}
	if got := truncateText("über straße und mehr", 15); got != "über straße" {
		t.Errorf("non-ASCII word boundary: got %q", got)
	}
}
