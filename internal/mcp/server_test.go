package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/memgate-labs/memgate/internal/answer"
	"github.com/memgate-labs/memgate/internal/bus"
	"github.com/memgate-labs/memgate/internal/config"
	"github.com/memgate-labs/memgate/internal/consent"
	"github.com/memgate-labs/memgate/internal/embedding"
	"github.com/memgate-labs/memgate/internal/gateway"
	"github.com/memgate-labs/memgate/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Embedding = config.EmbeddingConfig{Provider: "local", Dimensions: 32}

	db, err := store.OpenMemory(32)
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc, err := embedding.NewService(cfg.Embedding, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	repo := store.NewRepo(db, svc, cfg.Retrieval, cfg.StrictMatch(), nil)
	controller := gateway.New(
		repo,
		consent.New(time.Minute),
		answer.New(cfg.Answer, nil),
		bus.New(50),
		cfg,
		nil,
	)
	return NewServer(controller)
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return tc.Text
}

func TestQueryToolValidation(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.handleQuery(context.Background(), nil, queryInput{Topic: "  "})
	if err != nil {
		t.Fatalf("tool handlers must not return errors: %v", err)
	}
	if got := resultText(t, res); got != "ERROR: 'topic' is required." {
		t.Errorf("empty topic: %q", got)
	}

	long := strings.Repeat("x", maxTopicLen+1)
	res, _, _ = s.handleQuery(context.Background(), nil, queryInput{Topic: long})
	if got := resultText(t, res); !strings.HasPrefix(got, "ERROR:") {
		t.Errorf("oversized topic: %q", got)
	}
}

func TestQueryToolEmptyStore(t *testing.T) {
	s := newTestServer(t)
	res, _, err := s.handleQuery(context.Background(), nil, queryInput{Topic: "anything"})
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); got != gateway.NoContextFound {
		t.Errorf("got %q, want %s", got, gateway.NoContextFound)
	}
}

func TestSaveToolRoundtrip(t *testing.T) {
	s := newTestServer(t)

	res, _, err := s.handleSave(context.Background(), nil, saveInput{Fact: ""})
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); got != "ERROR: 'fact' is required." {
		t.Errorf("empty fact: %q", got)
	}

	res, _, _ = s.handleSave(context.Background(), nil, saveInput{Fact: "I like green tea", Category: "prefs"})
	if got := resultText(t, res); !strings.HasPrefix(got, "MEMORY_SAVED: ") {
		t.Fatalf("save result: %q", got)
	}

	res, _, _ = s.handleQuery(context.Background(), nil, queryInput{Topic: "green tea"})
	if got := resultText(t, res); !strings.Contains(got, "I like green tea") {
		t.Errorf("saved fact not retrievable: %q", got)
	}
}
