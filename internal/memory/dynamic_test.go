package memory

import (
	"context"
	"testing"

	"github.com/haasonsaas/orchestrator/internal/memory/backend"
	"github.com/haasonsaas/orchestrator/pkg/models"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (fakeEmbedder) Name() string      { return "fake" }
func (fakeEmbedder) Dimension() int    { return 3 }
func (fakeEmbedder) MaxBatchSize() int { return 100 }

type fakeBackend struct {
	indexed []*models.MemoryEntry
}

func (b *fakeBackend) Index(ctx context.Context, entries []*models.MemoryEntry) error {
	b.indexed = append(b.indexed, entries...)
	return nil
}

func (b *fakeBackend) Search(ctx context.Context, embedding []float32, opts *backend.SearchOptions) ([]*models.SearchResult, error) {
	var out []*models.SearchResult
	for _, e := range b.indexed {
		if opts.ScopeID != "" {
			switch opts.Scope {
			case models.ScopeSession:
				if e.SessionID != opts.ScopeID {
					continue
				}
			case models.ScopeChannel:
				if e.ChannelID != opts.ScopeID {
					continue
				}
			case models.ScopeAgent:
				if e.AgentID != opts.ScopeID {
					continue
				}
			}
		}
		out = append(out, &models.SearchResult{Entry: e, Score: 1})
	}
	return out, nil
}

func (b *fakeBackend) Delete(ctx context.Context, ids []string) error { return nil }
func (b *fakeBackend) Count(ctx context.Context, scope models.MemoryScope, scopeID string) (int64, error) {
	return int64(len(b.indexed)), nil
}
func (b *fakeBackend) Compact(ctx context.Context) error { return nil }
func (b *fakeBackend) Close() error                      { return nil }

func newTestManager(fb *fakeBackend) *Manager {
	cfg := &Config{Dimension: 3}
	cfg.Search.DefaultLimit = 10
	cfg.Search.DefaultThreshold = 0
	return &Manager{
		backend:  fb,
		embedder: fakeEmbedder{},
		config:   cfg,
		cache:    newEmbeddingCache(10),
	}
}

func TestDynamicMemory_SaveContentThenQueryRoundTrips(t *testing.T) {
	fb := &fakeBackend{}
	mgr := newTestManager(fb)
	session := models.Session{ID: "sess-1", ChannelID: "run-1", AgentID: "browser"}
	dyn := NewDynamicMemory(mgr, session)

	if err := dyn.SaveContent(context.Background(), "the checkout page total was $42.00"); err != nil {
		t.Fatalf("SaveContent error: %v", err)
	}
	if len(fb.indexed) != 1 {
		t.Fatalf("expected one indexed entry, got %d", len(fb.indexed))
	}

	got, err := dyn.Query(context.Background(), "what was the checkout total?")
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if got != "the checkout page total was $42.00" {
		t.Fatalf("Query() = %q, want the saved content back", got)
	}
}

func TestDynamicMemory_SaveContentSkipsBlank(t *testing.T) {
	fb := &fakeBackend{}
	mgr := newTestManager(fb)
	dyn := NewDynamicMemory(mgr, models.Session{ID: "sess-1"})

	if err := dyn.SaveContent(context.Background(), "   "); err != nil {
		t.Fatalf("SaveContent error: %v", err)
	}
	if len(fb.indexed) != 0 {
		t.Fatalf("expected blank content to be skipped, got %d entries", len(fb.indexed))
	}
}

func TestDynamicMemory_QueryIsScopedToSession(t *testing.T) {
	fb := &fakeBackend{}
	mgr := newTestManager(fb)
	other := NewDynamicMemory(mgr, models.Session{ID: "other-session"})
	mine := NewDynamicMemory(mgr, models.Session{ID: "my-session"})

	if err := other.SaveContent(context.Background(), "irrelevant to this command"); err != nil {
		t.Fatalf("SaveContent error: %v", err)
	}

	got, err := mine.Query(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if got != "" {
		t.Fatalf("Query() = %q, want empty — other session's memory must not leak in", got)
	}
}

func TestDynamicMemory_NilManagerIsInert(t *testing.T) {
	var dyn *DynamicMemory
	if err := dyn.SaveContent(context.Background(), "anything"); err != nil {
		t.Fatalf("SaveContent on nil should be a no-op, got %v", err)
	}
	got, err := dyn.Query(context.Background(), "anything")
	if err != nil || got != "" {
		t.Fatalf("Query on nil = (%q, %v), want (\"\", nil)", got, err)
	}
}
