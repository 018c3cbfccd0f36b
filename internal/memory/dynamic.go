package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/orchestrator/pkg/models"
)

// DynamicMemory is the C8 dynamic long-term memory contract: SaveContent
// persists a navigator summary flagged with the save-in-memory marker, and
// Query retrieves whatever is most relevant to the Planner's current
// context. It is the Go analog of a RAG-backed long-term memory built on an
// external assistant agent, here built directly on this package's own
// vector-search Manager instead.
type DynamicMemory struct {
	manager *Manager
	session models.Session
}

// NewDynamicMemory scopes a DynamicMemory to one command's session triple,
// so writes and reads for this command never bleed into another.
func NewDynamicMemory(m *Manager, session models.Session) *DynamicMemory {
	return &DynamicMemory{manager: m, session: session}
}

// SaveContent indexes content for later retrieval. Empty content is a no-op,
// matching the source behavior of skipping blank saves rather than
// persisting an empty document.
func (d *DynamicMemory) SaveContent(ctx context.Context, content string) error {
	if d == nil || d.manager == nil {
		return nil
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	now := time.Now()
	entry := &models.MemoryEntry{
		ID:        uuid.New().String(),
		SessionID: d.session.ID,
		ChannelID: d.session.ChannelID,
		AgentID:   d.session.AgentID,
		Content:   content,
		Metadata: models.MemoryMetadata{
			Source: "navigator_summary",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return d.manager.Index(ctx, []*models.MemoryEntry{entry})
}

// Query retrieves the content most relevant to context, scoped strictly to
// this command's session — deliberately narrower than the hierarchical
// session/agent/channel/global search the rest of this package offers,
// since a navigator summary saved during one command must never leak into
// another command's dialogue.
func (d *DynamicMemory) Query(ctx context.Context, queryContext string) (string, error) {
	if d == nil || d.manager == nil {
		return "", nil
	}

	resp, err := d.manager.Search(ctx, &models.SearchRequest{
		Query:   queryContext,
		Scope:   models.ScopeSession,
		ScopeID: d.session.ID,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, r := range resp.Results {
		if r.Entry == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.Entry.Content)
	}
	return b.String(), nil
}
