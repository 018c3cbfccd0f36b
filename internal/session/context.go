// Package session carries the lightweight (session_id, channel_id, agent_id)
// scoping triple through a context.Context so tool handlers can attribute
// memory writes and reminders without threading an extra parameter through
// every call.
package session

import (
	"context"

	"github.com/haasonsaas/orchestrator/pkg/models"
)

type contextKey struct{}

// NewContext returns a context carrying s, retrievable with FromContext.
func NewContext(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stashed in ctx, or nil if none was set.
func FromContext(ctx context.Context) *models.Session {
	s, _ := ctx.Value(contextKey{}).(*models.Session)
	return s
}
