package session

import (
	"context"

	"github.com/vovakirdan/chatpad-sync/internal/composer"
	"github.com/vovakirdan/chatpad-sync/internal/core"
)

// Backend is everything the session needs from the chat server. It is the
// only boundary through which the session performs I/O.
type Backend interface {
	composer.Dispatcher

	// FetchGroup resolves a group and its members.
	FetchGroup(ctx context.Context, groupID string) (core.Group, error)

	// FetchHistoricalMessages returns the one-shot message snapshot of a group.
	FetchHistoricalMessages(ctx context.Context, groupID string) ([]core.Message, error)

	// OpenLiveMessages subscribes to full-state message lists. The stream is
	// not scoped to a group.
	OpenLiveMessages(ctx context.Context) (core.Feed[[]core.Message], error)

	// OpenPresence subscribes to online/typing observations of all users.
	OpenPresence(ctx context.Context) (core.Feed[[]core.PresenceEvent], error)

	// RefreshActivity is the periodic heartbeat.
	RefreshActivity(ctx context.Context) error

	// SetOnline switches a user online or offline.
	SetOnline(ctx context.Context, userID string, online bool) error
}
