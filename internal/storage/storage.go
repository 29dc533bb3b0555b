package storage

import (
	"context"
	"errors"

	"github.com/xaenox/cmdbot/internal/models"
)

// ErrUnknownDriver is returned by Open for an unsupported database driver.
var ErrUnknownDriver = errors.New("unknown storage driver")

// HistoryStore is the durable interaction log. It doubles as the store for
// active prompts: the last active prompt of a chat is derived by query.
type HistoryStore interface {
	LogInteraction(ctx context.Context, interaction *models.Interaction) error
	LogPrompt(ctx context.Context, chatID int64, prompt models.CurrentPrompt) error
	LastActivePrompt(ctx context.Context, chatID int64) (*models.CurrentPrompt, error)
	ResolvePrompt(ctx context.Context, chatID int64) error
	RecentInteractions(ctx context.Context, chatID int64, limit int) ([]*models.Interaction, error)
	Close() error

	// Embed OffsetStore interface
	OffsetStore
}

// OffsetStore persists the long-poll offset across restarts.
type OffsetStore interface {
	LoadOffset(ctx context.Context) (offset int, ok bool, err error)
	SaveOffset(ctx context.Context, offset int) error
}
