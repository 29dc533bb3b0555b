package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/cmdbot/internal/models"
)

type MemoryStorage struct {
	mu           sync.RWMutex
	interactions []*models.Interaction
	offset       int
	hasOffset    bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) LogInteraction(ctx context.Context, interaction *models.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.append(interaction)
	return nil
}

func (s *MemoryStorage) LogPrompt(ctx context.Context, chatID int64, prompt models.CurrentPrompt) error {
	interaction, err := newPromptInteraction(chatID, prompt)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.append(interaction)
	return nil
}

func (s *MemoryStorage) LastActivePrompt(ctx context.Context, chatID int64) (*models.CurrentPrompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Records are kept in insertion order, newest last.
	for i := len(s.interactions) - 1; i >= 0; i-- {
		in := s.interactions[i]
		if in.ChatID != chatID || !in.IsPrompt || in.PromptStatus != models.PromptActive {
			continue
		}
		return decodePrompt(in.Content)
	}
	return nil, nil
}

func (s *MemoryStorage) ResolvePrompt(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, in := range s.interactions {
		if in.ChatID == chatID && in.PromptStatus == models.PromptActive {
			in.PromptStatus = models.PromptResolved
		}
	}
	return nil
}

func (s *MemoryStorage) RecentInteractions(ctx context.Context, chatID int64, limit int) ([]*models.Interaction, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Interaction, 0, limit)
	for i := len(s.interactions) - 1; i >= 0 && len(result) < limit; i-- {
		in := s.interactions[i]
		if in.ChatID != chatID {
			continue
		}
		copied := *in
		result = append(result, &copied)
	}
	return result, nil
}

func (s *MemoryStorage) LoadOffset(ctx context.Context) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.offset, s.hasOffset, nil
}

func (s *MemoryStorage) SaveOffset(ctx context.Context, offset int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.offset = offset
	s.hasOffset = true
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

// append stores a copy so callers cannot mutate logged records. Caller holds mu.
func (s *MemoryStorage) append(interaction *models.Interaction) {
	copied := *interaction
	if copied.ID == "" {
		copied.ID = uuid.New().String()
	}
	if copied.Timestamp.IsZero() {
		copied.Timestamp = time.Now()
	}
	s.interactions = append(s.interactions, &copied)
}

func newPromptInteraction(chatID int64, prompt models.CurrentPrompt) (*models.Interaction, error) {
	if prompt.Arguments == nil {
		prompt.Arguments = []string{}
	}
	interaction, err := models.NewInteraction(models.System, chatID, models.TypePromptStart, prompt)
	if err != nil {
		return nil, err
	}
	interaction.IsPrompt = true
	interaction.PromptStatus = models.PromptActive
	return interaction, nil
}

func decodePrompt(raw []byte) (*models.CurrentPrompt, error) {
	var prompt models.CurrentPrompt
	if err := json.Unmarshal(raw, &prompt); err != nil {
		return nil, fmt.Errorf("decode prompt content: %w", err)
	}
	if prompt.Arguments == nil {
		prompt.Arguments = []string{}
	}
	return &prompt, nil
}
