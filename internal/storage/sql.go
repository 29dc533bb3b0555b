package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/cmdbot/internal/models"
	"go.uber.org/zap"
)

type queries struct {
	insertInteraction  string
	lastActivePrompt   string
	resolvePrompt      string
	recentInteractions string
	loadOffset         string
	saveOffset         string
}

// sqlStorage implements HistoryStore on top of database/sql. The dialect
// specific parts are the driver, the schema and the query strings.
type sqlStorage struct {
	db      *sql.DB
	q       queries
	logger  *zap.Logger
	dialect string
}

func (s *sqlStorage) LogInteraction(ctx context.Context, interaction *models.Interaction) error {
	id := interaction.ID
	if id == "" {
		id = uuid.New().String()
	}
	ts := interaction.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var updateID sql.NullInt64
	if interaction.UpdateID != nil {
		updateID = sql.NullInt64{Int64: int64(*interaction.UpdateID), Valid: true}
	}
	var status sql.NullString
	if interaction.PromptStatus != models.PromptNone {
		status = sql.NullString{String: string(interaction.PromptStatus), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.q.insertInteraction,
		id,
		ts.UTC(),
		string(interaction.Direction),
		interaction.ChatID,
		updateID,
		interaction.MessageType,
		string(interaction.Content),
		interaction.IsPrompt,
		status,
	)
	if err != nil {
		return fmt.Errorf("error inserting interaction: %w", err)
	}
	return nil
}

func (s *sqlStorage) LogPrompt(ctx context.Context, chatID int64, prompt models.CurrentPrompt) error {
	interaction, err := newPromptInteraction(chatID, prompt)
	if err != nil {
		return err
	}
	return s.LogInteraction(ctx, interaction)
}

func (s *sqlStorage) LastActivePrompt(ctx context.Context, chatID int64) (*models.CurrentPrompt, error) {
	var content string
	err := s.db.QueryRowContext(ctx, s.q.lastActivePrompt, chatID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying active prompt: %w", err)
	}
	return decodePrompt([]byte(content))
}

func (s *sqlStorage) ResolvePrompt(ctx context.Context, chatID int64) error {
	result, err := s.db.ExecContext(ctx, s.q.resolvePrompt, chatID)
	if err != nil {
		return fmt.Errorf("error resolving prompt: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil {
		s.logger.Debug("Resolved prompts", zap.Int64("chat_id", chatID), zap.Int64("rows", rows))
	}
	return nil
}

func (s *sqlStorage) RecentInteractions(ctx context.Context, chatID int64, limit int) ([]*models.Interaction, error) {
	rows, err := s.db.QueryContext(ctx, s.q.recentInteractions, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying interactions: %w", err)
	}
	defer rows.Close()

	var interactions []*models.Interaction
	for rows.Next() {
		var (
			in       models.Interaction
			dir      string
			updateID sql.NullInt64
			content  string
			status   sql.NullString
		)
		err := rows.Scan(
			&in.ID,
			&in.Timestamp,
			&dir,
			&in.ChatID,
			&updateID,
			&in.MessageType,
			&content,
			&in.IsPrompt,
			&status,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning interaction: %w", err)
		}
		in.Direction = models.Direction(dir)
		in.Content = []byte(content)
		if updateID.Valid {
			in.WithUpdateID(int(updateID.Int64))
		}
		if status.Valid {
			in.PromptStatus = models.PromptStatus(status.String)
		}
		interactions = append(interactions, &in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interactions: %w", err)
	}

	return interactions, nil
}

func (s *sqlStorage) LoadOffset(ctx context.Context) (int, bool, error) {
	var offset int64
	err := s.db.QueryRowContext(ctx, s.q.loadOffset).Scan(&offset)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("error loading offset: %w", err)
	}
	return int(offset), true, nil
}

func (s *sqlStorage) SaveOffset(ctx context.Context, offset int) error {
	if _, err := s.db.ExecContext(ctx, s.q.saveOffset, int64(offset), time.Now().UTC()); err != nil {
		return fmt.Errorf("error saving offset: %w", err)
	}
	return nil
}

func (s *sqlStorage) Close() error {
	return s.db.Close()
}

func (s *sqlStorage) initializeSchema(schema string) error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("error executing %s migrations: %w", s.dialect, err)
	}
	return nil
}
