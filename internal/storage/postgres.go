package storage

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations.sql sqlite_migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
}

const postgresColumns = `id, created_at, direction, chat_id, update_id, message_type, content, is_prompt, prompt_status`

var postgresQueries = queries{
	insertInteraction: `
		INSERT INTO interactions (` + postgresColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	lastActivePrompt: `
		SELECT content FROM interactions
		WHERE chat_id = $1 AND is_prompt = TRUE AND prompt_status = 'active'
		ORDER BY created_at DESC, seq DESC
		LIMIT 1`,
	resolvePrompt: `
		UPDATE interactions
		SET prompt_status = 'resolved'
		WHERE chat_id = $1 AND prompt_status = 'active'`,
	recentInteractions: `
		SELECT ` + postgresColumns + `
		FROM interactions
		WHERE chat_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2`,
	loadOffset: `SELECT last_update_id FROM poll_state WHERE id = 1`,
	saveOffset: `
		INSERT INTO poll_state (id, last_update_id, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET last_update_id = excluded.last_update_id, updated_at = excluded.updated_at`,
}

type PostgresStorage struct {
	*sqlStorage
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{sqlStorage: &sqlStorage{
		db:      db,
		q:       postgresQueries,
		logger:  logger.Named("storage.postgres"),
		dialect: "postgres",
	}}

	schema, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error reading migrations file: %w", err)
	}
	if err := storage.initializeSchema(string(schema)); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}
