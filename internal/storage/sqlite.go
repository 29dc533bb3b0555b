package storage

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var dollarParam = regexp.MustCompile(`\$(\d+)`)

// sqliteQueries reuses the postgres statements with ?N placeholders. Rows are
// ordered by seq since DATETIME values are stored as text.
var sqliteQueries = queries{
	insertInteraction: toSQLite(postgresQueries.insertInteraction),
	lastActivePrompt: `
		SELECT content FROM interactions
		WHERE chat_id = ?1 AND is_prompt = 1 AND prompt_status = 'active'
		ORDER BY seq DESC
		LIMIT 1`,
	resolvePrompt: toSQLite(postgresQueries.resolvePrompt),
	recentInteractions: `
		SELECT ` + postgresColumns + `
		FROM interactions
		WHERE chat_id = ?1
		ORDER BY seq DESC
		LIMIT ?2`,
	loadOffset: postgresQueries.loadOffset,
	saveOffset: toSQLite(postgresQueries.saveOffset),
}

type SQLiteStorage struct {
	*sqlStorage
}

func NewSQLiteStorage(path string, logger *zap.Logger) (*SQLiteStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite database path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{sqlStorage: &sqlStorage{
		db:      db,
		q:       sqliteQueries,
		logger:  logger.Named("storage.sqlite"),
		dialect: "sqlite",
	}}

	schema, err := migrations.ReadFile("sqlite_migrations.sql")
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

func toSQLite(query string) string {
	return dollarParam.ReplaceAllString(query, "?$1")
}
