package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteWriter appends enriched mention rows to a local SQLite file.
type SQLiteWriter struct {
	db              *sql.DB
	dedupAcrossRuns bool
}

var _ Writer = (*SQLiteWriter)(nil)

// NewSQLiteWriter opens (or creates) the sink at path. When
// dedupAcrossRuns is set, rows whose (source, id) pair was persisted by an
// earlier run are silently skipped on append.
func NewSQLiteWriter(path string, dedupAcrossRuns bool) (*SQLiteWriter, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sink: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach sink: %w", err)
	}

	writer := &SQLiteWriter{db: db, dedupAcrossRuns: dedupAcrossRuns}
	if err := writer.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return writer, nil
}

func (s *SQLiteWriter) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS mentions (
			timestamp TEXT NOT NULL,
			source TEXT NOT NULL,
			id TEXT NOT NULL,
			user TEXT NOT NULL,
			text TEXT NOT NULL,
			sentiment_label TEXT NOT NULL,
			sentiment_score REAL NOT NULL
		);`,
	}

	if s.dedupAcrossRuns {
		stmts = append(stmts,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_mentions_source_id ON mentions(source, id);`)
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("sink migration failed: %w", err)
		}
	}

	return nil
}

// Append persists the batch as one bulk INSERT inside a transaction.
func (s *SQLiteWriter) Append(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	builder := sq.Insert("mentions").
		Columns("timestamp", "source", "id", "user", "text", "sentiment_label", "sentiment_score")
	if s.dedupAcrossRuns {
		builder = builder.Options("OR IGNORE")
	}

	for _, row := range rows {
		builder = builder.Values(
			row.Timestamp.UTC().Format(time.RFC3339Nano),
			row.Source,
			row.ID,
			row.User,
			row.Text,
			row.SentimentLabel,
			row.SentimentScore,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build append statement: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sink transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to append %d rows: %w", len(rows), err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit append: %w", err)
	}

	logrus.Infof("Appended %d rows to sink", len(rows))
	return nil
}

// ReadAll returns every persisted row in insertion order.
func (s *SQLiteWriter) ReadAll(ctx context.Context) ([]models.Row, error) {
	query, args, err := sq.Select("timestamp", "source", "id", "user", "text", "sentiment_label", "sentiment_score").
		From("mentions").
		OrderBy("rowid").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build read statement: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read sink: %w", err)
	}
	defer rows.Close()

	var out []models.Row
	for rows.Next() {
		var row models.Row
		var timestamp string
		if err := rows.Scan(&timestamp, &row.Source, &row.ID, &row.User, &row.Text, &row.SentimentLabel, &row.SentimentScore); err != nil {
			return nil, fmt.Errorf("failed to scan sink row: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("sink row has malformed timestamp %q: %w", timestamp, err)
		}
		row.Timestamp = parsed
		out = append(out, row)
	}

	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteWriter) Close() error {
	return s.db.Close()
}
