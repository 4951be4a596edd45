package storage

import (
	"context"

	"github.com/branchwatch/social-listening-bot/internal/models"
)

// Writer is the contract for the tabular sink. Append must be a single
// bulk operation; it never re-reads existing data to compute a position.
type Writer interface {
	Append(ctx context.Context, rows []models.Row) error
	ReadAll(ctx context.Context) ([]models.Row, error)
	Close() error
}
