package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coursescout/coursescout-api/internal/models"
)

// ScrapeLogRepository records scrape outcomes for diagnostics. Writes are
// best-effort; callers log failures and move on.
type ScrapeLogRepository struct {
	db *sqlx.DB
}

// NewScrapeLogRepository constructs a ScrapeLogRepository.
func NewScrapeLogRepository(db *sqlx.DB) *ScrapeLogRepository {
	return &ScrapeLogRepository{db: db}
}

// Insert appends one scrape outcome row.
func (r *ScrapeLogRepository) Insert(ctx context.Context, log models.ScrapeLog) error {
	const query = `
		INSERT INTO scraper_logs (
			id, source, operation, status, term, subject, query,
			items_found, duration_ms, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.Source,
		log.Operation,
		log.Status,
		log.Term,
		log.Subject,
		log.Query,
		log.ItemsFound,
		log.DurationMS,
		log.ErrorMessage,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scrape log: %w", err)
	}
	return nil
}
