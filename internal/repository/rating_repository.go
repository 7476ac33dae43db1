package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coursescout/coursescout-api/internal/models"
)

// RatingRepository is the durable tier of the instructor rating cache,
// keyed by (instructor_name, school_id).
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs a RatingRepository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert stores or refreshes the rating for an instructor at a school.
func (r *RatingRepository) Upsert(ctx context.Context, rating models.RatingRecord, schoolID string, expiresAt time.Time) error {
	const query = `
		INSERT INTO professor_cache (
			id, instructor_name, school_id, source_id, avg_rating, avg_difficulty,
			would_take_again, num_ratings, department, top_courses,
			created_at, updated_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11, $12)
		ON CONFLICT (instructor_name, school_id) DO UPDATE SET
			source_id = EXCLUDED.source_id,
			avg_rating = EXCLUDED.avg_rating,
			avg_difficulty = EXCLUDED.avg_difficulty,
			would_take_again = EXCLUDED.would_take_again,
			num_ratings = EXCLUDED.num_ratings,
			department = EXCLUDED.department,
			top_courses = EXCLUDED.top_courses,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at`

	_, err := r.db.ExecContext(ctx, query,
		uuid.NewString(),
		rating.InstructorName,
		schoolID,
		nullable(rating.SourceID),
		rating.AvgRating,
		rating.AvgDifficulty,
		rating.WouldTakeAgain,
		rating.NumRatings,
		nullable(rating.Department),
		strings.Join(rating.TopCourses, ","),
		time.Now().UTC(),
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert rating %s: %w", rating.InstructorName, err)
	}
	return nil
}

// Find returns the stored rating if present and unexpired.
func (r *RatingRepository) Find(ctx context.Context, instructorName, schoolID string) (*models.RatingRecord, error) {
	const query = `
		SELECT id, instructor_name, school_id, source_id, avg_rating, avg_difficulty,
		       would_take_again, num_ratings, department, top_courses,
		       created_at, updated_at, expires_at
		FROM professor_cache
		WHERE instructor_name = $1 AND school_id = $2 AND expires_at > $3`

	var row models.RatingCacheRow
	if err := r.db.GetContext(ctx, &row, query, instructorName, schoolID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find rating %s: %w", instructorName, err)
	}

	rating := models.RatingRecord{
		InstructorName: row.InstructorName,
		AvgRating:      row.AvgRating,
		AvgDifficulty:  row.AvgDifficulty,
		WouldTakeAgain: row.WouldTakeAgain,
		NumRatings:     row.NumRatings,
	}
	if row.SourceID != nil {
		rating.SourceID = *row.SourceID
	}
	if row.Department != nil {
		rating.Department = *row.Department
	}
	if row.TopCourses != "" {
		rating.TopCourses = strings.Split(row.TopCourses, ",")
	}
	return &rating, nil
}
