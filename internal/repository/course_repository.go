package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/coursescout/coursescout-api/internal/models"
)

// CourseRepository is the durable tier of the course cache. Rows carry an
// explicit expiry; reads never return expired entries.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// UpsertMany replaces the stored snapshot for each section by (term, crn).
func (r *CourseRepository) UpsertMany(ctx context.Context, term string, courses []models.CourseRecord, expiresAt time.Time) error {
	const query = `
		INSERT INTO course_cache (
			id, crn, term, subject, course_number, section, title, credits,
			instructor, days, time_range, location, seats_available, seats_total,
			delivery_mode, created_at, updated_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16, $17)
		ON CONFLICT (term, crn) DO UPDATE SET
			subject = EXCLUDED.subject,
			course_number = EXCLUDED.course_number,
			section = EXCLUDED.section,
			title = EXCLUDED.title,
			credits = EXCLUDED.credits,
			instructor = EXCLUDED.instructor,
			days = EXCLUDED.days,
			time_range = EXCLUDED.time_range,
			location = EXCLUDED.location,
			seats_available = EXCLUDED.seats_available,
			seats_total = EXCLUDED.seats_total,
			delivery_mode = EXCLUDED.delivery_mode,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at`

	now := time.Now().UTC()
	for _, course := range courses {
		_, err := r.db.ExecContext(ctx, query,
			uuid.NewString(),
			course.CRN,
			term,
			course.Subject,
			course.CourseNumber,
			course.Section,
			course.Title,
			course.Credits,
			nullable(course.Instructor),
			strings.Join(course.Days, ""),
			nullable(course.TimeRange),
			nullable(course.Location),
			course.SeatsAvailable,
			course.SeatsTotal,
			course.DeliveryMode,
			now,
			expiresAt,
		)
		if err != nil {
			return fmt.Errorf("upsert course %s/%s: %w", term, course.CRN, err)
		}
	}
	return nil
}

// FindByTermSubject returns unexpired cached sections for a term and subject.
func (r *CourseRepository) FindByTermSubject(ctx context.Context, term, subject string) ([]models.CourseRecord, error) {
	const query = `
		SELECT id, crn, term, subject, course_number, section, title, credits,
		       instructor, days, time_range, location, seats_available, seats_total,
		       delivery_mode, created_at, updated_at, expires_at
		FROM course_cache
		WHERE term = $1 AND subject = $2 AND expires_at > $3
		ORDER BY course_number, section`

	var rows []models.CourseCacheRow
	if err := r.db.SelectContext(ctx, &rows, query, term, subject, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("find courses %s/%s: %w", term, subject, err)
	}

	courses := make([]models.CourseRecord, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, rowToCourse(row))
	}
	return courses, nil
}

// DeleteExpired prunes rows whose expiry has passed.
func (r *CourseRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM course_cache WHERE expires_at <= $1`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("prune course cache: %w", err)
	}
	return result.RowsAffected()
}

func rowToCourse(row models.CourseCacheRow) models.CourseRecord {
	course := models.CourseRecord{
		CRN:            row.CRN,
		Term:           row.Term,
		Subject:        row.Subject,
		CourseNumber:   row.CourseNumber,
		Section:        row.Section,
		Title:          row.Title,
		Credits:        row.Credits,
		SeatsAvailable: row.SeatsAvailable,
		SeatsTotal:     row.SeatsTotal,
		DeliveryMode:   row.DeliveryMode,
	}
	if row.Instructor != nil {
		course.Instructor = *row.Instructor
	}
	if row.TimeRange != nil {
		course.TimeRange = *row.TimeRange
	}
	if row.Location != nil {
		course.Location = *row.Location
	}
	if row.Days != "" {
		course.Days = strings.Split(row.Days, "")
	}
	return course
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
