package models

import "time"

// RatingRecord is a normalized instructor rating. Absent fields stay nil:
// zero is a valid rating and must never stand in for "unknown".
type RatingRecord struct {
	InstructorName string   `json:"instructor_name"`
	School         string   `json:"school"`
	AvgRating      *float64 `json:"avg_rating,omitempty"`
	AvgDifficulty  *float64 `json:"avg_difficulty,omitempty"`
	WouldTakeAgain *float64 `json:"would_take_again,omitempty"`
	NumRatings     int      `json:"num_ratings"`
	Department     string   `json:"department,omitempty"`
	SourceID       string   `json:"source_id,omitempty"`
	TopCourses     []string `json:"top_courses,omitempty"`
}

// RatingCacheRow is the durable cache row for an instructor rating,
// keyed by (instructor_name, school_id).
type RatingCacheRow struct {
	ID             string    `db:"id"`
	InstructorName string    `db:"instructor_name"`
	SchoolID       string    `db:"school_id"`
	SourceID       *string   `db:"source_id"`
	AvgRating      *float64  `db:"avg_rating"`
	AvgDifficulty  *float64  `db:"avg_difficulty"`
	WouldTakeAgain *float64  `db:"would_take_again"`
	NumRatings     int       `db:"num_ratings"`
	Department     *string   `db:"department"`
	TopCourses     string    `db:"top_courses"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	ExpiresAt      time.Time `db:"expires_at"`
}

// ScrapeLog records the outcome of one upstream operation for diagnostics.
type ScrapeLog struct {
	ID           string    `db:"id"`
	Source       string    `db:"source"`
	Operation    string    `db:"operation"`
	Status       string    `db:"status"`
	Term         *string   `db:"term"`
	Subject      *string   `db:"subject"`
	Query        *string   `db:"query"`
	ItemsFound   int       `db:"items_found"`
	DurationMS   int64     `db:"duration_ms"`
	ErrorMessage *string   `db:"error_message"`
	CreatedAt    time.Time `db:"created_at"`
}

// Scrape log status values.
const (
	ScrapeStatusSuccess  = "success"
	ScrapeStatusNotFound = "not_found"
	ScrapeStatusError    = "error"
)
