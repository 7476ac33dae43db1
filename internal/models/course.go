package models

import "time"

// Delivery modes as reported by the schedule source.
const (
	DeliveryInPerson = "In-Person"
	DeliveryOnline   = "Online"
	DeliveryHybrid   = "Hybrid"
)

// WeekdaySymbols is the fixed day alphabet the schedule source uses:
// R is Thursday, U is Sunday.
var WeekdaySymbols = []string{"M", "T", "W", "R", "F", "S", "U"}

// CourseRecord is one offered section of a course within a term. Records are
// produced by the schedule parser and cached with an expiry; re-scraping
// replaces cached values rather than mutating them.
type CourseRecord struct {
	CRN            string   `json:"crn"`
	Term           string   `json:"term"`
	Subject        string   `json:"subject"`
	CourseNumber   string   `json:"course_number"`
	Section        string   `json:"section"`
	Title          string   `json:"title"`
	Credits        int      `json:"credits"`
	Instructor     string   `json:"instructor,omitempty"`
	Days           []string `json:"days,omitempty"`
	TimeRange      string   `json:"time_range,omitempty"`
	Location       string   `json:"location,omitempty"`
	DeliveryMode   string   `json:"delivery_mode"`
	SeatsAvailable int      `json:"seats_available"`
	SeatsTotal     int      `json:"seats_total"`
}

// Code returns the SUBJECT+NUMBER key used for completed-course exclusion.
func (c CourseRecord) Code() string {
	return c.Subject + c.CourseNumber
}

// IsOnline reports whether the section meets online.
func (c CourseRecord) IsOnline() bool {
	return c.DeliveryMode == DeliveryOnline
}

// MeetsOn reports whether the section meets on the given weekday symbol.
func (c CourseRecord) MeetsOn(day string) bool {
	for _, d := range c.Days {
		if d == day {
			return true
		}
	}
	return false
}

// CompletedCourse is a course the student already passed; used only to
// exclude sections from matching.
type CompletedCourse struct {
	Subject      string `json:"subject"`
	CourseNumber string `json:"course_number"`
	Grade        string `json:"grade,omitempty"`
	Term         string `json:"term,omitempty"`
}

// Code returns the SUBJECT+NUMBER exclusion key.
func (c CompletedCourse) Code() string {
	return c.Subject + c.CourseNumber
}

// MatchedCourse decorates a CourseRecord with matching metadata. Instances
// are created per matching run and never persisted.
type MatchedCourse struct {
	CourseRecord
	MatchScore float64       `json:"match_score"`
	Priority   int           `json:"priority"`
	Rating     *RatingRecord `json:"rating,omitempty"`
}

// CourseCacheRow is the durable cache row for a scraped section.
type CourseCacheRow struct {
	ID             string    `db:"id"`
	CRN            string    `db:"crn"`
	Term           string    `db:"term"`
	Subject        string    `db:"subject"`
	CourseNumber   string    `db:"course_number"`
	Section        string    `db:"section"`
	Title          string    `db:"title"`
	Credits        int       `db:"credits"`
	Instructor     *string   `db:"instructor"`
	Days           string    `db:"days"`
	TimeRange      *string   `db:"time_range"`
	Location       *string   `db:"location"`
	SeatsAvailable int       `db:"seats_available"`
	SeatsTotal     int       `db:"seats_total"`
	DeliveryMode   string    `db:"delivery_mode"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	ExpiresAt      time.Time `db:"expires_at"`
}
