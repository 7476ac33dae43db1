package models

// TimeWindow is a preferred meeting window: weekday symbols plus an optional
// clock range ("09:00"–"10:15").
type TimeWindow struct {
	Days      []string `json:"days"`
	StartTime string   `json:"start_time,omitempty"`
	EndTime   string   `json:"end_time,omitempty"`
}

// Preference is one desired subject/course with ranking and constraints.
// Lower priority values rank higher.
type Preference struct {
	Subject            string       `json:"subject"`
	CourseNumber       string       `json:"course_number,omitempty"`
	Priority           int          `json:"priority"`
	OnlineOnly         bool         `json:"online_only"`
	ExcludeInstructors []string     `json:"exclude_instructors,omitempty"`
	PreferredTimes     []TimeWindow `json:"preferred_times,omitempty"`
	MinRating          *float64     `json:"min_rating,omitempty"`
}

// PreferenceSet is the full student request: ordered preferences plus
// global constraints.
type PreferenceSet struct {
	Courses            []Preference `json:"courses"`
	Subjects           []string     `json:"subjects"`
	MaxCredits         int          `json:"max_credits,omitempty"`
	AvoidTimeConflicts bool         `json:"avoid_time_conflicts"`
	PreferOnline       bool         `json:"prefer_online"`
}
