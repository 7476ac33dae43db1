package dto

import (
	"github.com/coursescout/coursescout-api/internal/models"
)

// Default credit ceiling applied when the request omits one.
const defaultMaxCredits = 18

// TimeWindowRequest is a preferred meeting window in a schedule request.
type TimeWindowRequest struct {
	Days      []string `json:"days" binding:"omitempty,dive,oneof=M T W R F S U"`
	StartTime string   `json:"start_time" binding:"omitempty,datetime=15:04"`
	EndTime   string   `json:"end_time" binding:"omitempty,datetime=15:04"`
}

// CoursePreferenceRequest is one desired course in a schedule request.
type CoursePreferenceRequest struct {
	Subject            string              `json:"subject" binding:"required,subjectcode"`
	CourseNumber       string              `json:"course_number" binding:"omitempty,numeric,max=5"`
	Priority           int                 `json:"priority" binding:"omitempty,min=1,max=100"`
	OnlineOnly         bool                `json:"online_only"`
	ExcludeInstructors []string            `json:"exclude_instructors" binding:"omitempty,max=20,dive,min=1"`
	PreferredTimes     []TimeWindowRequest `json:"preferred_times" binding:"omitempty,max=10,dive"`
	MinRating          *float64            `json:"min_rating" binding:"omitempty,min=0,max=5"`
}

// GenerateScheduleRequest is the full matching request.
type GenerateScheduleRequest struct {
	Term               string                    `json:"term" binding:"required,numeric,len=6"`
	Courses            []CoursePreferenceRequest `json:"courses" binding:"required,min=1,max=20,dive"`
	CompletedCourses   []CompletedCourseRequest  `json:"completed_courses" binding:"omitempty,max=100,dive"`
	MaxCredits         int                       `json:"max_credits" binding:"omitempty,min=1,max=24"`
	AvoidTimeConflicts *bool                     `json:"avoid_time_conflicts"`
	PreferOnline       bool                      `json:"prefer_online"`
	OpenOnly           bool                      `json:"open_only"`
	IncludeRatings     *bool                     `json:"include_ratings"`
}

// CompletedCourseRequest is a course the student already passed.
type CompletedCourseRequest struct {
	Subject      string `json:"subject" binding:"required,subjectcode"`
	CourseNumber string `json:"course_number" binding:"required,numeric,max=5"`
}

// WantsRatings reports whether the matcher should enrich sections with
// instructor ratings; omitted means yes.
func (r GenerateScheduleRequest) WantsRatings() bool {
	return r.IncludeRatings == nil || *r.IncludeRatings
}

// ToPreferenceSet converts the request to the matcher's domain form, filling
// the defaults the API contract promises: priorities follow request order
// when omitted, conflicts are avoided unless disabled, and the credit
// ceiling falls back to the standard full-time load.
func (r GenerateScheduleRequest) ToPreferenceSet() models.PreferenceSet {
	prefs := models.PreferenceSet{
		MaxCredits:         r.MaxCredits,
		AvoidTimeConflicts: r.AvoidTimeConflicts == nil || *r.AvoidTimeConflicts,
		PreferOnline:       r.PreferOnline,
	}
	if prefs.MaxCredits == 0 {
		prefs.MaxCredits = defaultMaxCredits
	}

	seen := make(map[string]struct{}, len(r.Courses))
	for i, course := range r.Courses {
		pref := models.Preference{
			Subject:            course.Subject,
			CourseNumber:       course.CourseNumber,
			Priority:           course.Priority,
			OnlineOnly:         course.OnlineOnly,
			ExcludeInstructors: course.ExcludeInstructors,
			MinRating:          course.MinRating,
		}
		if pref.Priority == 0 {
			pref.Priority = i + 1
		}
		for _, window := range course.PreferredTimes {
			pref.PreferredTimes = append(pref.PreferredTimes, models.TimeWindow{
				Days:      window.Days,
				StartTime: window.StartTime,
				EndTime:   window.EndTime,
			})
		}
		prefs.Courses = append(prefs.Courses, pref)

		if _, ok := seen[pref.Subject]; !ok {
			seen[pref.Subject] = struct{}{}
			prefs.Subjects = append(prefs.Subjects, pref.Subject)
		}
	}
	return prefs
}

// ToCompleted converts the completed-course list to domain form.
func (r GenerateScheduleRequest) ToCompleted() []models.CompletedCourse {
	completed := make([]models.CompletedCourse, 0, len(r.CompletedCourses))
	for _, course := range r.CompletedCourses {
		completed = append(completed, models.CompletedCourse{
			Subject:      course.Subject,
			CourseNumber: course.CourseNumber,
		})
	}
	return completed
}

// GenerateScheduleResponse is the matching result payload.
type GenerateScheduleResponse struct {
	Term             string                 `json:"term"`
	Matches          []models.MatchedCourse `json:"matches"`
	TotalCredits     int                    `json:"total_credits"`
	Warnings         []string               `json:"warnings,omitempty"`
	RegistrationLink string                 `json:"registration_link,omitempty"`
}

// ExportScheduleRequest renders a previously generated schedule.
type ExportScheduleRequest struct {
	Format  string                 `json:"format" binding:"required,oneof=csv pdf"`
	Title   string                 `json:"title" binding:"omitempty,max=120"`
	Courses []models.MatchedCourse `json:"courses" binding:"required,min=1,max=30"`
}
