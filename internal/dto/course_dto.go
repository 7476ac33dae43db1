package dto

import "github.com/coursescout/coursescout-api/internal/models"

// SearchCoursesRequest is the query form of GET /courses/search.
type SearchCoursesRequest struct {
	Term         string `form:"term" binding:"required,numeric,len=6"`
	Subject      string `form:"subject" binding:"required,subjectcode"`
	CourseNumber string `form:"course_number" binding:"omitempty,numeric,max=5"`
	Keyword      string `form:"keyword" binding:"omitempty,max=64"`
	OpenOnly     bool   `form:"open_only"`
}

// SearchCoursesResponse lists the sections that matched a search.
type SearchCoursesResponse struct {
	Term     string                `json:"term"`
	Subject  string                `json:"subject"`
	Count    int                   `json:"count"`
	Sections []models.CourseRecord `json:"sections"`
}

// BatchRatingsRequest resolves ratings for several instructors at once.
type BatchRatingsRequest struct {
	Instructors []string `json:"instructors" binding:"required,min=1,max=50,dive,min=1"`
}

// ClearCacheRequest invalidates cached entries by glob pattern; an empty
// pattern clears everything.
type ClearCacheRequest struct {
	Pattern string `json:"pattern" binding:"omitempty,max=128"`
}

// ClearCacheResponse reports per-tier deletion counts.
type ClearCacheResponse struct {
	Pattern       string `json:"pattern"`
	MemoryDeleted int    `json:"memory_deleted"`
	RedisDeleted  int    `json:"redis_deleted"`
}

// WarmCacheRequest queues subjects for background pre-fetching.
type WarmCacheRequest struct {
	Term     string   `json:"term" binding:"required,numeric,len=6"`
	Subjects []string `json:"subjects" binding:"required,min=1,max=50,dive,subjectcode"`
}

// WarmCacheResponse reports how many warm-up jobs were accepted.
type WarmCacheResponse struct {
	Term     string   `json:"term"`
	Queued   int      `json:"queued"`
	Rejected []string `json:"rejected,omitempty"`
}
