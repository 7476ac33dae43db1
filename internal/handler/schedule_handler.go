package handler

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coursescout/coursescout-api/internal/dto"
	"github.com/coursescout/coursescout-api/internal/models"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
	"github.com/coursescout/coursescout-api/pkg/response"
)

type courseResolver interface {
	GetCoursesForSubjects(ctx context.Context, term string, subjects []string, openOnly bool) (map[string][]models.CourseRecord, map[string]error)
	SearchCourses(ctx context.Context, term, subject, courseNumber, keyword string, openOnly bool) ([]models.CourseRecord, string, error)
}

type scheduleMatcher interface {
	Match(prefs models.PreferenceSet, available map[string][]models.CourseRecord, completed []models.CompletedCourse, ratings map[string]*models.RatingRecord) ([]models.MatchedCourse, error)
}

type ratingResolver interface {
	GetRating(ctx context.Context, name string) (*models.RatingRecord, error)
	BatchGetRatings(ctx context.Context, names []string) map[string]*models.RatingRecord
}

type scheduleExporter interface {
	Render(courses []models.MatchedCourse, format, title string) ([]byte, string, error)
}

type creditTotaler func(courses []models.MatchedCourse) int

// ScheduleHandler serves schedule generation and export.
type ScheduleHandler struct {
	courses          courseResolver
	matcher          scheduleMatcher
	ratings          ratingResolver
	exporter         scheduleExporter
	totalCredits     creditTotaler
	registrationBase string
	logger           *zap.Logger
}

// NewScheduleHandler constructs the schedule handler. registrationBase is the
// schedule source origin used to build registration links.
func NewScheduleHandler(
	courses courseResolver,
	matcher scheduleMatcher,
	ratings ratingResolver,
	exporter scheduleExporter,
	totalCredits creditTotaler,
	registrationBase string,
	logger *zap.Logger,
) *ScheduleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleHandler{
		courses:          courses,
		matcher:          matcher,
		ratings:          ratings,
		exporter:         exporter,
		totalCredits:     totalCredits,
		registrationBase: registrationBase,
		logger:           logger,
	}
}

// Generate handles POST /schedule/generate.
// @Summary Generate a ranked, conflict-free schedule from course preferences
// @Tags schedule
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.GenerateScheduleResponse}
// @Failure 400 {object} response.Envelope
// @Router /schedule/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	prefs := req.ToPreferenceSet()
	available, failures := h.courses.GetCoursesForSubjects(c.Request.Context(), req.Term, prefs.Subjects, req.OpenOnly)

	var warnings []string
	for _, subject := range sortedKeys(failures) {
		warnings = append(warnings, fmt.Sprintf("subject %s could not be fetched: %v", subject, failures[subject]))
	}

	var ratings map[string]*models.RatingRecord
	if req.WantsRatings() {
		ratings = h.ratings.BatchGetRatings(c.Request.Context(), instructorNames(available))
	}

	matched, err := h.matcher.Match(prefs, available, req.ToCompleted(), ratings)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.GenerateScheduleResponse{
		Term:             req.Term,
		Matches:          matched,
		TotalCredits:     h.totalCredits(matched),
		Warnings:         warnings,
		RegistrationLink: h.registrationLink(req.Term),
	})
}

// Export handles POST /schedule/export.
// @Summary Render a generated schedule as CSV or PDF
// @Tags schedule
// @Accept json
// @Produce text/csv
// @Produce application/pdf
// @Failure 400 {object} response.Envelope
// @Router /schedule/export [post]
func (h *ScheduleHandler) Export(c *gin.Context) {
	var req dto.ExportScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	data, contentType, err := h.exporter.Render(req.Courses, req.Format, req.Title)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := "schedule." + strings.ToLower(req.Format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func (h *ScheduleHandler) registrationLink(term string) string {
	if h.registrationBase == "" {
		return ""
	}
	return fmt.Sprintf("%s/bprod/bwskfreg.P_AltPin?term_in=%s", h.registrationBase, term)
}

// instructorNames collects the distinct instructors across every fetched
// section, in a stable order.
func instructorNames(available map[string][]models.CourseRecord) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, subject := range sortedCourseKeys(available) {
		for _, course := range available[subject] {
			name := strings.ToLower(strings.TrimSpace(course.Instructor))
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, course.Instructor)
		}
	}
	return names
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedCourseKeys(m map[string][]models.CourseRecord) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
