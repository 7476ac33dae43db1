package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursescout/coursescout-api/internal/dto"
	"github.com/coursescout/coursescout-api/internal/models"
	"github.com/coursescout/coursescout-api/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := dto.RegisterValidators(); err != nil {
		panic(err)
	}
}

type fakeCourseResolver struct {
	available map[string][]models.CourseRecord
	failures  map[string]error
	sections  []models.CourseRecord
	source    string
	err       error
}

func (f *fakeCourseResolver) GetCoursesForSubjects(_ context.Context, _ string, _ []string, _ bool) (map[string][]models.CourseRecord, map[string]error) {
	return f.available, f.failures
}

func (f *fakeCourseResolver) SearchCourses(_ context.Context, _, _, _, _ string, _ bool) ([]models.CourseRecord, string, error) {
	return f.sections, f.source, f.err
}

type fakeMatcher struct {
	matched []models.MatchedCourse
	err     error
	prefs   models.PreferenceSet
}

func (f *fakeMatcher) Match(prefs models.PreferenceSet, _ map[string][]models.CourseRecord, _ []models.CompletedCourse, _ map[string]*models.RatingRecord) ([]models.MatchedCourse, error) {
	f.prefs = prefs
	return f.matched, f.err
}

type fakeRatingResolver struct {
	rating  *models.RatingRecord
	err     error
	batched []string
}

func (f *fakeRatingResolver) GetRating(_ context.Context, _ string) (*models.RatingRecord, error) {
	return f.rating, f.err
}

func (f *fakeRatingResolver) BatchGetRatings(_ context.Context, names []string) map[string]*models.RatingRecord {
	f.batched = names
	return map[string]*models.RatingRecord{}
}

type fakeExporter struct {
	data        []byte
	contentType string
	err         error
}

func (f *fakeExporter) Render(_ []models.MatchedCourse, _, _ string) ([]byte, string, error) {
	return f.data, f.contentType, f.err
}

func matchedCourse(crn string, credits int, score float64) models.MatchedCourse {
	return models.MatchedCourse{
		CourseRecord: models.CourseRecord{
			CRN: crn, Term: "202508", Subject: "CSC", CourseNumber: "1301",
			Section: "01", Title: "Intro", Credits: credits, DeliveryMode: models.DeliveryInPerson,
		},
		MatchScore: score,
		Priority:   1,
	}
}

func newScheduleRouter(courses *fakeCourseResolver, matcher *fakeMatcher, ratings *fakeRatingResolver, exporter *fakeExporter) *gin.Engine {
	h := NewScheduleHandler(courses, matcher, ratings, exporter, func(m []models.MatchedCourse) int {
		total := 0
		for _, c := range m {
			total += c.Credits
		}
		return total
	}, "https://schedule.example.edu", nil)

	router := gin.New()
	router.POST("/schedule/generate", h.Generate)
	router.POST("/schedule/export", h.Export)
	return router
}

func TestScheduleGenerate(t *testing.T) {
	course := models.CourseRecord{CRN: "10001", Subject: "CSC", CourseNumber: "1301", Instructor: "Jane Smith", Credits: 4}
	courses := &fakeCourseResolver{
		available: map[string][]models.CourseRecord{"CSC": {course}},
		failures:  map[string]error{"MATH": errors.New("upstream timeout")},
	}
	matcher := &fakeMatcher{matched: []models.MatchedCourse{matchedCourse("10001", 4, 85.0)}}
	ratings := &fakeRatingResolver{}
	router := newScheduleRouter(courses, matcher, ratings, &fakeExporter{})

	body := `{
		"term": "202508",
		"courses": [
			{"subject": "CSC", "course_number": "1301"},
			{"subject": "MATH", "course_number": "2420"}
		]
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/schedule/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var envelope struct {
		Data dto.GenerateScheduleResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "202508", envelope.Data.Term)
	require.Len(t, envelope.Data.Matches, 1)
	assert.Equal(t, 4, envelope.Data.TotalCredits)
	require.Len(t, envelope.Data.Warnings, 1)
	assert.Contains(t, envelope.Data.Warnings[0], "MATH")
	assert.Contains(t, envelope.Data.RegistrationLink, "term_in=202508")

	// Priorities default to request order, conflicts avoided by default.
	assert.Equal(t, 1, matcher.prefs.Courses[0].Priority)
	assert.Equal(t, 2, matcher.prefs.Courses[1].Priority)
	assert.True(t, matcher.prefs.AvoidTimeConflicts)
	assert.Equal(t, 18, matcher.prefs.MaxCredits)
	assert.Equal(t, []string{"Jane Smith"}, ratings.batched)
}

func TestScheduleGenerateValidation(t *testing.T) {
	router := newScheduleRouter(&fakeCourseResolver{}, &fakeMatcher{}, &fakeRatingResolver{}, &fakeExporter{})

	cases := map[string]string{
		"missing term":    `{"courses": [{"subject": "CSC"}]}`,
		"empty courses":   `{"term": "202508", "courses": []}`,
		"bad subject":     `{"term": "202508", "courses": [{"subject": "COMPUTERS"}]}`,
		"bad term":        `{"term": "fall25", "courses": [{"subject": "CSC"}]}`,
	}
	for name, body := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/schedule/generate", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)

		var envelope response.Envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), name)
		require.NotNil(t, envelope.Error, name)
		assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code, name)
	}
}

func TestScheduleGenerateSkipsRatingsWhenDisabled(t *testing.T) {
	course := models.CourseRecord{CRN: "10001", Subject: "CSC", CourseNumber: "1301", Instructor: "Jane Smith"}
	courses := &fakeCourseResolver{available: map[string][]models.CourseRecord{"CSC": {course}}}
	ratings := &fakeRatingResolver{batched: nil}
	router := newScheduleRouter(courses, &fakeMatcher{}, ratings, &fakeExporter{})

	body := `{"term": "202508", "include_ratings": false, "courses": [{"subject": "CSC"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/schedule/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, ratings.batched)
}

func TestScheduleExport(t *testing.T) {
	exporter := &fakeExporter{data: []byte("CRN,Course\n10001,CSC 1301\n"), contentType: "text/csv"}
	router := newScheduleRouter(&fakeCourseResolver{}, &fakeMatcher{}, &fakeRatingResolver{}, exporter)

	payload, err := json.Marshal(dto.ExportScheduleRequest{
		Format:  "csv",
		Courses: []models.MatchedCourse{matchedCourse("10001", 4, 85.0)},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/schedule/export", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "schedule.csv")
	assert.Contains(t, w.Body.String(), "10001")
}
