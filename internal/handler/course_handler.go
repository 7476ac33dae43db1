package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coursescout/coursescout-api/internal/dto"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
	"github.com/coursescout/coursescout-api/pkg/response"
)

// CourseHandler serves course search.
type CourseHandler struct {
	courses courseResolver
	logger  *zap.Logger
}

// NewCourseHandler constructs the course handler.
func NewCourseHandler(courses courseResolver, logger *zap.Logger) *CourseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseHandler{courses: courses, logger: logger}
}

// Search handles GET /courses/search.
// @Summary Search sections for a term and subject
// @Tags courses
// @Produce json
// @Param term query string true "Term code, e.g. 202508"
// @Param subject query string true "Subject code, e.g. CSC"
// @Param course_number query string false "Course number prefix"
// @Param keyword query string false "Title keyword"
// @Param open_only query bool false "Only sections with open seats"
// @Success 200 {object} response.Envelope{data=dto.SearchCoursesResponse}
// @Router /courses/search [get]
func (h *CourseHandler) Search(c *gin.Context) {
	var req dto.SearchCoursesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	sections, source, err := h.courses.SearchCourses(c.Request.Context(), req.Term, req.Subject, req.CourseNumber, req.Keyword, req.OpenOnly)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.SearchCoursesResponse{
		Term:     req.Term,
		Subject:  strings.ToUpper(req.Subject),
		Count:    len(sections),
		Sections: sections,
	}, map[string]interface{}{"source": source})
}
