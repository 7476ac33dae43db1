package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coursescout/coursescout-api/internal/dto"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
	"github.com/coursescout/coursescout-api/pkg/response"
)

// RatingHandler serves instructor rating lookups.
type RatingHandler struct {
	ratings ratingResolver
	logger  *zap.Logger
}

// NewRatingHandler constructs the rating handler.
func NewRatingHandler(ratings ratingResolver, logger *zap.Logger) *RatingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingHandler{ratings: ratings, logger: logger}
}

// Get handles GET /ratings/:name.
// @Summary Resolve the rating for one instructor
// @Tags ratings
// @Produce json
// @Param name path string true "Instructor name"
// @Success 200 {object} response.Envelope{data=models.RatingRecord}
// @Failure 404 {object} response.Envelope
// @Router /ratings/{name} [get]
func (h *RatingHandler) Get(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "instructor name is required"))
		return
	}

	rating, err := h.ratings.GetRating(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rating)
}

// Batch handles POST /ratings/batch.
// @Summary Resolve ratings for several instructors at once
// @Tags ratings
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /ratings/batch [post]
func (h *RatingHandler) Batch(c *gin.Context) {
	var req dto.BatchRatingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	results := h.ratings.BatchGetRatings(c.Request.Context(), req.Instructors)
	response.JSON(c, http.StatusOK, results)
}
