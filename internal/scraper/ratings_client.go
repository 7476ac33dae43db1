package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/coursescout/coursescout-api/internal/models"
	"github.com/coursescout/coursescout-api/pkg/config"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
	"github.com/coursescout/coursescout-api/pkg/retry"
)

const teacherSearchQuery = `query NewSearchTeachersQuery($text: String!, $schoolID: ID!) {
  newSearch {
    teachers(query: {text: $text, schoolID: $schoolID}) {
      edges {
        node {
          id
          firstName
          lastName
          avgRating
          avgDifficulty
          wouldTakeAgainPercent
          numRatings
          department
          school { name }
          courseCodes { courseName courseCount }
        }
      }
    }
  }
}`

// TeacherResult is one candidate returned by the ratings upstream. First and
// last name stay separate so the caller can score how well the candidate
// matches the queried instructor.
type TeacherResult struct {
	FirstName string
	LastName  string
	Rating    models.RatingRecord
}

// RatingsClient queries the instructor ratings upstream over its GraphQL
// endpoint.
type RatingsClient struct {
	httpClient *http.Client
	cfg        config.RatingsConfig
	logger     *zap.Logger
}

// NewRatingsClient constructs a ratings client.
func NewRatingsClient(cfg config.RatingsConfig, logger *zap.Logger) *RatingsClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingsClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

type teacherSearchResponse struct {
	Data struct {
		NewSearch struct {
			Teachers struct {
				Edges []struct {
					Node teacherNode `json:"node"`
				} `json:"edges"`
			} `json:"teachers"`
		} `json:"newSearch"`
	} `json:"data"`
}

type teacherNode struct {
	ID                    string   `json:"id"`
	FirstName             string   `json:"firstName"`
	LastName              string   `json:"lastName"`
	AvgRating             *float64 `json:"avgRating"`
	AvgDifficulty         *float64 `json:"avgDifficulty"`
	WouldTakeAgainPercent *float64 `json:"wouldTakeAgainPercent"`
	NumRatings            int      `json:"numRatings"`
	Department            string   `json:"department"`
	School                struct {
		Name string `json:"name"`
	} `json:"school"`
	CourseCodes []struct {
		CourseName  string `json:"courseName"`
		CourseCount int    `json:"courseCount"`
	} `json:"courseCodes"`
}

// SearchInstructor returns every candidate the upstream offers for the given
// name at the configured school. Transient network failures are retried;
// error statuses and unparseable payloads fail immediately.
func (c *RatingsClient) SearchInstructor(ctx context.Context, name string) ([]TeacherResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor name is required")
	}

	policy := retry.Policy{
		MaxAttempts: c.cfg.MaxRetries,
		Retryable:   retry.IsTransientNetwork,
		Logger:      c.logger,
	}

	var results []TeacherResult
	err := retry.Do(ctx, policy, "search_instructor", func(ctx context.Context) error {
		found, err := c.searchOnce(ctx, name)
		if err != nil {
			return err
		}
		results = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (c *RatingsClient) searchOnce(ctx context.Context, name string) ([]TeacherResult, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"query": teacherSearchQuery,
		"variables": map[string]string{
			"text":     name,
			"schoolID": c.cfg.SchoolID,
		},
	})
	if err != nil {
		return nil, err
	}

	endpoint := c.cfg.BaseURL + c.cfg.GraphQLPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	// The configured value is the full header, scheme included.
	if c.cfg.Authorization != "" {
		req.Header.Set("Authorization", c.cfg.Authorization)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, appErrors.Clone(appErrors.ErrUpstreamStatus, fmt.Sprintf("ratings upstream returned %d", resp.StatusCode))
	}

	var decoded teacherSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, appErrors.Clone(appErrors.ErrUpstreamShape, fmt.Sprintf("decode ratings response: %v", err))
	}

	edges := decoded.Data.NewSearch.Teachers.Edges
	results := make([]TeacherResult, 0, len(edges))
	for _, edge := range edges {
		results = append(results, c.toResult(edge.Node))
	}
	return results, nil
}

func (c *RatingsClient) toResult(node teacherNode) TeacherResult {
	record := models.RatingRecord{
		InstructorName: strings.TrimSpace(node.FirstName + " " + node.LastName),
		School:         node.School.Name,
		AvgRating:      node.AvgRating,
		AvgDifficulty:  node.AvgDifficulty,
		NumRatings:     node.NumRatings,
		Department:     node.Department,
		SourceID:       node.ID,
	}

	// The upstream encodes "never answered" as -1.
	if node.WouldTakeAgainPercent != nil && *node.WouldTakeAgainPercent >= 0 {
		record.WouldTakeAgain = node.WouldTakeAgainPercent
	}

	codes := append([]struct {
		CourseName  string `json:"courseName"`
		CourseCount int    `json:"courseCount"`
	}{}, node.CourseCodes...)
	sort.SliceStable(codes, func(i, j int) bool { return codes[i].CourseCount > codes[j].CourseCount })
	for i, code := range codes {
		if i == 5 {
			break
		}
		record.TopCourses = append(record.TopCourses, code.CourseName)
	}

	return TeacherResult{
		FirstName: strings.TrimSpace(node.FirstName),
		LastName:  strings.TrimSpace(node.LastName),
		Rating:    record,
	}
}
