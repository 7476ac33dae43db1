package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coursescout/coursescout-api/internal/models"
	"github.com/coursescout/coursescout-api/internal/scraper"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
)

// A candidate must clear this score to be accepted as the queried instructor.
const ratingMatchThreshold = 80.0

type ratingStore interface {
	Upsert(ctx context.Context, rating models.RatingRecord, schoolID string, expiresAt time.Time) error
	Find(ctx context.Context, instructorName, schoolID string) (*models.RatingRecord, error)
}

type instructorSearcher interface {
	SearchInstructor(ctx context.Context, name string) ([]scraper.TeacherResult, error)
}

// RatingServiceOptions pins the school the service rates against.
type RatingServiceOptions struct {
	SchoolID   string
	SchoolName string
	CacheTTL   time.Duration
}

// RatingService resolves instructor ratings through the same tier stack as
// courses: memory, Redis, Postgres, then a live upstream search scored
// against the queried name.
type RatingService struct {
	searcher instructorSearcher
	cache    tieredCache
	store    ratingStore
	logs     scrapeLogStore
	opts     RatingServiceOptions
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewRatingService constructs the rating resolution service.
func NewRatingService(
	searcher instructorSearcher,
	cache tieredCache,
	store ratingStore,
	logs scrapeLogStore,
	opts RatingServiceOptions,
	metrics *MetricsService,
	logger *zap.Logger,
) *RatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	return &RatingService{
		searcher: searcher,
		cache:    cache,
		store:    store,
		logs:     logs,
		opts:     opts,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *RatingService) cacheKey(normalized string) string {
	return fmt.Sprintf("rating:%s:%s", s.opts.SchoolID, normalized)
}

// GetRating returns the rating for an instructor, or ErrRatingNotFound when
// no upstream candidate matches the name confidently enough.
func (s *RatingService) GetRating(ctx context.Context, rawName string) (*models.RatingRecord, error) {
	name := scraper.CleanInstructorName(rawName)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor name is required")
	}
	normalized := strings.ToLower(name)
	key := s.cacheKey(normalized)

	var cached models.RatingRecord
	if _, ok := s.cache.Get(ctx, key, &cached); ok {
		return &cached, nil
	}

	if s.store != nil {
		stored, err := s.store.Find(ctx, normalized, s.opts.SchoolID)
		if err != nil {
			s.logger.Warn("durable rating cache read failed", zap.String("instructor", normalized), zap.Error(err))
		} else if stored != nil {
			if err := s.cache.Set(ctx, key, stored, s.opts.CacheTTL); err != nil {
				s.logger.Warn("rating cache refill failed", zap.String("key", key), zap.Error(err))
			}
			return stored, nil
		}
	}

	return s.fetchLive(ctx, name, normalized, key)
}

func (s *RatingService) fetchLive(ctx context.Context, name, normalized, key string) (*models.RatingRecord, error) {
	start := time.Now()
	candidates, err := s.searcher.SearchInstructor(ctx, name)
	if err != nil {
		s.metrics.RecordScrape("ratings", models.ScrapeStatusError, time.Since(start))
		s.recordScrapeLog(ctx, name, models.ScrapeStatusError, 0, time.Since(start), err)
		return nil, err
	}

	best := bestInstructorMatch(name, candidates)
	if best == nil {
		s.metrics.RecordScrape("ratings", models.ScrapeStatusNotFound, time.Since(start))
		s.recordScrapeLog(ctx, name, models.ScrapeStatusNotFound, len(candidates), time.Since(start), nil)
		return nil, appErrors.Clone(appErrors.ErrRatingNotFound, fmt.Sprintf("no confident rating match for %q", name))
	}

	record := best.Rating
	record.InstructorName = normalized
	if record.School == "" {
		record.School = s.opts.SchoolName
	}

	if err := s.cache.Set(ctx, key, record, s.opts.CacheTTL); err != nil {
		s.logger.Warn("rating cache write failed", zap.String("key", key), zap.Error(err))
	}
	if s.store != nil {
		if err := s.store.Upsert(ctx, record, s.opts.SchoolID, time.Now().Add(s.opts.CacheTTL)); err != nil {
			s.logger.Warn("durable rating cache write failed", zap.String("instructor", normalized), zap.Error(err))
		}
	}

	s.metrics.RecordScrape("ratings", models.ScrapeStatusSuccess, time.Since(start))
	s.recordScrapeLog(ctx, name, models.ScrapeStatusSuccess, len(candidates), time.Since(start), nil)
	return &record, nil
}

// BatchGetRatings resolves many instructors at once. The whole batch is first
// checked against the fast tiers with one Redis round-trip; only the misses
// walk the full per-name path. Unmatched or failing names map to nil; one bad
// name never fails the batch.
func (s *RatingService) BatchGetRatings(ctx context.Context, names []string) map[string]*models.RatingRecord {
	normalized := make([]string, 0, len(names))
	keys := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, rawName := range names {
		name := scraper.CleanInstructorName(rawName)
		if name == "" {
			continue
		}
		lowered := strings.ToLower(name)
		if _, dup := seen[lowered]; dup {
			continue
		}
		seen[lowered] = struct{}{}
		normalized = append(normalized, lowered)
		keys = append(keys, s.cacheKey(lowered))
	}

	results := make(map[string]*models.RatingRecord, len(normalized))
	cached := s.cache.GetMany(ctx, keys)

	for i, name := range normalized {
		if payload, ok := cached[keys[i]]; ok {
			var record models.RatingRecord
			if err := json.Unmarshal(payload, &record); err == nil {
				results[name] = &record
				continue
			}
		}

		rating, err := s.GetRating(ctx, name)
		if err != nil {
			if !appErrors.Is(err, appErrors.ErrRatingNotFound) {
				s.logger.Warn("rating lookup failed in batch", zap.String("instructor", name), zap.Error(err))
			}
			results[name] = nil
			continue
		}
		results[name] = rating
	}
	return results
}

// bestInstructorMatch scores upstream candidates against the queried name.
// The last name must match exactly (case-insensitive); the first name and
// rating volume then adjust confidence. Below the threshold no candidate is
// accepted, even if it is the only one.
func bestInstructorMatch(query string, candidates []scraper.TeacherResult) *scraper.TeacherResult {
	parts := strings.Fields(strings.ToLower(query))
	if len(parts) == 0 {
		return nil
	}
	queryFirst := parts[0]
	queryLast := parts[len(parts)-1]

	var best *scraper.TeacherResult
	bestScore := 0.0

	for i := range candidates {
		candidate := &candidates[i]
		if !strings.EqualFold(candidate.LastName, queryLast) {
			continue
		}

		score := 100.0
		first := strings.ToLower(candidate.FirstName)
		switch {
		case first == queryFirst:
			score += 50
		case first != "" && first[0] == queryFirst[0]:
			score += 25
		default:
			score -= 20
		}

		if candidate.Rating.NumRatings == 0 {
			score -= 30
		} else {
			score += math.Min(float64(candidate.Rating.NumRatings), 20)
		}

		if score >= ratingMatchThreshold && score > bestScore {
			best = candidate
			bestScore = score
		}
	}

	return best
}

func (s *RatingService) recordScrapeLog(ctx context.Context, query, status string, items int, elapsed time.Duration, cause error) {
	if s.logs == nil {
		return
	}

	entry := models.ScrapeLog{
		Source:     "ratings",
		Operation:  "search_instructor",
		Status:     status,
		Query:      &query,
		ItemsFound: items,
		DurationMS: elapsed.Milliseconds(),
	}
	if cause != nil {
		message := cause.Error()
		entry.ErrorMessage = &message
	}

	if err := s.logs.Insert(ctx, entry); err != nil {
		s.logger.Warn("scrape log insert failed", zap.Error(err))
	}
}
