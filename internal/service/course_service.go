package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coursescout/coursescout-api/internal/models"
)

// Course result sources beyond the cache tiers.
const (
	SourcePostgres = "postgres"
	SourceLive     = "live"
)

type scheduleFetcher interface {
	FetchSubject(ctx context.Context, term, subject string) (string, error)
}

type scheduleParser interface {
	Parse(document, term, subject string) []models.CourseRecord
}

type courseStore interface {
	UpsertMany(ctx context.Context, term string, courses []models.CourseRecord, expiresAt time.Time) error
	FindByTermSubject(ctx context.Context, term, subject string) ([]models.CourseRecord, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type scrapeLogStore interface {
	Insert(ctx context.Context, entry models.ScrapeLog) error
}

type tieredCache interface {
	Get(ctx context.Context, key string, dest interface{}) (string, bool)
	GetMany(ctx context.Context, keys []string) map[string][]byte
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// WarmupJob is the payload of one queued cache warm-up.
type WarmupJob struct {
	Term    string
	Subject string
}

// CourseServiceOptions tunes caching and upstream politeness.
type CourseServiceOptions struct {
	CacheTTL     time.Duration
	SubjectPause time.Duration
}

// CourseService resolves course sections for a term/subject through the tier
// stack: memory, Redis, the durable Postgres cache, and finally a live fetch
// from the schedule source.
type CourseService struct {
	fetcher scheduleFetcher
	parser  scheduleParser
	cache   tieredCache
	store   courseStore
	logs    scrapeLogStore
	opts    CourseServiceOptions
	metrics *MetricsService
	logger  *zap.Logger
	sleep   func(time.Duration)
}

// NewCourseService constructs the course resolution service.
func NewCourseService(
	fetcher scheduleFetcher,
	parser scheduleParser,
	cache tieredCache,
	store courseStore,
	logs scrapeLogStore,
	opts CourseServiceOptions,
	metrics *MetricsService,
	logger *zap.Logger,
) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	return &CourseService{
		fetcher: fetcher,
		parser:  parser,
		cache:   cache,
		store:   store,
		logs:    logs,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

func courseCacheKey(term, subject string) string {
	return fmt.Sprintf("courses:%s:%s", term, subject)
}

// GetCoursesForSubject returns the sections for one term/subject and the
// source tier that answered. Misses cascade down the stack; every tier above
// the one that answered is refilled on the way back.
func (s *CourseService) GetCoursesForSubject(ctx context.Context, term, subject string, openOnly bool) ([]models.CourseRecord, string, error) {
	subject = strings.ToUpper(strings.TrimSpace(subject))
	key := courseCacheKey(term, subject)

	var cached []models.CourseRecord
	if tier, ok := s.cache.Get(ctx, key, &cached); ok {
		return filterOpen(cached, openOnly), tier, nil
	}

	if s.store != nil {
		stored, err := s.store.FindByTermSubject(ctx, term, subject)
		if err != nil {
			s.logger.Warn("durable course cache read failed",
				zap.String("term", term),
				zap.String("subject", subject),
				zap.Error(err),
			)
		} else if len(stored) > 0 {
			if err := s.cache.Set(ctx, key, stored, s.opts.CacheTTL); err != nil {
				s.logger.Warn("course cache refill failed", zap.String("key", key), zap.Error(err))
			}
			return filterOpen(stored, openOnly), SourcePostgres, nil
		}
	}

	courses, err := s.fetchLive(ctx, term, subject)
	if err != nil {
		return nil, "", err
	}

	if err := s.cache.Set(ctx, key, courses, s.opts.CacheTTL); err != nil {
		s.logger.Warn("course cache write failed", zap.String("key", key), zap.Error(err))
	}
	if s.store != nil && len(courses) > 0 {
		if err := s.store.UpsertMany(ctx, term, courses, time.Now().Add(s.opts.CacheTTL)); err != nil {
			s.logger.Warn("durable course cache write failed",
				zap.String("term", term),
				zap.String("subject", subject),
				zap.Error(err),
			)
		}
	}

	return filterOpen(courses, openOnly), SourceLive, nil
}

func (s *CourseService) fetchLive(ctx context.Context, term, subject string) ([]models.CourseRecord, error) {
	start := time.Now()
	document, err := s.fetcher.FetchSubject(ctx, term, subject)
	if err != nil {
		s.metrics.RecordScrape("schedule", models.ScrapeStatusError, time.Since(start))
		s.recordScrapeLog(ctx, term, subject, models.ScrapeStatusError, 0, time.Since(start), err)
		return nil, err
	}

	courses := s.parser.Parse(document, term, subject)
	status := models.ScrapeStatusSuccess
	if len(courses) == 0 {
		status = models.ScrapeStatusNotFound
	}
	s.metrics.RecordScrape("schedule", status, time.Since(start))
	s.recordScrapeLog(ctx, term, subject, status, len(courses), time.Since(start), nil)

	s.logger.Info("fetched subject from schedule source",
		zap.String("term", term),
		zap.String("subject", subject),
		zap.Int("sections", len(courses)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return courses, nil
}

// GetCoursesForSubjects resolves several subjects, pausing between live
// fetches. A failing subject is reported in the error map and never aborts
// the remaining subjects.
func (s *CourseService) GetCoursesForSubjects(ctx context.Context, term string, subjects []string, openOnly bool) (map[string][]models.CourseRecord, map[string]error) {
	results := make(map[string][]models.CourseRecord, len(subjects))
	failures := make(map[string]error)

	for i, subject := range subjects {
		courses, source, err := s.GetCoursesForSubject(ctx, term, subject, openOnly)
		if err != nil {
			failures[strings.ToUpper(strings.TrimSpace(subject))] = err
			continue
		}
		results[strings.ToUpper(strings.TrimSpace(subject))] = courses

		if source == SourceLive && i < len(subjects)-1 && s.opts.SubjectPause > 0 {
			s.sleep(s.opts.SubjectPause)
		}
	}

	return results, failures
}

// SearchCourses narrows a subject's sections to a course number prefix (so
// "13" finds 1301 and 1302) and an optional title keyword.
func (s *CourseService) SearchCourses(ctx context.Context, term, subject, courseNumber, keyword string, openOnly bool) ([]models.CourseRecord, string, error) {
	courses, source, err := s.GetCoursesForSubject(ctx, term, subject, openOnly)
	if err != nil {
		return nil, "", err
	}
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if courseNumber == "" && keyword == "" {
		return courses, source, nil
	}

	filtered := make([]models.CourseRecord, 0, len(courses))
	for _, course := range courses {
		if courseNumber != "" && !strings.HasPrefix(course.CourseNumber, courseNumber) {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(course.Title), keyword) {
			continue
		}
		filtered = append(filtered, course)
	}
	return filtered, source, nil
}

// Warm pre-fetches one term/subject so later requests hit the cache. Expired
// durable rows are pruned on the way; a failed prune never blocks the warm-up.
func (s *CourseService) Warm(ctx context.Context, term, subject string) error {
	if s.store != nil {
		if deleted, err := s.store.DeleteExpired(ctx); err != nil {
			s.logger.Warn("expired course prune failed", zap.Error(err))
		} else if deleted > 0 {
			s.logger.Info("pruned expired course rows", zap.Int64("deleted", deleted))
		}
	}
	_, _, err := s.GetCoursesForSubject(ctx, term, subject, false)
	return err
}

func (s *CourseService) recordScrapeLog(ctx context.Context, term, subject, status string, items int, elapsed time.Duration, cause error) {
	if s.logs == nil {
		return
	}

	entry := models.ScrapeLog{
		Source:     "schedule",
		Operation:  "fetch_subject",
		Status:     status,
		Term:       &term,
		Subject:    &subject,
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

func filterOpen(courses []models.CourseRecord, openOnly bool) []models.CourseRecord {
	if !openOnly {
		return courses
	}
	open := make([]models.CourseRecord, 0, len(courses))
	for _, course := range courses {
		if course.SeatsAvailable > 0 {
			open = append(open, course)
		}
	}
	return open
}
