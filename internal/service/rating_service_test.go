package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursescout/coursescout-api/internal/models"
	"github.com/coursescout/coursescout-api/internal/scraper"
	"github.com/coursescout/coursescout-api/pkg/cache"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
)

type fakeSearcher struct {
	results []scraper.TeacherResult
	err     error
	calls   int
}

func (f *fakeSearcher) SearchInstructor(_ context.Context, _ string) ([]scraper.TeacherResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeRatingStore struct {
	found    *models.RatingRecord
	upserted []models.RatingRecord
}

func (f *fakeRatingStore) Upsert(_ context.Context, rating models.RatingRecord, _ string, _ time.Time) error {
	f.upserted = append(f.upserted, rating)
	return nil
}

func (f *fakeRatingStore) Find(_ context.Context, _, _ string) (*models.RatingRecord, error) {
	return f.found, nil
}

func newRatingServiceForTest(searcher *fakeSearcher, store *fakeRatingStore, logs *fakeScrapeLogs) *RatingService {
	cacheSvc := NewCacheService(cache.NewMemory(), newFakeRemoteCache(), time.Minute, nil, nil)
	opts := RatingServiceOptions{SchoolID: "school-1", SchoolName: "Georgia State University", CacheTTL: time.Hour}
	return NewRatingService(searcher, cacheSvc, store, logs, opts, nil, nil)
}

func teacherResult(first, last string, avg float64, numRatings int) scraper.TeacherResult {
	return scraper.TeacherResult{
		FirstName: first,
		LastName:  last,
		Rating: models.RatingRecord{
			InstructorName: first + " " + last,
			AvgRating:      &avg,
			NumRatings:     numRatings,
		},
	}
}

func TestRatingServiceLiveMatchIsCachedAndStored(t *testing.T) {
	searcher := &fakeSearcher{results: []scraper.TeacherResult{teacherResult("Jane", "Smith", 4.2, 57)}}
	store := &fakeRatingStore{}
	logs := &fakeScrapeLogs{}
	svc := newRatingServiceForTest(searcher, store, logs)

	rating, err := svc.GetRating(context.Background(), "Dr. Jane Smith")
	require.NoError(t, err)
	require.NotNil(t, rating)
	assert.Equal(t, "jane smith", rating.InstructorName)
	require.NotNil(t, rating.AvgRating)
	assert.Equal(t, 4.2, *rating.AvgRating)
	assert.Len(t, store.upserted, 1)
	require.Len(t, logs.entries, 1)
	assert.Equal(t, models.ScrapeStatusSuccess, logs.entries[0].Status)

	// Second lookup answers from cache.
	_, err = svc.GetRating(context.Background(), "jane smith")
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.calls)
}

func TestRatingServiceLastNameGate(t *testing.T) {
	searcher := &fakeSearcher{results: []scraper.TeacherResult{teacherResult("Jane", "Smithers", 4.9, 100)}}
	logs := &fakeScrapeLogs{}
	svc := newRatingServiceForTest(searcher, &fakeRatingStore{}, logs)

	_, err := svc.GetRating(context.Background(), "Jane Smith")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRatingNotFound))
	require.Len(t, logs.entries, 1)
	assert.Equal(t, models.ScrapeStatusNotFound, logs.entries[0].Status)
}

func TestRatingServiceConfidenceThreshold(t *testing.T) {
	// Matching last name, mismatched first name, zero ratings: 100-20-30
	// lands below the acceptance bar.
	searcher := &fakeSearcher{results: []scraper.TeacherResult{teacherResult("Zelda", "Smith", 4.0, 0)}}
	svc := newRatingServiceForTest(searcher, &fakeRatingStore{}, &fakeScrapeLogs{})

	_, err := svc.GetRating(context.Background(), "Jane Smith")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRatingNotFound))
}

func TestRatingServicePicksBestCandidate(t *testing.T) {
	initialOnly := teacherResult("Janet", "Smith", 3.0, 10)
	exact := teacherResult("Jane", "Smith", 4.5, 5)
	searcher := &fakeSearcher{results: []scraper.TeacherResult{initialOnly, exact}}
	svc := newRatingServiceForTest(searcher, &fakeRatingStore{}, &fakeScrapeLogs{})

	rating, err := svc.GetRating(context.Background(), "Jane Smith")
	require.NoError(t, err)
	require.NotNil(t, rating.AvgRating)
	assert.Equal(t, 4.5, *rating.AvgRating, "exact first name beats an initial match")
}

func TestRatingServiceDurableCacheHit(t *testing.T) {
	avg := 3.8
	stored := &models.RatingRecord{InstructorName: "jane smith", AvgRating: &avg, NumRatings: 12}
	searcher := &fakeSearcher{}
	svc := newRatingServiceForTest(searcher, &fakeRatingStore{found: stored}, &fakeScrapeLogs{})

	rating, err := svc.GetRating(context.Background(), "Jane Smith")
	require.NoError(t, err)
	assert.Equal(t, stored, rating)
	assert.Zero(t, searcher.calls)
}

func TestRatingServiceBatchToleratesMisses(t *testing.T) {
	searcher := &fakeSearcher{results: []scraper.TeacherResult{teacherResult("Jane", "Smith", 4.2, 57)}}
	svc := newRatingServiceForTest(searcher, &fakeRatingStore{}, &fakeScrapeLogs{})

	results := svc.BatchGetRatings(context.Background(), []string{"Dr. Jane Smith", "Nobody Known", ""})
	require.Len(t, results, 2)
	require.NotNil(t, results["jane smith"])
	assert.Nil(t, results["nobody known"], "unmatched names map to nil, never fail the batch")
}

func TestRatingServiceBatchAnswersFromCache(t *testing.T) {
	searcher := &fakeSearcher{results: []scraper.TeacherResult{teacherResult("Jane", "Smith", 4.2, 57)}}
	svc := newRatingServiceForTest(searcher, &fakeRatingStore{}, &fakeScrapeLogs{})

	_, err := svc.GetRating(context.Background(), "Jane Smith")
	require.NoError(t, err)
	require.Equal(t, 1, searcher.calls)

	results := svc.BatchGetRatings(context.Background(), []string{"Dr. Jane Smith", "jane smith"})
	require.Len(t, results, 1)
	require.NotNil(t, results["jane smith"])
	assert.Equal(t, 1, searcher.calls, "cached names never reach the upstream")
}

func TestBestInstructorMatchScoring(t *testing.T) {
	candidates := []scraper.TeacherResult{teacherResult("Jane", "Smith", 4.0, 57)}

	assert.NotNil(t, bestInstructorMatch("jane smith", candidates))
	assert.NotNil(t, bestInstructorMatch("J Smith", candidates), "first-initial match clears the bar")
	assert.Nil(t, bestInstructorMatch("jane jones", candidates))
	assert.Nil(t, bestInstructorMatch("", candidates))
}
