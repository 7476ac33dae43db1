package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coursescout/coursescout-api/internal/models"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
)

// Each preference contributes at most this many sections before merging.
const maxSectionsPerPreference = 3

// MatcherService turns scraped sections plus a preference set into a ranked,
// conflict-free schedule proposal. Matching is pure: identical inputs always
// produce identical output.
type MatcherService struct {
	metrics *MetricsService
	logger  *zap.Logger
}

// NewMatcherService constructs the matching engine.
func NewMatcherService(metrics *MetricsService, logger *zap.Logger) *MatcherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatcherService{metrics: metrics, logger: logger}
}

// Match selects sections for the preference set. available is keyed by
// subject code; ratings is keyed by lowercased instructor name and may be
// sparse. The pipeline: filter per preference, score, keep the top sections
// per preference, merge with CRN dedupe in the order the preferences were
// declared, resolve day-level time conflicts, apply the credit ceiling
// first-fit, and only then order the result by priority then score.
func (s *MatcherService) Match(
	prefs models.PreferenceSet,
	available map[string][]models.CourseRecord,
	completed []models.CompletedCourse,
	ratings map[string]*models.RatingRecord,
) ([]models.MatchedCourse, error) {
	if len(prefs.Courses) == 0 {
		return nil, appErrors.ErrEmptyPreferences
	}
	start := time.Now()

	completedSet := make(map[string]struct{}, len(completed))
	for _, course := range completed {
		completedSet[strings.ToUpper(course.Code())] = struct{}{}
	}

	var merged []models.MatchedCourse
	seen := make(map[string]struct{})

	for _, pref := range prefs.Courses {
		candidates := s.candidatesFor(prefs, pref, available, completedSet, ratings)

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].MatchScore > candidates[j].MatchScore
		})
		if len(candidates) > maxSectionsPerPreference {
			candidates = candidates[:maxSectionsPerPreference]
		}

		// First preference to claim a CRN keeps it.
		for _, candidate := range candidates {
			if _, taken := seen[candidate.CRN]; taken {
				continue
			}
			seen[candidate.CRN] = struct{}{}
			merged = append(merged, candidate)
		}
	}

	if prefs.AvoidTimeConflicts {
		merged = resolveConflicts(merged)
	}
	merged = applyCreditCeiling(merged, prefs.MaxCredits)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Priority != merged[j].Priority {
			return merged[i].Priority < merged[j].Priority
		}
		return merged[i].MatchScore > merged[j].MatchScore
	})

	s.metrics.RecordMatch(time.Since(start))
	s.logger.Debug("matching run complete",
		zap.Int("preferences", len(prefs.Courses)),
		zap.Int("matched", len(merged)),
	)
	return merged, nil
}

func (s *MatcherService) candidatesFor(
	prefs models.PreferenceSet,
	pref models.Preference,
	available map[string][]models.CourseRecord,
	completedSet map[string]struct{},
	ratings map[string]*models.RatingRecord,
) []models.MatchedCourse {
	subject := strings.ToUpper(strings.TrimSpace(pref.Subject))
	excluded := make([]string, 0, len(pref.ExcludeInstructors))
	for _, name := range pref.ExcludeInstructors {
		if trimmed := strings.ToLower(strings.TrimSpace(name)); trimmed != "" {
			excluded = append(excluded, trimmed)
		}
	}

	var candidates []models.MatchedCourse
	for _, course := range available[subject] {
		if _, done := completedSet[strings.ToUpper(course.Code())]; done {
			continue
		}
		// Full sections are never proposed; unknown availability reads as
		// 0/0 and is treated the same as confirmed-full.
		if course.SeatsAvailable <= 0 {
			continue
		}
		if pref.CourseNumber != "" && course.CourseNumber != pref.CourseNumber {
			continue
		}
		if pref.OnlineOnly && !course.IsOnline() {
			continue
		}
		if instructorExcluded(excluded, course.Instructor) {
			continue
		}

		rating := ratings[strings.ToLower(course.Instructor)]
		if pref.MinRating != nil && rating != nil && rating.AvgRating != nil && *rating.AvgRating < *pref.MinRating {
			continue
		}

		candidates = append(candidates, models.MatchedCourse{
			CourseRecord: course,
			MatchScore:   scoreSection(prefs, pref, course, rating),
			Priority:     pref.Priority,
			Rating:       rating,
		})
	}
	return candidates
}

// scoreSection computes the 0–100 fit of one section for one preference,
// rounded to a single decimal.
func scoreSection(prefs models.PreferenceSet, pref models.Preference, course models.CourseRecord, rating *models.RatingRecord) float64 {
	score := 50.0

	if pref.CourseNumber != "" && pref.CourseNumber == course.CourseNumber {
		score += 20
	}

	if prefs.PreferOnline && course.IsOnline() {
		score += 10
	} else if !prefs.PreferOnline && course.DeliveryMode == models.DeliveryInPerson {
		score += 5
	}

	if len(pref.PreferredTimes) > 0 && meetsPreferredTime(pref.PreferredTimes, course) {
		score += 15
	}

	if course.SeatsTotal > 0 {
		score += float64(course.SeatsAvailable) / float64(course.SeatsTotal) * 10
	}

	if rating != nil {
		if rating.AvgRating != nil {
			score += *rating.AvgRating / 5 * 15
		}
		if rating.WouldTakeAgain != nil {
			score += *rating.WouldTakeAgain / 100 * 5
		}
		if rating.AvgDifficulty != nil {
			score -= *rating.AvgDifficulty / 5 * 3
		}
	}

	score = math.Max(0, math.Min(100, score))
	return math.Round(score*10) / 10
}

// instructorExcluded reports whether any exclusion entry appears inside the
// instructor's name, so "smith" also rules out "John Smith".
func instructorExcluded(excluded []string, instructor string) bool {
	name := strings.ToLower(instructor)
	for _, fragment := range excluded {
		if strings.Contains(name, fragment) {
			return true
		}
	}
	return false
}

// meetsPreferredTime reports whether the section meets on a day named by any
// preferred window. The bonus is a day-level signal: the window's clock range
// is advisory, and sections without parsed days or a meeting time never earn
// it.
func meetsPreferredTime(windows []models.TimeWindow, course models.CourseRecord) bool {
	if len(course.Days) == 0 || course.TimeRange == "" {
		return false
	}
	for _, window := range windows {
		if len(window.Days) > 0 && sharesDay(window.Days, course.Days) {
			return true
		}
	}
	return false
}

// resolveConflicts drops the losing section of every day-level clash: two
// non-online sections sharing any meeting day conflict. The merged list
// arrives in declared-preference order, so a greedy keep-first pass lets the
// earlier-declared section win.
func resolveConflicts(courses []models.MatchedCourse) []models.MatchedCourse {
	kept := make([]models.MatchedCourse, 0, len(courses))
	for _, candidate := range courses {
		clashes := false
		for _, winner := range kept {
			if sectionsConflict(candidate, winner) {
				clashes = true
				break
			}
		}
		if !clashes {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// sectionsConflict applies the coarse day-level rule: online sections never
// conflict, and in-person sections conflict whenever they share a day.
func sectionsConflict(a, b models.MatchedCourse) bool {
	if a.IsOnline() || b.IsOnline() {
		return false
	}
	return sharesDay(a.Days, b.Days)
}

func sharesDay(a, b []string) bool {
	for _, dayA := range a {
		for _, dayB := range b {
			if dayA == dayB {
				return true
			}
		}
	}
	return false
}

// applyCreditCeiling keeps sections first-fit in the order they were merged
// until the ceiling would be exceeded; sections that no longer fit are
// skipped, not terminal. A non-positive ceiling means unlimited.
func applyCreditCeiling(courses []models.MatchedCourse, maxCredits int) []models.MatchedCourse {
	if maxCredits <= 0 {
		return courses
	}

	total := 0
	kept := make([]models.MatchedCourse, 0, len(courses))
	for _, candidate := range courses {
		if total+candidate.Credits > maxCredits {
			continue
		}
		total += candidate.Credits
		kept = append(kept, candidate)
	}
	return kept
}

// TotalCredits sums the credit hours of a matched schedule.
func TotalCredits(courses []models.MatchedCourse) int {
	total := 0
	for _, course := range courses {
		total += course.Credits
	}
	return total
}
