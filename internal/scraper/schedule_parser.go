package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/coursescout/coursescout-api/internal/models"
)

const placeholderTBA = "TBA"

var (
	honorificPattern  = regexp.MustCompile(`(?i)\b(Dr\.|Prof\.|Mr\.|Ms\.|Mrs\.)\s*`)
	emailParenPattern = regexp.MustCompile(`\s*\([^)]*@[^)]*\)`)
	roleParenPattern  = regexp.MustCompile(`\s*\([A-Z]\)`)

	seatsRatioPattern = regexp.MustCompile(`(\d+)\s*(?:/|of)\s*(\d+)`)
	seatsOnlyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Seats\s+Avail[^:]*:\s*(\d+)`),
		regexp.MustCompile(`(?i)Available:\s*(\d+)`),
		regexp.MustCompile(`(?i)(\d+)\s+(?:seats?\s+)?remain`),
	}
	creditPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s+Credits?`),
		regexp.MustCompile(`(?i)Credits?:\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s+(?:Credit\s+)?Hours?`),
	}

	onlineKeywords = []string{"ONLINE", "WEB", "INTERNET", "VIRTUAL"}
)

// Parser converts a Banner schedule document into course records. The
// document is repeating pairs of "datadisplaytable" tables: a captioned
// header table followed by a meeting-pattern detail table.
type Parser struct {
	logger *zap.Logger
}

// NewParser constructs a schedule parser.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse walks the header/detail table pairs in order. A block without the
// caption marker advances one position so a malformed block never
// desynchronises the pairing for later courses; a malformed pair is
// skipped, never fatal.
func (p *Parser) Parse(document, term, subject string) []models.CourseRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		p.logger.Warn("schedule document unreadable",
			zap.String("term", term),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return nil
	}

	tables := doc.Find("table.datadisplaytable")
	nodes := tables.Nodes

	var courses []models.CourseRecord
	i := 0
	for i < len(nodes)-1 {
		header := tables.Eq(i)
		caption := header.Find("caption.captiontext").First()
		if caption.Length() == 0 {
			i++
			continue
		}

		detail := tables.Eq(i + 1)
		course, ok := p.parsePair(caption, header, detail, term)
		if ok {
			courses = append(courses, course)
		} else {
			p.logger.Debug("skipping malformed course block",
				zap.String("term", term),
				zap.String("subject", subject),
				zap.Int("block", i),
			)
		}
		i += 2
	}

	return courses
}

// parsePair extracts one course from a header/detail table pair. The header
// caption encodes "Title - CRN - SUBJ NUM - Section"; fewer than four
// segments means the block is malformed and the course is discarded.
func (p *Parser) parsePair(caption, header, detail *goquery.Selection, term string) (models.CourseRecord, bool) {
	segments := strings.Split(strings.TrimSpace(caption.Text()), " - ")
	if len(segments) < 4 {
		return models.CourseRecord{}, false
	}

	codeParts := strings.Fields(strings.TrimSpace(segments[2]))
	if len(codeParts) < 2 {
		return models.CourseRecord{}, false
	}

	course := models.CourseRecord{
		Title:        strings.TrimSpace(segments[0]),
		CRN:          strings.TrimSpace(segments[1]),
		Subject:      codeParts[0],
		CourseNumber: codeParts[1],
		Section:      strings.TrimSpace(segments[3]),
		Term:         term,
		Credits:      3,
		DeliveryMode: models.DeliveryInPerson,
	}

	// Walk meeting-pattern rows, skipping the column-label row. Multi-pattern
	// sections are approximated by their first non-TBA values.
	detail.Find("tr").Each(func(idx int, row *goquery.Selection) {
		if idx == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}

		meetingTime := strings.TrimSpace(cells.Eq(1).Text())
		meetingDays := strings.TrimSpace(cells.Eq(2).Text())
		meetingWhere := strings.TrimSpace(cells.Eq(3).Text())
		instructors := strings.TrimSpace(cells.Eq(6).Text())

		if meetingTime != "" && meetingTime != placeholderTBA && course.TimeRange == "" {
			course.TimeRange = meetingTime
		}
		if meetingDays != "" && meetingDays != placeholderTBA && len(course.Days) == 0 {
			course.Days = parseDays(meetingDays)
		}
		if meetingWhere != "" && meetingWhere != placeholderTBA && course.Location == "" {
			course.Location = meetingWhere
			if isOnlineLocation(meetingWhere) {
				course.DeliveryMode = models.DeliveryOnline
			}
		}
		if instructors != "" && instructors != placeholderTBA && course.Instructor == "" {
			course.Instructor = CleanInstructorName(instructors)
		}
	})

	combined := header.Text() + detail.Text()

	if avail, total, ok := extractSeats(header, combined); ok {
		course.SeatsAvailable = avail
		course.SeatsTotal = total
	}
	if credits, ok := extractCredits(combined); ok {
		course.Credits = credits
	}

	return course, true
}

// parseDays decodes a compact day string ("MWF", "TR") using the fixed
// alphabet M T W R F S U, where R is Thursday and U is Sunday. Any other
// character is ignored.
func parseDays(raw string) []string {
	var days []string
	for _, r := range raw {
		switch r {
		case 'M', 'T', 'W', 'R', 'F', 'S', 'U':
			days = append(days, string(r))
		}
	}
	return days
}

func isOnlineLocation(location string) bool {
	upper := strings.ToUpper(location)
	for _, keyword := range onlineKeywords {
		if strings.Contains(upper, keyword) {
			return true
		}
	}
	return false
}

// CleanInstructorName collapses whitespace and strips honorifics,
// parenthetical email addresses, and single-letter role annotations.
func CleanInstructorName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	name = honorificPattern.ReplaceAllString(name, "")
	name = emailParenPattern.ReplaceAllString(name, "")
	name = roleParenPattern.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// extractSeats looks for availability opportunistically: first in the
// enrollment detail link, then via loose patterns over the block text.
// No match leaves seats unknown, which callers treat as 0/0.
func extractSeats(header *goquery.Selection, combined string) (int, int, bool) {
	link := header.Find(`a[href*="bwckschd.p_disp_detail_sched"]`).First()
	if link.Length() > 0 {
		if m := seatsRatioPattern.FindStringSubmatch(link.Text()); m != nil {
			avail, err1 := strconv.Atoi(m[1])
			total, err2 := strconv.Atoi(m[2])
			if err1 == nil && err2 == nil {
				return avail, total, true
			}
		}
	}

	for _, pattern := range seatsOnlyPatterns {
		if m := pattern.FindStringSubmatch(combined); m != nil {
			if avail, err := strconv.Atoi(m[1]); err == nil {
				return avail, 0, true
			}
		}
	}

	return 0, 0, false
}

func extractCredits(combined string) (int, bool) {
	for _, pattern := range creditPatterns {
		if m := pattern.FindStringSubmatch(combined); m != nil {
			if value, err := strconv.ParseFloat(m[1], 64); err == nil {
				return int(value), true
			}
		}
	}
	return 0, false
}
