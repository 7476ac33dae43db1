package service

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/coursescout/coursescout-api/internal/models"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
	"github.com/coursescout/coursescout-api/pkg/export"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

var scheduleColumns = []string{
	"CRN", "Course", "Section", "Title", "Credits",
	"Days", "Time", "Location", "Instructor", "Score",
}

// ExportService renders a matched schedule as a downloadable document.
type ExportService struct {
	logger *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{logger: logger}
}

// Render produces the document bytes plus its content type for the requested
// format.
func (s *ExportService) Render(courses []models.MatchedCourse, format, title string) ([]byte, string, error) {
	table := scheduleTable(courses)

	switch strings.ToLower(format) {
	case FormatCSV:
		data, err := export.CSV(table)
		return data, "text/csv", err
	case FormatPDF:
		data, err := export.PDF(table, title)
		return data, "application/pdf", err
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func scheduleTable(courses []models.MatchedCourse) export.Table {
	rows := make([][]string, 0, len(courses))
	for _, course := range courses {
		rows = append(rows, []string{
			course.CRN,
			course.Subject + " " + course.CourseNumber,
			course.Section,
			course.Title,
			strconv.Itoa(course.Credits),
			strings.Join(course.Days, ""),
			course.TimeRange,
			course.Location,
			course.Instructor,
			strconv.FormatFloat(course.MatchScore, 'f', 1, 64),
		})
	}
	return export.Table{Columns: scheduleColumns, Rows: rows}
}
