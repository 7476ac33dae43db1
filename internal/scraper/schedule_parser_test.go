package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursescout/coursescout-api/internal/models"
)

const scheduleFixture = `
<html><body>
<table class="datadisplaytable">
<caption class="captiontext">Principles of Computer Science I - 12345 - CSC 1301 - 01</caption>
<tr><td><a href="/bprod/bwckschd.p_disp_detail_sched?term_in=202508&amp;crn_in=12345">Seats: 5/30</a></td></tr>
<tr><td>4.000 Credits</td></tr>
</table>
<table class="datadisplaytable">
<tr><th>Type</th><th>Time</th><th>Days</th><th>Where</th><th>Date Range</th><th>Schedule Type</th><th>Instructors</th></tr>
<tr><td>Class</td><td>TBA</td><td>TBA</td><td>TBA</td><td>Aug 25 - Dec 08</td><td>Lecture</td><td>TBA</td></tr>
<tr><td>Class</td><td>09:00 am-09:50 am</td><td>MWF</td><td>Classroom South 200</td><td>Aug 25 - Dec 08</td><td>Lecture</td><td>Dr. Jane  Smith (P) (jsmith@example.edu)</td></tr>
</table>
<table class="datadisplaytable">
<tr><td>stray block without a caption</td></tr>
</table>
<table class="datadisplaytable">
<caption class="captiontext">Data Structures - 23456 - CSC 2720 - 02</caption>
<tr><td>Available: 12</td></tr>
</table>
<table class="datadisplaytable">
<tr><th>Type</th><th>Time</th><th>Days</th><th>Where</th><th>Date Range</th><th>Schedule Type</th><th>Instructors</th></tr>
<tr><td>Class</td><td>02:00 pm-03:15 pm</td><td>TR</td><td>ONLINE CAMPUS</td><td>Aug 25 - Dec 08</td><td>Lecture</td><td>Prof. Robert Brown (P)</td></tr>
</table>
<table class="datadisplaytable">
<caption class="captiontext">Broken Caption - 34567 - CSC3000</caption>
<tr><td>malformed header, only three segments</td></tr>
</table>
<table class="datadisplaytable">
<tr><td>detail of the malformed course</td></tr>
</table>
<table class="datadisplaytable">
<caption class="captiontext">Discrete Mathematics - 45678 - MATH 2420 - 03</caption>
<tr><td>no seat info here</td></tr>
</table>
<table class="datadisplaytable">
<tr><th>Type</th><th>Time</th><th>Days</th><th>Where</th><th>Date Range</th><th>Schedule Type</th><th>Instructors</th></tr>
<tr><td>Class</td><td>TBA</td><td>TBA</td><td>TBA</td><td>Aug 25 - Dec 08</td><td>Lecture</td><td>TBA</td></tr>
</table>
</body></html>`

func TestParserWalksPairsAndSelfHeals(t *testing.T) {
	parser := NewParser(nil)
	courses := parser.Parse(scheduleFixture, "202508", "CSC")

	require.Len(t, courses, 3, "malformed header is discarded, stray block is skipped")
	assert.Equal(t, "12345", courses[0].CRN)
	assert.Equal(t, "23456", courses[1].CRN)
	assert.Equal(t, "45678", courses[2].CRN)
}

func TestParserAdoptsFirstNonPlaceholderPattern(t *testing.T) {
	parser := NewParser(nil)
	courses := parser.Parse(scheduleFixture, "202508", "CSC")
	require.Len(t, courses, 3)

	first := courses[0]
	assert.Equal(t, "CSC", first.Subject)
	assert.Equal(t, "1301", first.CourseNumber)
	assert.Equal(t, "01", first.Section)
	assert.Equal(t, "Principles of Computer Science I", first.Title)
	assert.Equal(t, "09:00 am-09:50 am", first.TimeRange, "TBA row is skipped")
	assert.Equal(t, []string{"M", "W", "F"}, first.Days)
	assert.Equal(t, "Classroom South 200", first.Location)
	assert.Equal(t, models.DeliveryInPerson, first.DeliveryMode)
	assert.Equal(t, "Jane Smith", first.Instructor, "honorific, role marker, and email are stripped")
}

func TestParserSeatAndCreditExtraction(t *testing.T) {
	parser := NewParser(nil)
	courses := parser.Parse(scheduleFixture, "202508", "CSC")
	require.Len(t, courses, 3)

	assert.Equal(t, 5, courses[0].SeatsAvailable)
	assert.Equal(t, 30, courses[0].SeatsTotal)
	assert.Equal(t, 4, courses[0].Credits)

	assert.Equal(t, 12, courses[1].SeatsAvailable)
	assert.Equal(t, 0, courses[1].SeatsTotal, "ratio unknown when only availability is printed")
	assert.Equal(t, 3, courses[1].Credits, "credits default to 3 when unparsed")

	assert.Equal(t, 0, courses[2].SeatsAvailable, "no match leaves seats at 0/0")
	assert.Equal(t, 0, courses[2].SeatsTotal)
}

func TestParserDetectsOnlineDelivery(t *testing.T) {
	parser := NewParser(nil)
	courses := parser.Parse(scheduleFixture, "202508", "CSC")
	require.Len(t, courses, 3)

	second := courses[1]
	assert.Equal(t, models.DeliveryOnline, second.DeliveryMode)
	assert.Equal(t, []string{"T", "R"}, second.Days)
	assert.Equal(t, "Robert Brown", second.Instructor)
}

func TestParserEmptyDocument(t *testing.T) {
	parser := NewParser(nil)
	assert.Empty(t, parser.Parse("<html><body></body></html>", "202508", "CSC"))
}

func TestParseDaysIgnoresUnknownSymbols(t *testing.T) {
	assert.Equal(t, []string{"M", "W", "R"}, parseDays("MWRX"))
	assert.Equal(t, []string{"S", "U"}, parseDays("SU"))
	assert.Nil(t, parseDays(""))
}

func TestCleanInstructorName(t *testing.T) {
	cases := map[string]string{
		"Dr. Jane Smith":                 "Jane Smith",
		"Prof.  Robert   Brown (P)":      "Robert Brown",
		"Ms. Ada Lovelace (al@uni.edu)":  "Ada Lovelace",
		"  Alan   Turing  ":              "Alan Turing",
		"Mrs. Grace Hopper (P) (gh@x.y)": "Grace Hopper",
	}
	for input, want := range cases {
		assert.Equal(t, want, CleanInstructorName(input), input)
	}
}
