package calendar_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/calendar"
	"github.com/tartampluch/go-daily-events/internal/catalog"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

var fixedNow = MockClock{CurrentTime: time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)}

func sampleCatalog() []catalog.Event {
	year := 1990
	canadaDay := catalog.Date{Year: 2026, Month: time.July, Day: 1}
	return []catalog.Event{
		{Kind: catalog.KindBirthday, Name: "Ada", Month: time.December, Day: 10, Year: &year, Recurring: true},
		{Kind: catalog.KindHoliday, Name: "Canada Day", Month: time.July, Day: 1, SpecificDate: &canadaDay},
		{Kind: catalog.KindEvent, Name: "Leap check", Month: time.February, Day: 29, Recurring: true},
	}
}

func TestExport_Structure(t *testing.T) {
	data, err := (&calendar.Exporter{Clock: fixedNow}).Export(sampleCatalog())
	require.NoError(t, err)
	ics := string(data)

	assert.Contains(t, ics, "BEGIN:VCALENDAR")
	assert.Contains(t, ics, "PRODID:"+config.ICalProdid)
	assert.Contains(t, ics, "X-WR-CALNAME:"+config.ICalCalName)
	assert.NotContains(t, ics, "X-WR-CALNAME;")
	assert.Equal(t, 3, strings.Count(ics, "BEGIN:VEVENT"))
	assert.Equal(t, 2, strings.Count(ics, "RRULE:FREQ=YEARLY"), "only recurring events repeat")

	assert.Contains(t, ics, "DTSTART;VALUE=DATE:19901210", "birthdays are anchored on the birth year")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20260701")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20240229", "yearless dates use a leap year")
	assert.Contains(t, ics, "DTSTAMP:20260303T100000Z")
	assert.Contains(t, ics, "SUMMARY:🎂 Ada")
	assert.Contains(t, ics, "CATEGORIES:holiday")
}

// TestExport_RoundTrip re-imports the feed and recovers the same events.
func TestExport_RoundTrip(t *testing.T) {
	x := &calendar.Exporter{
		Clock:         fixedNow,
		FormatSummary: func(ev catalog.Event) string { return ev.Name },
	}
	data, err := x.Export(sampleCatalog())
	require.NoError(t, err)

	events, err := catalog.NewLoader().ParseICal(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, events, 3)

	ada := events[0]
	assert.Equal(t, catalog.KindBirthday, ada.Kind)
	assert.Equal(t, "Ada", ada.Name)
	assert.True(t, ada.Recurring)
	require.NotNil(t, ada.Year)
	assert.Equal(t, 1990, *ada.Year)

	canada := events[1]
	assert.Equal(t, catalog.KindHoliday, canada.Kind)
	require.NotNil(t, canada.SpecificDate)
	assert.Equal(t, "2026-07-01", canada.SpecificDate.String())

	leap := events[2]
	assert.Equal(t, time.February, leap.Month)
	assert.Equal(t, 29, leap.Day)
	assert.True(t, leap.Recurring)
}

func TestExport_Empty(t *testing.T) {
	data, err := (&calendar.Exporter{Clock: fixedNow}).Export(nil)
	require.NoError(t, err)
	assert.Equal(t, config.StubVCalendar, string(data))
}

func TestStartDate_BirthYearWithoutLeapDay(t *testing.T) {
	year := 1990
	ev := catalog.Event{Kind: catalog.KindBirthday, Name: "Leapling", Month: time.February, Day: 29, Year: &year}
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), calendar.StartDate(ev))
}

func TestUID_Stable(t *testing.T) {
	evs := sampleCatalog()
	assert.Equal(t, calendar.UID(evs[0]), calendar.UID(evs[0]))
	assert.NotEqual(t, calendar.UID(evs[0]), calendar.UID(evs[1]))
	assert.True(t, strings.HasSuffix(calendar.UID(evs[0]), "@"+config.ICalDomain))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.ics")
	x := &calendar.Exporter{Clock: fixedNow}

	require.NoError(t, x.WriteFile(path, sampleCatalog()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VCALENDAR")

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFile_Failure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := (&calendar.Exporter{Clock: fixedNow}).WriteFile(filepath.Join(blocker, "events.ics"), sampleCatalog())
	require.Error(t, err)
	assert.Equal(t, apperr.ClassRuntime, apperr.Classify(err))
}
