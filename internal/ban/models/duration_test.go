package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHowLongBetweenBorrowsThroughLeapFebruary(t *testing.T) {
	got := HowLongBetween(date(2024, time.January, 31), date(2024, time.March, 1))
	assert.Equal(t, HowLong{Years: 0, Months: 0, Days: 29}, got)
}

func TestHowLongBetweenZeroWhenEndPrecedesStart(t *testing.T) {
	got := HowLongBetween(date(2024, time.March, 1), date(2024, time.January, 31))
	assert.Equal(t, HowLong{}, got)

	got = HowLongBetween(date(2024, time.March, 1), date(2024, time.March, 1))
	assert.Equal(t, HowLong{}, got)
}

func TestHowLongBetweenPlainSpans(t *testing.T) {
	// one banned day: Jan 1 only
	assert.Equal(t, HowLong{}, HowLongBetween(date(2024, time.January, 1), date(2024, time.January, 2)))

	// Jan 1 through Jan 31 inclusive
	assert.Equal(t, HowLong{Days: 30},
		HowLongBetween(date(2024, time.January, 1), date(2024, time.February, 1)))

	// multi-year span with month borrow
	got := HowLongBetween(date(2022, time.November, 15), date(2024, time.February, 10))
	assert.Equal(t, HowLong{Years: 1, Months: 2, Days: 25}, got)
}

func TestBanIsActiveWindow(t *testing.T) {
	now := date(2024, time.June, 15)
	ban := &Ban{StartingDate: date(2024, time.June, 1), EndingDate: date(2024, time.July, 1)}
	assert.True(t, ban.IsActive(now))

	assert.False(t, ban.IsActive(date(2024, time.May, 31)))
	// end is exclusive
	assert.False(t, ban.IsActive(date(2024, time.July, 1)))

	openEnded := &Ban{StartingDate: date(2024, time.June, 1)}
	assert.True(t, openEnded.IsActive(date(2030, time.January, 1)))
}

func TestSortOptionNormalize(t *testing.T) {
	assert.Equal(t, SortViolationsDesc, SortOption("").Normalize())
	assert.Equal(t, SortViolationsDesc, SortOption("bogus").Normalize())
	assert.Equal(t, SortPersonNameAsc, SortPersonNameAsc.Normalize())
}
