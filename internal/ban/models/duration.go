package models

import "time"

// HowLong is a calendar-aware duration breakdown, denormalized onto the ban
// at create/update time for fast reads.
type HowLong struct {
	Years  int `json:"years"`
	Months int `json:"months"`
	Days   int `json:"days"`
}

// HowLongBetween computes the breakdown between the starting date and the
// last banned day. EndingDate is exclusive (a ban is active while
// now < end), so the span is measured against end minus one day. When end
// does not follow start the result is all zeros, never negative.
//
// Day deficits borrow from the day count of the month preceding the end
// cursor, then month deficits borrow twelve from the year count.
func HowLongBetween(start, end time.Time) HowLong {
	if !end.After(start) {
		return HowLong{}
	}
	last := end.AddDate(0, 0, -1)
	if last.Before(start) {
		return HowLong{}
	}

	years := last.Year() - start.Year()
	months := int(last.Month()) - int(start.Month())
	days := last.Day() - start.Day()

	cursor := last
	for days < 0 {
		// day count of the month preceding the cursor's month
		prev := time.Date(cursor.Year(), cursor.Month(), 0, 0, 0, 0, 0, cursor.Location())
		days += prev.Day()
		months--
		cursor = prev
	}
	if months < 0 {
		months += 12
		years--
	}
	if years < 0 {
		return HowLong{}
	}
	return HowLong{Years: years, Months: months, Days: days}
}
