package core

import "time"

// Calendar arithmetic for due days. The policy for day-of-month values that
// do not exist in the target month (31 in April, 29..31 in February) is to
// clamp to the last day of that month. Date construction never relies on
// time.Date overflow rollover.

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampedDate builds a date in (year, month) with day clamped to the last
// day of the month when it exceeds it.
func ClampedDate(year int, month time.Month, day int) Date {
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// AddMonthsClamped shifts the date by the given number of months, holding
// the nominal day of month and clamping it per target month. The nominal day
// is taken from d itself, so Jan 31 + 1 month is Feb 29 (leap) while
// Jan 31 + 2 months is Mar 31 again.
func AddMonthsClamped(d Date, months int) Date {
	anchor := time.Date(d.Year(), d.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	return ClampedDate(anchor.Year(), anchor.Month(), d.Day())
}
