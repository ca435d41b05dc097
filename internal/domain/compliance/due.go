// Package compliance holds the due-date model shared by the alert and agenda
// services: the due calculator, the record kinds tracked per tenant, and the
// alert window buckets.
package compliance

import (
	"time"
)

// DefaultWarningDays is the DUE_SOON threshold used when none is configured.
const DefaultWarningDays = 30

// ─────────────────────────────────────────────────────────────────────────────
// DueStatus enumeration
// ─────────────────────────────────────────────────────────────────────────────

// DueStatus is the traffic-light status of a record relative to today.
type DueStatus string

const (
	// StatusExpired: the due date is before today.
	StatusExpired DueStatus = "EXPIRED"

	// StatusDueSoon: due today or within the warning window.
	StatusDueSoon DueStatus = "DUE_SOON"

	// StatusValid: due after the warning window.
	StatusValid DueStatus = "VALID"
)

// ─────────────────────────────────────────────────────────────────────────────
// DueFact
// ─────────────────────────────────────────────────────────────────────────────

// DueFact is derived on every read and never stored.
type DueFact struct {
	DueDate   time.Time `json:"dueDate"`
	Status    DueStatus `json:"status"`
	DaysToDue int       `json:"daysToDue"`
}

// DateOf drops the time of day from t and returns the calendar date as a UTC
// midnight.  The calendar day is the one observed in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the calendar date days after date.
func AddDays(date time.Time, days int) time.Time {
	return DateOf(date).AddDate(0, 0, days)
}

// DaysToDue counts calendar days from the day of now to the day of due.  A due
// date later today yields 0 and tomorrow yields 1; negative means overdue.
//
// due is read as a calendar date (its own Y/M/D), now is read in its own
// location, so a DATE column scanned as UTC compares against local "today".
func DaysToDue(due, now time.Time) int {
	diff := DateOf(due).Sub(DateOf(now))
	return int(diff / (24 * time.Hour))
}

// StatusFor classifies daysToDue against warningDays.
func StatusFor(daysToDue, warningDays int) DueStatus {
	switch {
	case daysToDue < 0:
		return StatusExpired
	case daysToDue <= warningDays:
		return StatusDueSoon
	default:
		return StatusValid
	}
}

// CalculateDue derives the due fact of an occurrence.  warningDays <= 0 uses
// DefaultWarningDays.  validityDays <= 0 is not rejected here; it yields a due
// date on or before the occurrence, which callers reject upstream.
func CalculateDue(occurredOn time.Time, validityDays, warningDays int, now time.Time) DueFact {
	if warningDays <= 0 {
		warningDays = DefaultWarningDays
	}
	due := AddDays(occurredOn, validityDays)
	days := DaysToDue(due, now)
	return DueFact{
		DueDate:   due,
		Status:    StatusFor(days, warningDays),
		DaysToDue: days,
	}
}

// Fact derives the due fact of an already computed due date.
func Fact(dueDate time.Time, warningDays int, now time.Time) DueFact {
	if warningDays <= 0 {
		warningDays = DefaultWarningDays
	}
	days := DaysToDue(dueDate, now)
	return DueFact{
		DueDate:   DateOf(dueDate),
		Status:    StatusFor(days, warningDays),
		DaysToDue: days,
	}
}
