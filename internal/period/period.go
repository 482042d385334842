// Package period derives canonical accounting-window keys.
//
// Free-tier usage is tracked per ISO week ("2026-W35"), pro-tier usage per
// calendar month ("2026-08"). Keys are pure functions of time and tier; the
// caller is responsible for using the same key on the read and write path of
// a single accounting operation.
package period

import (
	"fmt"
	"time"

	"nativeai_backend/internal/models"
)

// WeekKey returns the ISO-8601 week identifier for t, e.g. "2026-W35".
// The ISO year can differ from the calendar year around January 1st.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MonthKey returns the calendar month identifier for t, e.g. "2026-08".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// KeyFor returns the accounting window key for a plan tier at time t.
func KeyFor(plan models.PlanTier, t time.Time) string {
	if plan == models.PlanPro {
		return MonthKey(t)
	}
	return WeekKey(t)
}
