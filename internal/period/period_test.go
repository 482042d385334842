package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"nativeai_backend/internal/models"
)

func TestWeekKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2026-W35", WeekKey(time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)))

	// ISO year boundary: Jan 1st 2027 is a Friday and belongs to ISO week 53 of 2026.
	assert.Equal(t, "2026-W53", WeekKey(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))

	// Dec 29th 2025 is a Monday in ISO week 1 of 2026.
	assert.Equal(t, "2026-W01", WeekKey(time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)))
}

func TestMonthKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2026-08", MonthKey(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-01", MonthKey(time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC)))
}

func TestKeyFor(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-W35", KeyFor(models.PlanFree, now))
	assert.Equal(t, "2026-08", KeyFor(models.PlanPro, now))
}

func TestKeyStability(t *testing.T) {
	t.Parallel()

	// Any two instants inside the same window must produce the same key.
	monday := time.Date(2026, 8, 24, 0, 0, 1, 0, time.UTC)
	sunday := time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, WeekKey(monday), WeekKey(sunday))

	first := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, MonthKey(first), MonthKey(last))
}
