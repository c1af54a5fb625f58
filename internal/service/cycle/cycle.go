// Package cycle maps flock cycle start dates onto the 7-day week calendar
// used by all weekly metrics.
package cycle

import (
	"fmt"

	"time"

	"github.com/mamadbah2/coopmetrics/internal/domain/models"
)

// Position locates a date within a flock cycle. DaysRemaining is nil for
// open-ended cycles.
type Position struct {
	Week          int  `json:"week"`
	DayOfWeek     int  `json:"day_of_week"`
	DaysElapsed   int  `json:"days_elapsed"`
	DaysRemaining *int `json:"days_remaining,omitempty"`
}

// Resolve computes the week number, day of week and elapsed/remaining day
// counts for a target date. Week 1 day 1 is the cycle start date itself.
// totalDays zero means the cycle has no fixed duration.
func Resolve(cycleStart, target time.Time, totalDays int) (Position, error) {
	start := models.Midnight(cycleStart)
	day := models.Midnight(target)

	if day.Before(start) {
		return Position{}, fmt.Errorf("%w: cycle starts %s, target %s",
			models.ErrInvalidCycleDate, start.Format("2006-01-02"), day.Format("2006-01-02"))
	}

	elapsed := int(day.Sub(start).Hours() / 24)
	pos := Position{
		Week:        elapsed/7 + 1,
		DayOfWeek:   elapsed%7 + 1,
		DaysElapsed: elapsed,
	}

	if totalDays > 0 {
		remaining := totalDays - elapsed
		if remaining < 0 {
			remaining = 0
		}
		pos.DaysRemaining = &remaining
	}

	return pos, nil
}

// ForCycle resolves a date against a stored cycle.
func ForCycle(c *models.FlockCycle, target time.Time) (Position, error) {
	if c == nil {
		return Position{}, models.ErrNoActiveCycle
	}
	return Resolve(c.StartDate, target, c.TotalDays)
}

// WeekOf returns just the week number for a date, used by the aggregator's
// weekly rollup.
func WeekOf(cycleStart, target time.Time) (int, error) {
	pos, err := Resolve(cycleStart, target, 0)
	if err != nil {
		return 0, err
	}
	return pos.Week, nil
}
