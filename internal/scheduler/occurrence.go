package scheduler

import (
	"time"

	"github.com/mamadbah2/coopmetrics/internal/domain/models"
)

// DueOccurrence returns the most recent due boundary at or before now for
// the definition's frequency, and whether that boundary is newer than the
// last delivered occurrence. Boundaries are anchored to the definition's
// time of day in UTC: daily at every anchor hour, weekly on Mondays,
// monthly on the 1st.
func DueOccurrence(def models.ReportDefinition, now time.Time) (time.Time, bool) {
	boundary := lastBoundary(def.Frequency, def.AnchorHour, now.UTC())
	if boundary.IsZero() || !boundary.After(def.LastOccurrence) {
		return time.Time{}, false
	}
	return boundary, true
}

func lastBoundary(freq models.ReportFrequency, anchorHour int, now time.Time) time.Time {
	switch freq {
	case models.FrequencyDaily:
		boundary := time.Date(now.Year(), now.Month(), now.Day(), anchorHour, 0, 0, 0, time.UTC)
		if boundary.After(now) {
			boundary = boundary.AddDate(0, 0, -1)
		}
		return boundary
	case models.FrequencyWeekly:
		boundary := time.Date(now.Year(), now.Month(), now.Day(), anchorHour, 0, 0, 0, time.UTC)
		for boundary.Weekday() != time.Monday {
			boundary = boundary.AddDate(0, 0, -1)
		}
		if boundary.After(now) {
			boundary = boundary.AddDate(0, 0, -7)
		}
		return boundary
	case models.FrequencyMonthly:
		boundary := time.Date(now.Year(), now.Month(), 1, anchorHour, 0, 0, 0, time.UTC)
		if boundary.After(now) {
			boundary = boundary.AddDate(0, -1, 0)
		}
		return boundary
	default:
		return time.Time{}
	}
}

// occurrenceRange is the completed-day window one occurrence reports on:
// the definition's span of trailing days ending the day before the due
// boundary.
func occurrenceRange(def models.ReportDefinition, due time.Time) models.DateRange {
	end := models.Midnight(due).AddDate(0, 0, -1)
	return models.DateRange{Start: end.AddDate(0, 0, -(def.RangeDays() - 1)), End: end}
}
