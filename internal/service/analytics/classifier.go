package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/mamadbah2/coopmetrics/internal/domain/models"
)

// minDropHistory is the minimum number of prior recorded days required
// before a production drop can be judged against the rolling average.
const minDropHistory = 3

// Classify evaluates an aggregate against the thresholds and returns every
// alert that fires, sorted by severity for display. It is a pure function
// over the aggregate; it performs no store access.
func Classify(agg *Aggregate, th Thresholds) []models.Alert {
	if agg == nil {
		return nil
	}

	var alerts []models.Alert
	alerts = append(alerts, classifyProductionDrop(agg, th)...)
	alerts = append(alerts, classifyMortalitySpikes(agg, th)...)
	alerts = append(alerts, classifyAttendance(agg, th)...)
	alerts = append(alerts, classifyStaleData(agg, th)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity.Rank() != alerts[j].Severity.Rank() {
			return alerts[i].Severity.Rank() > alerts[j].Severity.Rank()
		}
		return alerts[i].Date.After(alerts[j].Date)
	})
	return alerts
}

// ClassifyRange aggregates and classifies in one call, for the alert
// endpoints and the scheduler's notification fan-out.
func (s *Service) ClassifyRange(ctx context.Context, orgID string, scope models.Scope, rng models.DateRange) ([]models.Alert, error) {
	agg, err := s.Aggregate(ctx, orgID, scope, rng)
	if err != nil {
		return nil, err
	}
	return Classify(agg, s.thresholds), nil
}

// classifyProductionDrop compares the latest recorded day's total against
// the rolling average of the up-to-7 recorded days preceding it.
func classifyProductionDrop(agg *Aggregate, th Thresholds) []models.Alert {
	var recorded []DayMetric
	for _, day := range agg.Daily {
		if day.ShedsReported > 0 {
			recorded = append(recorded, day)
		}
	}
	if len(recorded) < minDropHistory+1 {
		return nil
	}

	latest := recorded[len(recorded)-1]
	window := recorded[:len(recorded)-1]
	if len(window) > 7 {
		window = window[len(window)-7:]
	}

	var sum int
	for _, day := range window {
		sum += day.TotalEggs
	}
	avg := float64(sum) / float64(len(window))
	threshold := avg * th.ProductionDropFactor

	if avg == 0 || float64(latest.TotalEggs) >= threshold {
		return nil
	}

	return []models.Alert{{
		Kind:           models.AlertProductionDrop,
		Severity:       models.SeverityWarning,
		OrganizationID: agg.OrganizationID,
		ScopeKind:      agg.Scope.Kind,
		ScopeID:        agg.Scope.ID,
		Date:           latest.Date,
		Metric:         float64(latest.TotalEggs),
		Threshold:      threshold,
		Message: fmt.Sprintf("egg production %d on %s is below %.0f (%.0f%% of the %d-day average %.0f)",
			latest.TotalEggs, latest.Date.Format("2006-01-02"), threshold,
			th.ProductionDropFactor*100, len(window), avg),
	}}
}

func classifyMortalitySpikes(agg *Aggregate, th Thresholds) []models.Alert {
	var alerts []models.Alert
	for _, day := range agg.Daily {
		if day.Mortality == 0 {
			continue
		}

		threshold := float64(th.MortalityAbsolute)
		if day.FlockOpen > 0 {
			pctThreshold := float64(day.FlockOpen) * th.MortalityFlockPct
			if pctThreshold < threshold {
				threshold = pctThreshold
			}
		}
		if float64(day.Mortality) <= threshold {
			continue
		}

		alerts = append(alerts, models.Alert{
			Kind:           models.AlertMortalitySpike,
			Severity:       models.SeverityCritical,
			OrganizationID: agg.OrganizationID,
			ScopeKind:      agg.Scope.Kind,
			ScopeID:        agg.Scope.ID,
			Date:           day.Date,
			Metric:         float64(day.Mortality),
			Threshold:      threshold,
			Message: fmt.Sprintf("mortality of %d on %s exceeds threshold %.0f",
				day.Mortality, day.Date.Format("2006-01-02"), threshold),
		})
	}
	return alerts
}

func classifyAttendance(agg *Aggregate, th Thresholds) []models.Alert {
	var alerts []models.Alert
	for _, day := range agg.Attendance {
		if day.Rate >= th.AttendanceRateMin {
			continue
		}
		alerts = append(alerts, models.Alert{
			Kind:           models.AlertAttendanceShortfall,
			Severity:       models.SeverityWarning,
			OrganizationID: agg.OrganizationID,
			ScopeKind:      agg.Scope.Kind,
			ScopeID:        agg.Scope.ID,
			Date:           day.Date,
			Metric:         day.Rate,
			Threshold:      th.AttendanceRateMin,
			Message: fmt.Sprintf("attendance rate %.0f%% on %s is below the %.0f%% floor",
				day.Rate*100, day.Date.Format("2006-01-02"), th.AttendanceRateMin*100),
		})
	}
	return alerts
}

func classifyStaleData(agg *Aggregate, th Thresholds) []models.Alert {
	var alerts []models.Alert
	for _, shed := range agg.Sheds {
		if shed.MissingStreak < th.StaleDays {
			continue
		}
		alerts = append(alerts, models.Alert{
			Kind:           models.AlertStaleData,
			Severity:       models.SeverityInfo,
			OrganizationID: agg.OrganizationID,
			ScopeKind:      models.ScopeShed,
			ScopeID:        shed.ShedID,
			Date:           agg.Range.End,
			Metric:         float64(shed.MissingStreak),
			Threshold:      float64(th.StaleDays),
			Message: fmt.Sprintf("shed %s has no production record for %d consecutive days",
				shed.ShedName, shed.MissingStreak),
		})
	}
	return alerts
}
