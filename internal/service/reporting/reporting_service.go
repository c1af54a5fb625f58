// Package reporting compiles aggregates and alerts into comprehensive
// report documents and backs the dashboard query endpoints.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/coopmetrics/internal/domain/models"
	"github.com/mamadbah2/coopmetrics/internal/repository"
	"github.com/mamadbah2/coopmetrics/internal/service/analytics"
	"github.com/mamadbah2/coopmetrics/internal/service/cycle"
)

const emptyRangeNote = "no production, mortality or attendance data was found for the requested range"

// alertWindowDays is the trailing window the alert endpoints evaluate.
const alertWindowDays = 14

// Service assembles comprehensive reports. Compilation is read-only and
// idempotent: the same parameters over unchanged data yield the same
// figures, only the generation timestamp differs.
type Service struct {
	store     repository.Store
	analytics *analytics.Service
	logger    *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(store repository.Store, analyticsSvc *analytics.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, analytics: analyticsSvc, logger: logger}
}

// Compile produces a ComprehensiveReport for one organization, report type,
// range and scope. An empty range yields a report with zeroed sections and
// an explanatory note, not an error.
func (s *Service) Compile(ctx context.Context, orgID, reportType string, rng models.DateRange, scope models.Scope, requestedBy string) (*models.ComprehensiveReport, error) {
	org, err := s.store.OrganizationByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: organization %s", models.ErrInvalidScope, orgID)
		}
		return nil, fmt.Errorf("load organization: %w", err)
	}

	rng = models.NewDateRange(rng.Start, rng.End)
	agg, err := s.analytics.Aggregate(ctx, orgID, scope, rng)
	if err != nil {
		return nil, err
	}

	report := &models.ComprehensiveReport{
		Metadata: models.ReportMetadata{
			ID:               uuid.NewString(),
			ReportType:       reportType,
			OrganizationID:   orgID,
			OrganizationName: org.Name,
			Range:            rng,
			Scope:            scope,
			GeneratedAt:      time.Now().UTC(),
			RequestedBy:      requestedBy,
		},
		Production: buildProductionSection(agg),
		Attendance: buildAttendanceSection(agg),
		Alerts:     analytics.Classify(agg, s.analytics.Thresholds()),
	}

	if err := s.attachDetails(ctx, report, agg); err != nil {
		return nil, err
	}

	if agg.Totals.DaysRecorded == 0 && len(agg.Attendance) == 0 {
		report.Note = emptyRangeNote
	} else {
		report.Insights = s.buildInsights(ctx, agg)
	}

	s.logger.Info("report compiled",
		zap.String("report_id", report.Metadata.ID),
		zap.String("org_id", orgID),
		zap.String("report_type", reportType),
		zap.Int("total_eggs", report.Production.TotalEggs),
		zap.Int("alerts", len(report.Alerts)))

	return report, nil
}

func buildProductionSection(agg *analytics.Aggregate) models.ProductionSection {
	section := models.ProductionSection{
		SellableEggs: agg.Totals.SellableEggs,
		BrokenEggs:   agg.Totals.BrokenEggs,
		DamagedEggs:  agg.Totals.DamagedEggs,
		TotalEggs:    agg.Totals.TotalEggs,
		Mortality:    agg.Totals.Mortality,
		DaysRecorded: agg.Totals.DaysRecorded,
		Efficiency:   agg.Totals.Efficiency,
	}
	for _, farm := range agg.ByFarm {
		section.ByFarm = append(section.ByFarm, models.FarmBreakdown{
			FarmID:       farm.FarmID,
			FarmName:     farm.FarmName,
			SellableEggs: farm.SellableEggs,
			TotalEggs:    farm.TotalEggs,
			Mortality:    farm.Mortality,
			DaysRecorded: farm.DaysRecorded,
			Efficiency:   farm.Efficiency,
		})
	}
	sort.Slice(section.ByFarm, func(i, j int) bool { return section.ByFarm[i].FarmID < section.ByFarm[j].FarmID })
	return section
}

func buildAttendanceSection(agg *analytics.Aggregate) models.AttendanceSection {
	section := models.AttendanceSection{}
	var rateSum float64
	for _, day := range agg.Attendance {
		section.Present += day.Present
		section.Late += day.Late
		section.Absent += day.Absent
		rateSum += day.Rate
	}
	if len(agg.Attendance) > 0 {
		section.AverageRate = rateSum / float64(len(agg.Attendance))
	}
	for _, worker := range agg.Workers {
		section.ByWorker = append(section.ByWorker, models.WorkerBreakdown{
			WorkerID:   worker.WorkerID,
			WorkerName: worker.WorkerName,
			Present:    worker.Present,
			Late:       worker.Late,
			Absent:     worker.Absent,
			Rate:       worker.Rate,
		})
	}
	sort.Slice(section.ByWorker, func(i, j int) bool { return section.ByWorker[i].WorkerID < section.ByWorker[j].WorkerID })
	return section
}

// attachDetails builds the raw shed-day detail rows from the same snapshot
// scope and range the aggregate covers.
func (s *Service) attachDetails(ctx context.Context, report *models.ComprehensiveReport, agg *analytics.Aggregate) error {
	if agg.Range.Days() == 0 {
		return nil
	}

	production, err := s.store.ProductionRecords(ctx, agg.OrganizationID, agg.Scope, agg.Range)
	if err != nil {
		return fmt.Errorf("load production details: %w", err)
	}
	mortality, err := s.store.MortalityRecords(ctx, agg.OrganizationID, agg.Scope, agg.Range)
	if err != nil {
		return fmt.Errorf("load mortality details: %w", err)
	}

	type shedDay struct {
		shedID string
		date   time.Time
	}
	deaths := map[shedDay]int{}
	for _, rec := range mortality {
		deaths[shedDay{rec.ShedID, models.Midnight(rec.Date)}] += rec.Total()
	}

	farmNames := map[string]string{}
	for _, farm := range agg.ByFarm {
		farmNames[farm.FarmID] = farm.FarmName
	}
	shedNames := map[string]string{}
	for _, shed := range agg.ByShed {
		shedNames[shed.ShedID] = shed.ShedName
	}

	rows := make([]models.ProductionDetailRow, 0, len(production))
	for _, rec := range production {
		date := models.Midnight(rec.Date)
		rows = append(rows, models.ProductionDetailRow{
			Date:         date,
			FarmName:     farmNames[rec.FarmID],
			ShedName:     shedNames[rec.ShedID],
			SellableEggs: rec.SellableEggs,
			BrokenEggs:   rec.BrokenEggs,
			DamagedEggs:  rec.DamagedEggs,
			TotalEggs:    rec.TotalEggs(),
			Mortality:    deaths[shedDay{rec.ShedID, date}],
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].ShedName < rows[j].ShedName
	})
	report.Production.Details = rows
	return nil
}

// buildInsights compares the range against the immediately preceding period
// of equal length.
func (s *Service) buildInsights(ctx context.Context, agg *analytics.Aggregate) []string {
	prior, err := s.analytics.Aggregate(ctx, agg.OrganizationID, agg.Scope, agg.Range.Prior())
	if err != nil {
		s.logger.Warn("prior period aggregation failed, skipping trend insights", zap.Error(err))
		return nil
	}

	days := agg.Range.Days()
	var insights []string

	if change, ok := pctChange(float64(agg.Totals.TotalEggs), float64(prior.Totals.TotalEggs)); ok {
		insights = append(insights, fmt.Sprintf("egg production %s vs the prior %d-day period", formatChange(change), days))
	}
	if agg.Totals.TotalEggs > 0 && prior.Totals.TotalEggs > 0 {
		delta := (agg.Totals.Efficiency - prior.Totals.Efficiency) * 100
		insights = append(insights, fmt.Sprintf("sellable efficiency %.1f%% (%+.1f points vs prior period)",
			agg.Totals.Efficiency*100, delta))
	}
	if change, ok := pctChange(float64(agg.Totals.Mortality), float64(prior.Totals.Mortality)); ok {
		insights = append(insights, fmt.Sprintf("mortality %s vs the prior %d-day period", formatChange(change), days))
	}
	if agg.Totals.DaysRecorded < days {
		insights = append(insights, fmt.Sprintf("data recorded on %d of %d days in the range", agg.Totals.DaysRecorded, days))
	}
	return insights
}

func pctChange(current, prior float64) (float64, bool) {
	if prior == 0 {
		return 0, false
	}
	return (current - prior) / prior * 100, true
}

func formatChange(change float64) string {
	if math.Abs(change) < 0.05 {
		return "unchanged"
	}
	if change > 0 {
		return fmt.Sprintf("up %.1f%%", change)
	}
	return fmt.Sprintf("down %.1f%%", -change)
}

// DashboardStats is the headline summary for the org dashboard.
type DashboardStats struct {
	Range          models.DateRange `json:"range"`
	Totals         analytics.Totals `json:"totals"`
	AttendanceRate float64          `json:"attendance_rate"`
	ActiveSheds    int              `json:"active_sheds"`
	AlertCount     int              `json:"alert_count"`
}

// GetDashboardStats summarizes the trailing days window, asOf inclusive.
func (s *Service) GetDashboardStats(ctx context.Context, orgID string, days int, asOf time.Time) (*DashboardStats, error) {
	rng := models.LastNDays(asOf, days)
	agg, err := s.analytics.Aggregate(ctx, orgID, models.OrgScope(), rng)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		Range:       rng,
		Totals:      agg.Totals,
		ActiveSheds: len(agg.Sheds),
		AlertCount:  len(analytics.Classify(agg, s.analytics.Thresholds())),
	}
	var rateSum float64
	for _, day := range agg.Attendance {
		rateSum += day.Rate
	}
	if len(agg.Attendance) > 0 {
		stats.AttendanceRate = rateSum / float64(len(agg.Attendance))
	}
	return stats, nil
}

// GetProductionTrend returns the per-day series for the trailing window.
// Days without data are absent from the series, not zeroed.
func (s *Service) GetProductionTrend(ctx context.Context, orgID string, days int, asOf time.Time) ([]analytics.DayMetric, error) {
	agg, err := s.analytics.Aggregate(ctx, orgID, models.OrgScope(), models.LastNDays(asOf, days))
	if err != nil {
		return nil, err
	}
	return agg.Daily, nil
}

// GetShedPerformance returns the per-shed rollup for the trailing window.
func (s *Service) GetShedPerformance(ctx context.Context, orgID string, days int, asOf time.Time) ([]analytics.ShedMetric, error) {
	agg, err := s.analytics.Aggregate(ctx, orgID, models.OrgScope(), models.LastNDays(asOf, days))
	if err != nil {
		return nil, err
	}
	sheds := make([]analytics.ShedMetric, 0, len(agg.ByShed))
	for _, shed := range agg.ByShed {
		sheds = append(sheds, *shed)
	}
	sort.Slice(sheds, func(i, j int) bool { return sheds[i].ShedID < sheds[j].ShedID })
	return sheds, nil
}

// AttendanceSummary is the workforce view for the trailing window.
type AttendanceSummary struct {
	Range       models.DateRange          `json:"range"`
	Daily       []analytics.AttendanceDay `json:"daily"`
	ByWorker    []models.WorkerBreakdown  `json:"by_worker"`
	AverageRate float64                   `json:"average_rate"`
}

// GetAttendanceSummary returns daily and per-worker attendance for the
// trailing window.
func (s *Service) GetAttendanceSummary(ctx context.Context, orgID string, days int, asOf time.Time) (*AttendanceSummary, error) {
	rng := models.LastNDays(asOf, days)
	agg, err := s.analytics.Aggregate(ctx, orgID, models.OrgScope(), rng)
	if err != nil {
		return nil, err
	}
	section := buildAttendanceSection(agg)
	return &AttendanceSummary{
		Range:       rng,
		Daily:       agg.Attendance,
		ByWorker:    section.ByWorker,
		AverageRate: section.AverageRate,
	}, nil
}

// GetProductionAlerts classifies the trailing alert window.
func (s *Service) GetProductionAlerts(ctx context.Context, orgID string, asOf time.Time) ([]models.Alert, error) {
	return s.analytics.ClassifyRange(ctx, orgID, models.OrgScope(), models.LastNDays(asOf, alertWindowDays))
}

// WeekStatus locates today inside the active flock cycle.
type WeekStatus struct {
	CycleID   string         `json:"cycle_id"`
	CycleName string         `json:"cycle_name,omitempty"`
	StartDate time.Time      `json:"start_date"`
	Position  cycle.Position `json:"position"`
}

// GetCurrentWeekStatus resolves the active cycle position for a farm, or the
// organization default when farmID is empty. ErrNoActiveCycle when no cycle
// is active; callers treat week metrics as unavailable, not zero.
func (s *Service) GetCurrentWeekStatus(ctx context.Context, orgID, farmID string, asOf time.Time) (*WeekStatus, error) {
	active, err := s.store.ActiveCycle(ctx, orgID, farmID)
	if err != nil {
		return nil, err
	}
	pos, err := cycle.ForCycle(active, asOf)
	if err != nil {
		return nil, err
	}
	return &WeekStatus{
		CycleID:   active.ID,
		CycleName: active.Name,
		StartDate: models.Midnight(active.StartDate),
		Position:  pos,
	}, nil
}

// GetWeeklyProductionSummary returns up to weeks trailing week metrics.
// Weeks with no data at all are absent rather than zero-padded.
func (s *Service) GetWeeklyProductionSummary(ctx context.Context, orgID string, weeks int, asOf time.Time) ([]analytics.WeekMetric, error) {
	agg, err := s.analytics.Aggregate(ctx, orgID, models.OrgScope(), models.LastNDays(asOf, weeks*7))
	if err != nil {
		return nil, err
	}
	return agg.Weekly, nil
}
