// Package analytics converts raw daily records into cycle-aligned metrics
// and classifies them into alerts.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/coopmetrics/internal/config"
	"github.com/mamadbah2/coopmetrics/internal/domain/models"
	"github.com/mamadbah2/coopmetrics/internal/repository"
	"github.com/mamadbah2/coopmetrics/internal/service/cycle"
)

// Service is the metric aggregator. It reads record snapshots from the
// store and owns no state of its own.
type Service struct {
	store        repository.Store
	policy       AttendancePolicy
	thresholds   Thresholds
	maxRangeDays int
	logger       *zap.Logger
}

// NewService wires a new analytics service instance.
func NewService(store repository.Store, cfg config.AnalyticsConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		policy:       AttendancePolicy{LateCredit: cfg.LateCredit},
		thresholds:   ThresholdsFromConfig(cfg),
		maxRangeDays: cfg.MaxRangeDays,
		logger:       logger,
	}
}

// Thresholds exposes the classifier thresholds the service was built with.
func (s *Service) Thresholds() Thresholds {
	return s.thresholds
}

// Policy exposes the attendance policy in effect.
func (s *Service) Policy() AttendancePolicy {
	return s.policy
}

// Aggregate scans production, mortality and attendance records for one
// organization, scope and inclusive date range, producing daily, weekly and
// per-farm rollups. An empty range yields empty collections, not an error.
func (s *Service) Aggregate(ctx context.Context, orgID string, scope models.Scope, rng models.DateRange) (*Aggregate, error) {
	rng = models.NewDateRange(rng.Start, rng.End)

	if rng.Days() > s.maxRangeDays {
		return nil, fmt.Errorf("%w: %d days requested, cap is %d", models.ErrRangeTooLarge, rng.Days(), s.maxRangeDays)
	}

	if err := s.validateScope(ctx, orgID, scope); err != nil {
		return nil, err
	}

	agg := &Aggregate{
		OrganizationID: orgID,
		Scope:          scope,
		Range:          rng,
		ByFarm:         map[string]*FarmMetric{},
		ByShed:         map[string]*ShedMetric{},
		Workers:        map[string]*WorkerStats{},
	}
	if rng.Days() == 0 {
		return agg, nil
	}

	production, err := s.store.ProductionRecords(ctx, orgID, scope, rng)
	if err != nil {
		return nil, fmt.Errorf("load production records: %w", err)
	}
	mortality, err := s.store.MortalityRecords(ctx, orgID, scope, rng)
	if err != nil {
		return nil, fmt.Errorf("load mortality records: %w", err)
	}
	attendance, err := s.store.AttendanceRecords(ctx, orgID, scope, rng)
	if err != nil {
		return nil, fmt.Errorf("load attendance records: %w", err)
	}
	farms, err := s.store.FarmsByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load farms: %w", err)
	}
	sheds, err := s.store.ShedsByScope(ctx, orgID, scope)
	if err != nil {
		return nil, fmt.Errorf("load sheds: %w", err)
	}

	farmNames := make(map[string]string, len(farms))
	for _, f := range farms {
		farmNames[f.ID] = f.Name
	}

	shedNames := make(map[string]string, len(sheds))
	for _, shed := range sheds {
		shedNames[shed.ID] = shed.Name
	}

	s.rollupDaily(agg, production, mortality, farmNames)
	s.rollupSheds(agg, production, mortality, shedNames)
	s.rollupAttendance(agg, attendance)
	s.rollupShedActivity(agg, production, sheds)
	if err := s.rollupWeekly(ctx, agg); err != nil {
		return nil, err
	}
	s.finalizeTotals(agg)

	s.logger.Debug("aggregate computed",
		zap.String("org_id", orgID),
		zap.String("scope", string(scope.Kind)),
		zap.Int("days_recorded", agg.Totals.DaysRecorded),
		zap.Int("total_eggs", agg.Totals.TotalEggs))

	return agg, nil
}

// validateScope rejects filters that do not belong to the organization.
// Cross-tenant references surface as ErrInvalidScope, never as silent
// empty results that could mask a filter omission.
func (s *Service) validateScope(ctx context.Context, orgID string, scope models.Scope) error {
	switch scope.Kind {
	case "", models.ScopeAllOrg:
		return nil
	case models.ScopeFarm:
		if _, err := s.store.FarmByID(ctx, orgID, scope.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: farm %s", models.ErrInvalidScope, scope.ID)
			}
			return err
		}
		return nil
	case models.ScopeShed:
		if _, err := s.store.ShedByID(ctx, orgID, scope.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: shed %s", models.ErrInvalidScope, scope.ID)
			}
			return err
		}
		return nil
	case models.ScopeManager:
		farms, err := s.store.FarmsByOrg(ctx, orgID)
		if err != nil {
			return err
		}
		for _, f := range farms {
			if f.ManagerID == scope.ID {
				return nil
			}
		}
		return fmt.Errorf("%w: manager %s", models.ErrInvalidScope, scope.ID)
	default:
		return fmt.Errorf("%w: unknown scope kind %q", models.ErrInvalidScope, scope.Kind)
	}
}

func (s *Service) rollupDaily(agg *Aggregate, production []models.ProductionRecord, mortality []models.MortalityRecord, farmNames map[string]string) {
	days := map[time.Time]*DayMetric{}

	for _, rec := range production {
		date := models.Midnight(rec.Date)
		day := days[date]
		if day == nil {
			day = &DayMetric{Date: date}
			days[date] = day
		}
		day.SellableEggs += rec.SellableEggs
		day.BrokenEggs += rec.BrokenEggs
		day.DamagedEggs += rec.DamagedEggs
		day.TotalEggs += rec.TotalEggs()
		day.FlockOpen += rec.OpenFlock()
		day.ShedsReported++

		farm := agg.ByFarm[rec.FarmID]
		if farm == nil {
			farm = &FarmMetric{FarmID: rec.FarmID, FarmName: farmNames[rec.FarmID]}
			agg.ByFarm[rec.FarmID] = farm
		}
		farm.SellableEggs += rec.SellableEggs
		farm.BrokenEggs += rec.BrokenEggs
		farm.DamagedEggs += rec.DamagedEggs
		farm.TotalEggs += rec.TotalEggs()
	}

	for _, rec := range mortality {
		date := models.Midnight(rec.Date)
		day := days[date]
		if day == nil {
			// Mortality can be logged on days without production; it still
			// counts toward the day's rollup but not toward DaysRecorded.
			day = &DayMetric{Date: date}
			days[date] = day
		}
		day.Mortality += rec.Total()

		if farm := agg.ByFarm[rec.FarmID]; farm != nil {
			farm.Mortality += rec.Total()
		} else {
			agg.ByFarm[rec.FarmID] = &FarmMetric{
				FarmID:    rec.FarmID,
				FarmName:  farmNames[rec.FarmID],
				Mortality: rec.Total(),
			}
		}
	}

	agg.Daily = make([]DayMetric, 0, len(days))
	for _, day := range days {
		if day.TotalEggs > 0 {
			day.Efficiency = float64(day.SellableEggs) / float64(day.TotalEggs)
		}
		agg.Daily = append(agg.Daily, *day)
	}
	sort.Slice(agg.Daily, func(i, j int) bool { return agg.Daily[i].Date.Before(agg.Daily[j].Date) })

	// Per-farm days recorded.
	farmDays := map[string]map[time.Time]bool{}
	for _, rec := range production {
		date := models.Midnight(rec.Date)
		if farmDays[rec.FarmID] == nil {
			farmDays[rec.FarmID] = map[time.Time]bool{}
		}
		farmDays[rec.FarmID][date] = true
	}
	for id, farm := range agg.ByFarm {
		farm.DaysRecorded = len(farmDays[id])
		if farm.TotalEggs > 0 {
			farm.Efficiency = float64(farm.SellableEggs) / float64(farm.TotalEggs)
		}
	}
}

func (s *Service) rollupSheds(agg *Aggregate, production []models.ProductionRecord, mortality []models.MortalityRecord, shedNames map[string]string) {
	shedDays := map[string]map[time.Time]bool{}

	for _, rec := range production {
		shed := agg.ByShed[rec.ShedID]
		if shed == nil {
			shed = &ShedMetric{ShedID: rec.ShedID, ShedName: shedNames[rec.ShedID], FarmID: rec.FarmID}
			agg.ByShed[rec.ShedID] = shed
		}
		shed.SellableEggs += rec.SellableEggs
		shed.BrokenEggs += rec.BrokenEggs
		shed.DamagedEggs += rec.DamagedEggs
		shed.TotalEggs += rec.TotalEggs()

		if shedDays[rec.ShedID] == nil {
			shedDays[rec.ShedID] = map[time.Time]bool{}
		}
		shedDays[rec.ShedID][models.Midnight(rec.Date)] = true
	}

	for _, rec := range mortality {
		if rec.ShedID == "" {
			continue
		}
		shed := agg.ByShed[rec.ShedID]
		if shed == nil {
			shed = &ShedMetric{ShedID: rec.ShedID, ShedName: shedNames[rec.ShedID], FarmID: rec.FarmID}
			agg.ByShed[rec.ShedID] = shed
		}
		shed.Mortality += rec.Total()
	}

	for id, shed := range agg.ByShed {
		shed.DaysRecorded = len(shedDays[id])
		if shed.TotalEggs > 0 {
			shed.Efficiency = float64(shed.SellableEggs) / float64(shed.TotalEggs)
		}
	}
}

func (s *Service) rollupAttendance(agg *Aggregate, attendance []models.AttendanceRecord) {
	type tally struct{ present, late, absent int }
	days := map[time.Time]*tally{}

	for _, rec := range attendance {
		date := models.Midnight(rec.Date)
		day := days[date]
		if day == nil {
			day = &tally{}
			days[date] = day
		}

		worker := agg.Workers[rec.WorkerID]
		if worker == nil {
			worker = &WorkerStats{WorkerID: rec.WorkerID, WorkerName: rec.WorkerName}
			agg.Workers[rec.WorkerID] = worker
		}

		switch rec.Status {
		case models.AttendancePresent:
			day.present++
			worker.Present++
		case models.AttendanceLate:
			day.late++
			worker.Late++
		case models.AttendanceAbsent:
			day.absent++
			worker.Absent++
		default:
			s.logger.Debug("skip attendance record with unknown status",
				zap.String("record_id", rec.ID), zap.String("status", string(rec.Status)))
		}
	}

	agg.Attendance = make([]AttendanceDay, 0, len(days))
	for date, day := range days {
		rate, ok := s.policy.Rate(day.present, day.late, day.absent)
		if !ok {
			continue
		}
		agg.Attendance = append(agg.Attendance, AttendanceDay{
			Date:    date,
			Present: day.present,
			Late:    day.late,
			Absent:  day.absent,
			Rate:    rate,
		})
	}
	sort.Slice(agg.Attendance, func(i, j int) bool { return agg.Attendance[i].Date.Before(agg.Attendance[j].Date) })

	for _, worker := range agg.Workers {
		if rate, ok := s.policy.Rate(worker.Present, worker.Late, worker.Absent); ok {
			worker.Rate = rate
		}
	}
}

func (s *Service) rollupShedActivity(agg *Aggregate, production []models.ProductionRecord, sheds []models.Shed) {
	last := map[string]time.Time{}
	for _, rec := range production {
		date := models.Midnight(rec.Date)
		if date.After(last[rec.ShedID]) {
			last[rec.ShedID] = date
		}
	}

	for _, shed := range sheds {
		if !shed.Active {
			continue
		}
		activity := ShedActivity{ShedID: shed.ID, ShedName: shed.Name, FarmID: shed.FarmID}
		if recorded, ok := last[shed.ID]; ok {
			activity.HasData = true
			activity.LastRecorded = recorded
			activity.MissingStreak = int(agg.Range.End.Sub(recorded).Hours() / 24)
		} else {
			activity.MissingStreak = agg.Range.Days()
		}
		agg.Sheds = append(agg.Sheds, activity)
	}
	sort.Slice(agg.Sheds, func(i, j int) bool { return agg.Sheds[i].ShedID < agg.Sheds[j].ShedID })
}

// rollupWeekly groups daily metrics by the active cycle's week numbers.
// Without a usable cycle it falls back to 7-day buckets anchored at the
// range start, flagged CycleAligned=false.
func (s *Service) rollupWeekly(ctx context.Context, agg *Aggregate) error {
	farmID := ""
	switch agg.Scope.Kind {
	case models.ScopeFarm:
		farmID = agg.Scope.ID
	case models.ScopeShed:
		shed, err := s.store.ShedByID(ctx, agg.OrganizationID, agg.Scope.ID)
		if err != nil {
			return err
		}
		farmID = shed.FarmID
	}

	activeCycle, err := s.store.ActiveCycle(ctx, agg.OrganizationID, farmID)
	switch {
	case errors.Is(err, models.ErrNoActiveCycle):
		activeCycle = nil
	case err != nil:
		return fmt.Errorf("load active cycle: %w", err)
	case models.Midnight(activeCycle.StartDate).After(agg.Range.Start):
		// The range reaches back before the cycle began; week numbers would
		// be undefined for the head of the range.
		s.logger.Debug("active cycle starts inside range, using plain week buckets",
			zap.String("cycle_id", activeCycle.ID))
		activeCycle = nil
	}

	weeks := map[int]*WeekMetric{}
	aligned := activeCycle != nil

	for _, day := range agg.Daily {
		var weekNo int
		if aligned {
			weekNo, err = cycle.WeekOf(activeCycle.StartDate, day.Date)
			if err != nil {
				return err
			}
		} else {
			weekNo = int(day.Date.Sub(agg.Range.Start).Hours()/24)/7 + 1
		}

		week := weeks[weekNo]
		if week == nil {
			week = &WeekMetric{Week: weekNo, CycleAligned: aligned}
			if aligned {
				cycleStart := models.Midnight(activeCycle.StartDate)
				week.Start = cycleStart.AddDate(0, 0, (weekNo-1)*7)
			} else {
				week.Start = agg.Range.Start.AddDate(0, 0, (weekNo-1)*7)
			}
			week.End = week.Start.AddDate(0, 0, 6)
			weeks[weekNo] = week
		}
		week.SellableEggs += day.SellableEggs
		week.BrokenEggs += day.BrokenEggs
		week.DamagedEggs += day.DamagedEggs
		week.TotalEggs += day.TotalEggs
		week.Mortality += day.Mortality
		if day.ShedsReported > 0 {
			week.DaysRecorded++
		}
	}

	agg.Weekly = make([]WeekMetric, 0, len(weeks))
	for _, week := range weeks {
		if week.TotalEggs > 0 {
			week.Efficiency = float64(week.SellableEggs) / float64(week.TotalEggs)
		}
		agg.Weekly = append(agg.Weekly, *week)
	}
	sort.Slice(agg.Weekly, func(i, j int) bool { return agg.Weekly[i].Week < agg.Weekly[j].Week })
	return nil
}

func (s *Service) finalizeTotals(agg *Aggregate) {
	t := &agg.Totals
	for _, day := range agg.Daily {
		t.SellableEggs += day.SellableEggs
		t.BrokenEggs += day.BrokenEggs
		t.DamagedEggs += day.DamagedEggs
		t.TotalEggs += day.TotalEggs
		t.Mortality += day.Mortality
		if day.ShedsReported > 0 {
			t.DaysRecorded++
		}
	}
	if t.DaysRecorded > 0 {
		t.AvgDailyEggs = float64(t.TotalEggs) / float64(t.DaysRecorded)
	}
	// Efficiency over days with production only; zero-total days never
	// drag the ratio toward zero.
	if t.TotalEggs > 0 {
		t.Efficiency = float64(t.SellableEggs) / float64(t.TotalEggs)
	}
}
