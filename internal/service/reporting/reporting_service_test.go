package reporting_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/coopmetrics/internal/config"
	"github.com/mamadbah2/coopmetrics/internal/domain/models"
	"github.com/mamadbah2/coopmetrics/internal/repository/memory"
	"github.com/mamadbah2/coopmetrics/internal/service/analytics"
	"github.com/mamadbah2/coopmetrics/internal/service/reporting"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func analyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		ProductionDropFactor: 0.85,
		MortalityAbsolute:    20,
		MortalityFlockPct:    0.02,
		AttendanceRateMin:    0.7,
		StaleDays:            2,
		LateCredit:           1.0,
		MaxRangeDays:         730,
	}
}

func newService(store *memory.Store) *reporting.Service {
	analyticsSvc := analytics.NewService(store, analyticsConfig(), nil)
	return reporting.NewService(store, analyticsSvc, nil)
}

func seededStore() *memory.Store {
	store := memory.New()
	store.Organizations = []models.Organization{{ID: "org1", Name: "Sunrise Poultry"}}
	store.Farms = []models.Farm{{ID: "farm1", OrganizationID: "org1", Name: "North Farm"}}
	store.Sheds = []models.Shed{
		{ID: "shed1", OrganizationID: "org1", FarmID: "farm1", Name: "Shed A", Active: true},
	}
	return store
}

func addProduction(store *memory.Store, day time.Time, sellable, broken int) {
	store.Production = append(store.Production, models.ProductionRecord{
		ID:             fmt.Sprintf("p-%s", day.Format("20060102")),
		OrganizationID: "org1",
		FarmID:         "farm1",
		ShedID:         "shed1",
		Date:           day,
		SellableEggs:   sellable,
		BrokenEggs:     broken,
		OpenFemale:     500,
	})
}

func TestCompile_IsIdempotentModuloTimestamp(t *testing.T) {
	store := seededStore()
	for i := 0; i < 7; i++ {
		addProduction(store, date(2024, 5, 1).AddDate(0, 0, i), 120, 10)
	}
	store.Mortality = []models.MortalityRecord{
		{ID: "m1", OrganizationID: "org1", FarmID: "farm1", ShedID: "shed1",
			Date: date(2024, 5, 3), MaleDeaths: 1, FemaleDeaths: 2},
	}
	svc := newService(store)
	rng := models.NewDateRange(date(2024, 5, 1), date(2024, 5, 7))

	first, err := svc.Compile(context.Background(), "org1", "weekly", rng, models.OrgScope(), "tester")
	require.NoError(t, err)
	second, err := svc.Compile(context.Background(), "org1", "weekly", rng, models.OrgScope(), "tester")
	require.NoError(t, err)

	require.NotEqual(t, first.Metadata.ID, second.Metadata.ID)
	require.Equal(t, first.Production, second.Production)
	require.Equal(t, first.Attendance, second.Attendance)
	require.Equal(t, first.Insights, second.Insights)
	require.Equal(t, first.Alerts, second.Alerts)
}

func TestCompile_EmptyRangeReturnsZeroedReportNotError(t *testing.T) {
	svc := newService(seededStore())

	report, err := svc.Compile(context.Background(), "org1", "daily",
		models.NewDateRange(date(2024, 8, 1), date(2024, 8, 7)), models.OrgScope(), "")
	require.NoError(t, err)
	require.Zero(t, report.Production.TotalEggs)
	require.Empty(t, report.Production.Details)
	require.NotEmpty(t, report.Note)
}

func TestCompile_PopulatesSectionsAndDetails(t *testing.T) {
	store := seededStore()
	addProduction(store, date(2024, 5, 1), 120, 10)
	addProduction(store, date(2024, 5, 2), 110, 5)
	store.Mortality = []models.MortalityRecord{
		{ID: "m1", OrganizationID: "org1", FarmID: "farm1", ShedID: "shed1",
			Date: date(2024, 5, 2), FemaleDeaths: 4},
	}
	store.Attendance = []models.AttendanceRecord{
		{ID: "a1", OrganizationID: "org1", FarmID: "farm1", WorkerID: "w1",
			WorkerName: "Ana", Date: date(2024, 5, 1), Status: models.AttendancePresent},
		{ID: "a2", OrganizationID: "org1", FarmID: "farm1", WorkerID: "w2",
			WorkerName: "Ben", Date: date(2024, 5, 1), Status: models.AttendanceAbsent},
	}
	svc := newService(store)

	report, err := svc.Compile(context.Background(), "org1", "weekly",
		models.NewDateRange(date(2024, 5, 1), date(2024, 5, 7)), models.OrgScope(), "manager@farm")
	require.NoError(t, err)

	require.Equal(t, "Sunrise Poultry", report.Metadata.OrganizationName)
	require.Equal(t, 245, report.Production.TotalEggs)
	require.Equal(t, 4, report.Production.Mortality)
	require.Len(t, report.Production.ByFarm, 1)
	require.Len(t, report.Production.Details, 2)
	require.Equal(t, 4, report.Production.Details[1].Mortality)
	require.Equal(t, 1, report.Attendance.Present)
	require.Len(t, report.Attendance.ByWorker, 2)
	require.Empty(t, report.Note)
}

func TestCompile_UnknownOrganizationRejected(t *testing.T) {
	svc := newService(seededStore())
	_, err := svc.Compile(context.Background(), "org-x", "daily",
		models.NewDateRange(date(2024, 5, 1), date(2024, 5, 2)), models.OrgScope(), "")
	require.ErrorIs(t, err, models.ErrInvalidScope)
}

func TestCompile_InsightsCompareAgainstPriorPeriod(t *testing.T) {
	store := seededStore()
	// Prior week: 700 eggs; current week: 770.
	for i := 0; i < 7; i++ {
		addProduction(store, date(2024, 5, 1).AddDate(0, 0, i), 100, 0)
		addProduction(store, date(2024, 5, 8).AddDate(0, 0, i), 110, 0)
	}
	svc := newService(store)

	report, err := svc.Compile(context.Background(), "org1", "weekly",
		models.NewDateRange(date(2024, 5, 8), date(2024, 5, 14)), models.OrgScope(), "")
	require.NoError(t, err)
	require.NotEmpty(t, report.Insights)
	require.Contains(t, report.Insights[0], "up 10.0%")
}

func TestGetWeeklyProductionSummary_OmitsWeeksWithoutData(t *testing.T) {
	store := seededStore()
	store.Cycles = []models.FlockCycle{
		{ID: "cyc1", OrganizationID: "org1", StartDate: date(2024, 1, 1), Active: true},
	}
	asOf := date(2024, 3, 24)
	// Only the last 3 weeks have any records.
	for i := 0; i < 21; i++ {
		addProduction(store, date(2024, 3, 4).AddDate(0, 0, i), 100, 0)
	}
	svc := newService(store)

	weeks, err := svc.GetWeeklyProductionSummary(context.Background(), "org1", 12, asOf)
	require.NoError(t, err)
	require.Len(t, weeks, 3)
	for _, week := range weeks {
		require.Positive(t, week.TotalEggs)
		require.True(t, week.CycleAligned)
	}
}

func TestGetCurrentWeekStatus_ResolvesActiveCycle(t *testing.T) {
	store := seededStore()
	store.Cycles = []models.FlockCycle{
		{ID: "cyc1", OrganizationID: "org1", Name: "Batch 7", StartDate: date(2024, 1, 1), Active: true},
	}
	svc := newService(store)

	status, err := svc.GetCurrentWeekStatus(context.Background(), "org1", "", date(2024, 1, 10))
	require.NoError(t, err)
	require.Equal(t, "cyc1", status.CycleID)
	require.Equal(t, 2, status.Position.Week)
	require.Equal(t, 3, status.Position.DayOfWeek)
	require.Equal(t, 9, status.Position.DaysElapsed)
}

func TestGetCurrentWeekStatus_NoCycleSurfacesSentinel(t *testing.T) {
	svc := newService(seededStore())
	_, err := svc.GetCurrentWeekStatus(context.Background(), "org1", "", date(2024, 1, 10))
	require.ErrorIs(t, err, models.ErrNoActiveCycle)
}

func TestGetDashboardStats_SummarizesWindow(t *testing.T) {
	store := seededStore()
	asOf := date(2024, 6, 30)
	for i := 0; i < 5; i++ {
		addProduction(store, asOf.AddDate(0, 0, -i), 100, 25)
	}
	svc := newService(store)

	stats, err := svc.GetDashboardStats(context.Background(), "org1", 7, asOf)
	require.NoError(t, err)
	require.Equal(t, 625, stats.Totals.TotalEggs)
	require.Equal(t, 5, stats.Totals.DaysRecorded)
	require.InDelta(t, 0.8, stats.Totals.Efficiency, 1e-9)
	require.Equal(t, 1, stats.ActiveSheds)
}

func TestGetShedPerformance_RollsUpPerShed(t *testing.T) {
	store := seededStore()
	store.Sheds = append(store.Sheds, models.Shed{
		ID: "shed2", OrganizationID: "org1", FarmID: "farm1", Name: "Shed B", Active: true,
	})
	asOf := date(2024, 6, 30)
	addProduction(store, asOf, 100, 0)
	store.Production = append(store.Production, models.ProductionRecord{
		ID: "p2", OrganizationID: "org1", FarmID: "farm1", ShedID: "shed2",
		Date: asOf, SellableEggs: 60, BrokenEggs: 20,
	})
	svc := newService(store)

	sheds, err := svc.GetShedPerformance(context.Background(), "org1", 7, asOf)
	require.NoError(t, err)
	require.Len(t, sheds, 2)
	require.Equal(t, "shed1", sheds[0].ShedID)
	require.InDelta(t, 0.75, sheds[1].Efficiency, 1e-9)
}
