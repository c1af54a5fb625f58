package analytics_test

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
)

func testConfig() config.AnalyticsConfig {
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

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seededStore() *memory.Store {
	store := memory.New()
	store.Organizations = []models.Organization{{ID: "org1", Name: "Sunrise Poultry"}}
	store.Farms = []models.Farm{
		{ID: "farm1", OrganizationID: "org1", Name: "North Farm", ManagerID: "mgr1"},
	}
	store.Sheds = []models.Shed{
		{ID: "shed1", OrganizationID: "org1", FarmID: "farm1", Name: "Shed A", Capacity: 2000, Active: true},
		{ID: "shed2", OrganizationID: "org1", FarmID: "farm1", Name: "Shed B", Capacity: 2000, Active: true},
	}
	return store
}

func production(shed string, day time.Time, sellable, broken int) models.ProductionRecord {
	return models.ProductionRecord{
		ID:             fmt.Sprintf("%s-%s", shed, day.Format("20060102")),
		OrganizationID: "org1",
		FarmID:         "farm1",
		ShedID:         shed,
		Date:           day,
		SellableEggs:   sellable,
		BrokenEggs:     broken,
		OpenFemale:     1000,
	}
}

func TestAggregate_EfficiencyExcludesZeroTotalDays(t *testing.T) {
	store := seededStore()
	store.Production = []models.ProductionRecord{
		production("shed1", date(2024, 2, 1), 0, 0),
		production("shed1", date(2024, 2, 2), 8, 2),
	}
	svc := analytics.NewService(store, testConfig(), nil)

	agg, err := svc.Aggregate(context.Background(), "org1", models.OrgScope(),
		models.NewDateRange(date(2024, 2, 1), date(2024, 2, 2)))
	require.NoError(t, err)
	require.Equal(t, 2, agg.Totals.DaysRecorded)
	require.InDelta(t, 0.8, agg.Totals.Efficiency, 1e-9)
}

func TestAggregate_PartialWeekEfficiencyAndDaysRecorded(t *testing.T) {
	store := seededStore()
	store.Cycles = []models.FlockCycle{
		{ID: "cyc1", OrganizationID: "org1", FarmID: "farm1", StartDate: date(2024, 3, 4), Active: true},
	}
	// Records on 5 of the 7 cycle-week days: 700 sellable, 800 total.
	for i := 0; i < 5; i++ {
		store.Production = append(store.Production,
			production("shed1", date(2024, 3, 4).AddDate(0, 0, i), 140, 20))
	}
	svc := analytics.NewService(store, testConfig(), nil)

	agg, err := svc.Aggregate(context.Background(), "org1", models.FarmScope("farm1"),
		models.NewDateRange(date(2024, 3, 4), date(2024, 3, 10)))
	require.NoError(t, err)
	require.Len(t, agg.Weekly, 1)

	week := agg.Weekly[0]
	require.True(t, week.CycleAligned)
	require.Equal(t, 1, week.Week)
	require.Equal(t, 5, week.DaysRecorded)
	require.Equal(t, 800, week.TotalEggs)
	require.InDelta(t, 0.875, week.Efficiency, 1e-9)
}

func TestAggregate_WeeklySumsEqualDailySums(t *testing.T) {
	store := seededStore()
	store.Cycles = []models.FlockCycle{
		{ID: "cyc1", OrganizationID: "org1", StartDate: date(2024, 1, 1), Active: true},
	}
	for i := 0; i < 14; i++ {
		store.Production = append(store.Production,
			production("shed1", date(2024, 1, 1).AddDate(0, 0, i), 100+i, i))
	}
	svc := analytics.NewService(store, testConfig(), nil)

	agg, err := svc.Aggregate(context.Background(), "org1", models.OrgScope(),
		models.NewDateRange(date(2024, 1, 1), date(2024, 1, 14)))
	require.NoError(t, err)
	require.Len(t, agg.Weekly, 2)

	weekTotals := map[int]int{}
	for _, day := range agg.Daily {
		elapsed := int(day.Date.Sub(date(2024, 1, 1)).Hours() / 24)
		weekTotals[elapsed/7+1] += day.TotalEggs
	}
	for _, week := range agg.Weekly {
		require.Equal(t, weekTotals[week.Week], week.TotalEggs, "week %d", week.Week)
	}
}

func TestAggregate_EmptyRangeYieldsEmptyCollectionsNotError(t *testing.T) {
	store := seededStore()
	svc := analytics.NewService(store, testConfig(), nil)

	agg, err := svc.Aggregate(context.Background(), "org1", models.OrgScope(),
		models.DateRange{Start: date(2024, 5, 10), End: date(2024, 5, 1)})
	require.NoError(t, err)
	require.Empty(t, agg.Daily)
	require.Empty(t, agg.Weekly)
	require.Zero(t, agg.Totals.TotalEggs)
}

func TestAggregate_RangeBeyondCapRejected(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRangeDays = 30
	svc := analytics.NewService(seededStore(), cfg, nil)

	_, err := svc.Aggregate(context.Background(), "org1", models.OrgScope(),
		models.NewDateRange(date(2024, 1, 1), date(2024, 3, 1)))
	require.ErrorIs(t, err, models.ErrRangeTooLarge)
}

func TestAggregate_LateCreditPolicyIsApplied(t *testing.T) {
	store := seededStore()
	day := date(2024, 4, 1)
	store.Attendance = []models.AttendanceRecord{
		{ID: "a1", OrganizationID: "org1", FarmID: "farm1", WorkerID: "w1", Date: day, Status: models.AttendancePresent},
		{ID: "a2", OrganizationID: "org1", FarmID: "farm1", WorkerID: "w2", Date: day, Status: models.AttendanceLate},
		{ID: "a3", OrganizationID: "org1", FarmID: "farm1", WorkerID: "w3", Date: day, Status: models.AttendanceAbsent},
	}
	rng := models.NewDateRange(day, day)

	// Default policy: late counts as present.
	svc := analytics.NewService(store, testConfig(), nil)
	agg, err := svc.Aggregate(context.Background(), "org1", models.OrgScope(), rng)
	require.NoError(t, err)
	require.Len(t, agg.Attendance, 1)
	require.InDelta(t, 2.0/3.0, agg.Attendance[0].Rate, 1e-9)

	// Half credit for late arrivals.
	cfg := testConfig()
	cfg.LateCredit = 0.5
	svc = analytics.NewService(store, cfg, nil)
	agg, err = svc.Aggregate(context.Background(), "org1", models.OrgScope(), rng)
	require.NoError(t, err)
	require.InDelta(t, 0.5, agg.Attendance[0].Rate, 1e-9)
}

func TestAggregate_ScopeOutsideOrganizationRejected(t *testing.T) {
	store := seededStore()
	store.Farms = append(store.Farms, models.Farm{ID: "farm9", OrganizationID: "org2", Name: "Other"})
	svc := analytics.NewService(store, testConfig(), nil)
	rng := models.NewDateRange(date(2024, 1, 1), date(2024, 1, 7))

	_, err := svc.Aggregate(context.Background(), "org1", models.FarmScope("farm9"), rng)
	require.ErrorIs(t, err, models.ErrInvalidScope)

	_, err = svc.Aggregate(context.Background(), "org1", models.ShedScope("no-such-shed"), rng)
	require.ErrorIs(t, err, models.ErrInvalidScope)

	_, err = svc.Aggregate(context.Background(), "org1", models.ManagerScope("mgr-unknown"), rng)
	require.ErrorIs(t, err, models.ErrInvalidScope)
}

func TestAggregate_NeverLeaksAcrossTenants(t *testing.T) {
	store := seededStore()
	store.Organizations = append(store.Organizations, models.Organization{ID: "org2", Name: "Rival"})
	store.Farms = append(store.Farms, models.Farm{ID: "farm2", OrganizationID: "org2", Name: "South"})
	store.Production = []models.ProductionRecord{
		production("shed1", date(2024, 6, 1), 100, 10),
		{ID: "p-org2", OrganizationID: "org2", FarmID: "farm2", ShedID: "shed9",
			Date: date(2024, 6, 1), SellableEggs: 9999},
	}
	svc := analytics.NewService(store, testConfig(), nil)

	agg, err := svc.Aggregate(context.Background(), "org1", models.OrgScope(),
		models.NewDateRange(date(2024, 6, 1), date(2024, 6, 1)))
	require.NoError(t, err)
	require.Equal(t, 110, agg.Totals.TotalEggs)
	require.NotContains(t, agg.ByFarm, "farm2")
}

func TestAggregate_FallbackWeeksWhenNoCycleActive(t *testing.T) {
	store := seededStore()
	for i := 0; i < 10; i++ {
		store.Production = append(store.Production,
			production("shed1", date(2024, 7, 1).AddDate(0, 0, i), 100, 0))
	}
	svc := analytics.NewService(store, testConfig(), nil)

	agg, err := svc.Aggregate(context.Background(), "org1", models.OrgScope(),
		models.NewDateRange(date(2024, 7, 1), date(2024, 7, 10)))
	require.NoError(t, err)
	require.Len(t, agg.Weekly, 2)
	for _, week := range agg.Weekly {
		require.False(t, week.CycleAligned)
	}
	require.Equal(t, date(2024, 7, 1), agg.Weekly[0].Start)
	require.Equal(t, 7, agg.Weekly[0].DaysRecorded)
	require.Equal(t, 3, agg.Weekly[1].DaysRecorded)
}
