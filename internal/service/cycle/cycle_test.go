package cycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/coopmetrics/internal/domain/models"
	"github.com/mamadbah2/coopmetrics/internal/service/cycle"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve_StartDateIsWeekOneDayOne(t *testing.T) {
	pos, err := cycle.Resolve(date(2024, 1, 1), date(2024, 1, 1), 0)
	require.NoError(t, err)
	require.Equal(t, 1, pos.Week)
	require.Equal(t, 1, pos.DayOfWeek)
	require.Equal(t, 0, pos.DaysElapsed)
	require.Nil(t, pos.DaysRemaining)
}

func TestResolve_NinthDayLandsInWeekTwo(t *testing.T) {
	pos, err := cycle.Resolve(date(2024, 1, 1), date(2024, 1, 10), 0)
	require.NoError(t, err)
	require.Equal(t, 2, pos.Week)
	require.Equal(t, 3, pos.DayOfWeek)
	require.Equal(t, 9, pos.DaysElapsed)
}

func TestResolve_WeekArithmeticHoldsAcrossTwoYears(t *testing.T) {
	start := date(2023, 3, 15)
	for elapsed := 0; elapsed < 730; elapsed++ {
		pos, err := cycle.Resolve(start, start.AddDate(0, 0, elapsed), 0)
		require.NoError(t, err)
		require.Equal(t, elapsed/7+1, pos.Week, "elapsed %d", elapsed)
		require.Equal(t, elapsed%7+1, pos.DayOfWeek, "elapsed %d", elapsed)
		require.GreaterOrEqual(t, pos.DayOfWeek, 1)
		require.LessOrEqual(t, pos.DayOfWeek, 7)
	}
}

func TestResolve_TargetBeforeStartFails(t *testing.T) {
	_, err := cycle.Resolve(date(2024, 1, 10), date(2024, 1, 9), 0)
	require.ErrorIs(t, err, models.ErrInvalidCycleDate)
}

func TestResolve_DaysRemainingFloorsAtZero(t *testing.T) {
	pos, err := cycle.Resolve(date(2024, 1, 1), date(2024, 1, 31), 14)
	require.NoError(t, err)
	require.NotNil(t, pos.DaysRemaining)
	require.Equal(t, 0, *pos.DaysRemaining)

	pos, err = cycle.Resolve(date(2024, 1, 1), date(2024, 1, 5), 14)
	require.NoError(t, err)
	require.Equal(t, 10, *pos.DaysRemaining)
}

func TestResolve_NormalizesTimestampsToDates(t *testing.T) {
	start := time.Date(2024, 1, 1, 23, 45, 0, 0, time.UTC)
	target := time.Date(2024, 1, 2, 0, 15, 0, 0, time.UTC)
	pos, err := cycle.Resolve(start, target, 0)
	require.NoError(t, err)
	require.Equal(t, 1, pos.DaysElapsed)
}

func TestForCycle_NilCycleReturnsSentinel(t *testing.T) {
	_, err := cycle.ForCycle(nil, date(2024, 1, 1))
	require.ErrorIs(t, err, models.ErrNoActiveCycle)
}
