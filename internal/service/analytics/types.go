package analytics

import (
	"time"

	"github.com/mamadbah2/coopmetrics/internal/config"
	"github.com/mamadbah2/coopmetrics/internal/domain/models"
)

// DayMetric rolls up one recorded day across the scope's sheds. Days with
// no production record do not appear at all; callers must not read an
// absent day as zero production.
type DayMetric struct {
	Date          time.Time `json:"date"`
	SellableEggs  int       `json:"sellable_eggs"`
	BrokenEggs    int       `json:"broken_eggs"`
	DamagedEggs   int       `json:"damaged_eggs"`
	TotalEggs     int       `json:"total_eggs"`
	Mortality     int       `json:"mortality"`
	FlockOpen     int       `json:"flock_open"`
	ShedsReported int       `json:"sheds_reported"`
	Efficiency    float64   `json:"efficiency"`
}

// WeekMetric groups daily metrics by cycle week. CycleAligned is false when
// no active cycle covered the range and plain 7-day buckets from the range
// start were used instead.
type WeekMetric struct {
	Week         int       `json:"week"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	CycleAligned bool      `json:"cycle_aligned"`
	SellableEggs int       `json:"sellable_eggs"`
	BrokenEggs   int       `json:"broken_eggs"`
	DamagedEggs  int       `json:"damaged_eggs"`
	TotalEggs    int       `json:"total_eggs"`
	Mortality    int       `json:"mortality"`
	DaysRecorded int       `json:"days_recorded"`
	Efficiency   float64   `json:"efficiency"`
}

// FarmMetric rolls up one farm for the whole range.
type FarmMetric struct {
	FarmID       string  `json:"farm_id"`
	FarmName     string  `json:"farm_name"`
	SellableEggs int     `json:"sellable_eggs"`
	BrokenEggs   int     `json:"broken_eggs"`
	DamagedEggs  int     `json:"damaged_eggs"`
	TotalEggs    int     `json:"total_eggs"`
	Mortality    int     `json:"mortality"`
	DaysRecorded int     `json:"days_recorded"`
	Efficiency   float64 `json:"efficiency"`
}

// ShedMetric rolls up one shed for the whole range.
type ShedMetric struct {
	ShedID       string  `json:"shed_id"`
	ShedName     string  `json:"shed_name"`
	FarmID       string  `json:"farm_id"`
	SellableEggs int     `json:"sellable_eggs"`
	BrokenEggs   int     `json:"broken_eggs"`
	DamagedEggs  int     `json:"damaged_eggs"`
	TotalEggs    int     `json:"total_eggs"`
	Mortality    int     `json:"mortality"`
	DaysRecorded int     `json:"days_recorded"`
	Efficiency   float64 `json:"efficiency"`
}

// AttendanceDay is one day's workforce tally with the policy-adjusted rate.
type AttendanceDay struct {
	Date    time.Time `json:"date"`
	Present int       `json:"present"`
	Late    int       `json:"late"`
	Absent  int       `json:"absent"`
	Rate    float64   `json:"rate"`
}

// WorkerStats tallies one worker across the range.
type WorkerStats struct {
	WorkerID   string  `json:"worker_id"`
	WorkerName string  `json:"worker_name,omitempty"`
	Present    int     `json:"present"`
	Late       int     `json:"late"`
	Absent     int     `json:"absent"`
	Rate       float64 `json:"rate"`
}

// ShedActivity tracks how recently each shed in scope reported production.
// MissingStreak counts consecutive days without a record at the range end.
type ShedActivity struct {
	ShedID        string    `json:"shed_id"`
	ShedName      string    `json:"shed_name"`
	FarmID        string    `json:"farm_id"`
	LastRecorded  time.Time `json:"last_recorded,omitempty"`
	HasData       bool      `json:"has_data"`
	MissingStreak int       `json:"missing_streak"`
}

// Totals summarizes the whole range. DaysRecorded counts only days with at
// least one production record; averages divide by it, never by the range
// length.
type Totals struct {
	SellableEggs int     `json:"sellable_eggs"`
	BrokenEggs   int     `json:"broken_eggs"`
	DamagedEggs  int     `json:"damaged_eggs"`
	TotalEggs    int     `json:"total_eggs"`
	Mortality    int     `json:"mortality"`
	DaysRecorded int     `json:"days_recorded"`
	AvgDailyEggs float64 `json:"avg_daily_eggs"`
	Efficiency   float64 `json:"efficiency"`
}

// Aggregate is the aggregator's full output for one organization, scope and
// range. It is a read-only snapshot; the classifier and compiler consume it
// without touching the store again.
type Aggregate struct {
	OrganizationID string                  `json:"organization_id"`
	Scope          models.Scope            `json:"scope"`
	Range          models.DateRange        `json:"range"`
	Daily          []DayMetric             `json:"daily"`
	Weekly         []WeekMetric            `json:"weekly"`
	ByFarm         map[string]*FarmMetric  `json:"by_farm"`
	ByShed         map[string]*ShedMetric  `json:"by_shed"`
	Attendance     []AttendanceDay         `json:"attendance"`
	Workers        map[string]*WorkerStats `json:"workers"`
	Sheds          []ShedActivity          `json:"sheds"`
	Totals         Totals                  `json:"totals"`
}

// AttendancePolicy decides how much a late worker counts toward the daily
// attendance rate. The default credits late as present; the policy is
// applied in exactly one place so every endpoint agrees.
type AttendancePolicy struct {
	LateCredit float64
}

// Rate computes (present + credit*late) / (present + late + absent).
// ok is false when the day has no attendance records at all.
func (p AttendancePolicy) Rate(present, late, absent int) (rate float64, ok bool) {
	total := present + late + absent
	if total == 0 {
		return 0, false
	}
	return (float64(present) + p.LateCredit*float64(late)) / float64(total), true
}

// Thresholds carries the alert classification knobs.
type Thresholds struct {
	ProductionDropFactor float64
	MortalityAbsolute    int
	MortalityFlockPct    float64
	AttendanceRateMin    float64
	StaleDays            int
}

// ThresholdsFromConfig lifts the configured analytics section into
// classifier thresholds.
func ThresholdsFromConfig(cfg config.AnalyticsConfig) Thresholds {
	return Thresholds{
		ProductionDropFactor: cfg.ProductionDropFactor,
		MortalityAbsolute:    cfg.MortalityAbsolute,
		MortalityFlockPct:    cfg.MortalityFlockPct,
		AttendanceRateMin:    cfg.AttendanceRateMin,
		StaleDays:            cfg.StaleDays,
	}
}
