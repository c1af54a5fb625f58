package models

import "time"

// ReportFrequency enumerates recurrence intervals for scheduled reports.
type ReportFrequency string

const (
	FrequencyDaily   ReportFrequency = "daily"
	FrequencyWeekly  ReportFrequency = "weekly"
	FrequencyMonthly ReportFrequency = "monthly"
)

// ReportDefinition is an organization-scoped recurrence rule evaluated on
// every scheduler run. LastOccurrence is the due boundary most recently
// delivered; ClaimedOccurrence marks an occurrence currently being processed
// and is cleared again when processing fails.
type ReportDefinition struct {
	ID                string          `bson:"_id" json:"id"`
	OrganizationID    string          `bson:"organization_id" json:"organization_id"`
	Name              string          `bson:"name" json:"name"`
	ReportType        string          `bson:"report_type" json:"report_type"`
	Frequency         ReportFrequency `bson:"frequency" json:"frequency"`
	AnchorHour        int             `bson:"anchor_hour" json:"anchor_hour"`
	Scope             Scope           `bson:"scope" json:"scope"`
	Recipients        []string        `bson:"recipients" json:"recipients"`
	Active            bool            `bson:"active" json:"active"`
	LastOccurrence    time.Time       `bson:"last_occurrence" json:"last_occurrence"`
	ClaimedOccurrence time.Time       `bson:"claimed_occurrence,omitempty" json:"claimed_occurrence,omitempty"`
	LastError         string          `bson:"last_error,omitempty" json:"last_error,omitempty"`
}

// RangeDays returns how many trailing days one occurrence of this
// definition covers.
func (d ReportDefinition) RangeDays() int {
	switch d.Frequency {
	case FrequencyWeekly:
		return 7
	case FrequencyMonthly:
		return 30
	default:
		return 1
	}
}

// ReportMetadata describes who asked for a report, for what, and when it
// was produced.
type ReportMetadata struct {
	ID               string    `json:"id"`
	ReportType       string    `json:"report_type"`
	OrganizationID   string    `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	Range            DateRange `json:"range"`
	Scope            Scope     `json:"scope"`
	GeneratedAt      time.Time `json:"generated_at"`
	RequestedBy      string    `json:"requested_by,omitempty"`
}

// ProductionDetailRow is one shed-day line in the report's detail table.
type ProductionDetailRow struct {
	Date         time.Time `json:"date"`
	FarmName     string    `json:"farm_name"`
	ShedName     string    `json:"shed_name"`
	SellableEggs int       `json:"sellable_eggs"`
	BrokenEggs   int       `json:"broken_eggs"`
	DamagedEggs  int       `json:"damaged_eggs"`
	TotalEggs    int       `json:"total_eggs"`
	Mortality    int       `json:"mortality"`
}

// FarmBreakdown summarizes one farm inside the production section.
type FarmBreakdown struct {
	FarmID       string  `json:"farm_id"`
	FarmName     string  `json:"farm_name"`
	SellableEggs int     `json:"sellable_eggs"`
	TotalEggs    int     `json:"total_eggs"`
	Mortality    int     `json:"mortality"`
	DaysRecorded int     `json:"days_recorded"`
	Efficiency   float64 `json:"efficiency"`
}

// ProductionSection aggregates egg output for the report range.
type ProductionSection struct {
	SellableEggs int                   `json:"sellable_eggs"`
	BrokenEggs   int                   `json:"broken_eggs"`
	DamagedEggs  int                   `json:"damaged_eggs"`
	TotalEggs    int                   `json:"total_eggs"`
	Mortality    int                   `json:"mortality"`
	DaysRecorded int                   `json:"days_recorded"`
	Efficiency   float64               `json:"efficiency"`
	ByFarm       []FarmBreakdown       `json:"by_farm"`
	Details      []ProductionDetailRow `json:"details"`
}

// WorkerBreakdown summarizes one worker inside the attendance section.
type WorkerBreakdown struct {
	WorkerID   string  `json:"worker_id"`
	WorkerName string  `json:"worker_name,omitempty"`
	Present    int     `json:"present"`
	Late       int     `json:"late"`
	Absent     int     `json:"absent"`
	Rate       float64 `json:"rate"`
}

// AttendanceSection aggregates workforce attendance for the report range.
type AttendanceSection struct {
	Present     int               `json:"present"`
	Late        int               `json:"late"`
	Absent      int               `json:"absent"`
	AverageRate float64           `json:"average_rate"`
	ByWorker    []WorkerBreakdown `json:"by_worker"`
}

// ComprehensiveReport is the compiler's immutable output, consumed by the
// delivery and export collaborators.
type ComprehensiveReport struct {
	Metadata   ReportMetadata    `json:"metadata"`
	Production ProductionSection `json:"production"`
	Attendance AttendanceSection `json:"attendance"`
	Insights   []string          `json:"insights"`
	Alerts     []Alert           `json:"alerts"`
	Note       string            `json:"note,omitempty"`
}
