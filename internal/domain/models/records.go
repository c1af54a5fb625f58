package models

import "time"

// ProductionRecord captures one shed's daily egg and flock counts.
// At most one record exists per shed per date.
type ProductionRecord struct {
	ID             string    `bson:"_id" json:"id"`
	OrganizationID string    `bson:"organization_id" json:"organization_id"`
	FarmID         string    `bson:"farm_id" json:"farm_id"`
	ShedID         string    `bson:"shed_id" json:"shed_id"`
	Date           time.Time `bson:"date" json:"date"`
	SellableEggs   int       `bson:"sellable_eggs" json:"sellable_eggs"`
	BrokenEggs     int       `bson:"broken_eggs" json:"broken_eggs"`
	DamagedEggs    int       `bson:"damaged_eggs" json:"damaged_eggs"`
	OpenMale       int       `bson:"open_male" json:"open_male"`
	OpenFemale     int       `bson:"open_female" json:"open_female"`
	CloseMale      int       `bson:"close_male" json:"close_male"`
	CloseFemale    int       `bson:"close_female" json:"close_female"`
}

// TotalEggs sums every egg category for the day.
func (r ProductionRecord) TotalEggs() int {
	return r.SellableEggs + r.BrokenEggs + r.DamagedEggs
}

// OpenFlock is the shed's flock size at the start of the day.
func (r ProductionRecord) OpenFlock() int {
	return r.OpenMale + r.OpenFemale
}

// MortalityRecord captures deaths for a shed (or farm-level when ShedID is
// empty) on one date, optionally linked to that date's production record.
type MortalityRecord struct {
	ID                 string    `bson:"_id" json:"id"`
	OrganizationID     string    `bson:"organization_id" json:"organization_id"`
	FarmID             string    `bson:"farm_id" json:"farm_id"`
	ShedID             string    `bson:"shed_id,omitempty" json:"shed_id,omitempty"`
	Date               time.Time `bson:"date" json:"date"`
	MaleDeaths         int       `bson:"male_deaths" json:"male_deaths"`
	FemaleDeaths       int       `bson:"female_deaths" json:"female_deaths"`
	ProductionRecordID string    `bson:"production_record_id,omitempty" json:"production_record_id,omitempty"`
}

// Total returns the combined death count.
func (r MortalityRecord) Total() int {
	return r.MaleDeaths + r.FemaleDeaths
}

// AttendanceStatus enumerates worker attendance states.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// AttendanceRecord captures one worker's attendance for one farm and date.
type AttendanceRecord struct {
	ID             string           `bson:"_id" json:"id"`
	OrganizationID string           `bson:"organization_id" json:"organization_id"`
	FarmID         string           `bson:"farm_id" json:"farm_id"`
	WorkerID       string           `bson:"worker_id" json:"worker_id"`
	WorkerName     string           `bson:"worker_name,omitempty" json:"worker_name,omitempty"`
	Date           time.Time        `bson:"date" json:"date"`
	Status         AttendanceStatus `bson:"status" json:"status"`
}
