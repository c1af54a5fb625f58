package models

import "time"

// ScopeKind enumerates the supported aggregation scope variants.
type ScopeKind string

const (
	ScopeAllOrg  ScopeKind = "org"
	ScopeFarm    ScopeKind = "farm"
	ScopeShed    ScopeKind = "shed"
	ScopeManager ScopeKind = "manager"
)

// Scope narrows an aggregation or report to a farm, shed or manager within
// one organization. The zero value is the whole-organization scope.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
}

// OrgScope covers every farm in the organization.
func OrgScope() Scope { return Scope{Kind: ScopeAllOrg} }

// FarmScope narrows to a single farm.
func FarmScope(farmID string) Scope { return Scope{Kind: ScopeFarm, ID: farmID} }

// ShedScope narrows to a single shed.
func ShedScope(shedID string) Scope { return Scope{Kind: ScopeShed, ID: shedID} }

// ManagerScope narrows to the farms managed by one manager.
func ManagerScope(managerID string) Scope { return Scope{Kind: ScopeManager, ID: managerID} }

// IsOrgWide reports whether the scope covers the whole organization.
func (s Scope) IsOrgWide() bool {
	return s.Kind == "" || s.Kind == ScopeAllOrg
}

// DateRange is an inclusive calendar date interval. Both bounds are
// normalized to midnight UTC.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange normalizes both bounds to their date component.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Midnight(start), End: Midnight(end)}
}

// LastNDays builds the inclusive range covering today and the n-1 preceding days.
func LastNDays(now time.Time, n int) DateRange {
	end := Midnight(now)
	return DateRange{Start: end.AddDate(0, 0, -(n - 1)), End: end}
}

// Days returns the number of calendar days in the range, inclusive.
// An inverted range counts as zero days; the aggregator treats it as the
// legal empty range rather than an error.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Contains reports whether the given date falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	d = Midnight(d)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Prior returns the range of equal length immediately preceding this one.
func (r DateRange) Prior() DateRange {
	days := r.Days()
	return DateRange{Start: r.Start.AddDate(0, 0, -days), End: r.Start.AddDate(0, 0, -1)}
}

// Midnight truncates a timestamp to its UTC date.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
