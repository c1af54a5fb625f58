package models

import "time"

// AlertKind identifies the anomaly class an alert reports.
type AlertKind string

const (
	AlertProductionDrop      AlertKind = "production_drop"
	AlertMortalitySpike      AlertKind = "mortality_spike"
	AlertAttendanceShortfall AlertKind = "attendance_shortfall"
	AlertStaleData           AlertKind = "stale_data"
)

// AlertSeverity ranks alerts for display ordering.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityWarning  AlertSeverity = "warning"
	SeverityInfo     AlertSeverity = "info"
)

// Rank maps severity to a sortable weight, highest first.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Alert is a transient classification of an aggregated metric anomaly.
// It carries enough context to act on without re-querying the store.
type Alert struct {
	Kind           AlertKind     `json:"kind"`
	Severity       AlertSeverity `json:"severity"`
	OrganizationID string        `json:"organization_id"`
	ScopeKind      ScopeKind     `json:"scope_kind"`
	ScopeID        string        `json:"scope_id,omitempty"`
	Date           time.Time     `json:"date"`
	Metric         float64       `json:"metric"`
	Threshold      float64       `json:"threshold"`
	Message        string        `json:"message"`
}
