package repository

import (
	"context"
	"time"

	"github.com/mamadbah2/coopmetrics/internal/domain/models"
)

// Store is the read interface the analytics core consumes, plus the
// scheduler's occurrence bookkeeping. Every finder carries the organization
// id; implementations must apply it on every query path.
type Store interface {
	OrganizationByID(ctx context.Context, orgID string) (*models.Organization, error)

	FarmsByOrg(ctx context.Context, orgID string) ([]models.Farm, error)
	FarmByID(ctx context.Context, orgID, farmID string) (*models.Farm, error)
	ShedByID(ctx context.Context, orgID, shedID string) (*models.Shed, error)
	ShedsByScope(ctx context.Context, orgID string, scope models.Scope) ([]models.Shed, error)

	// ActiveCycle returns the active flock cycle for a farm, falling back to
	// the organization-wide default. ErrNoActiveCycle when neither exists.
	ActiveCycle(ctx context.Context, orgID, farmID string) (*models.FlockCycle, error)

	ProductionRecords(ctx context.Context, orgID string, scope models.Scope, rng models.DateRange) ([]models.ProductionRecord, error)
	MortalityRecords(ctx context.Context, orgID string, scope models.Scope, rng models.DateRange) ([]models.MortalityRecord, error)
	AttendanceRecords(ctx context.Context, orgID string, scope models.Scope, rng models.DateRange) ([]models.AttendanceRecord, error)

	ActiveReportDefinitions(ctx context.Context) ([]models.ReportDefinition, error)

	// ClaimOccurrence atomically marks one due occurrence as processing.
	// The claim succeeds only when the definition's last delivered occurrence
	// still equals prev and due is not already claimed; otherwise
	// ErrClaimConflict is returned and the caller skips the occurrence.
	ClaimOccurrence(ctx context.Context, defID string, prev, due time.Time) error

	// MarkDelivered advances the last delivered occurrence marker.
	MarkDelivered(ctx context.Context, defID string, due time.Time) error

	// MarkFailed records the failure cause and releases the claim so the
	// next scheduler run retries the occurrence.
	MarkFailed(ctx context.Context, defID string, due time.Time, cause string) error
}
