// Package memory provides an in-memory Store used by service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mamadbah2/coopmetrics/internal/domain/models"
	"github.com/mamadbah2/coopmetrics/internal/repository"
)

// Store holds all records in memory, filtering the same way the MongoDB
// implementation does. Safe for concurrent use.
type Store struct {
	mu sync.Mutex

	Organizations []models.Organization
	Farms         []models.Farm
	Sheds         []models.Shed
	Cycles        []models.FlockCycle
	Production    []models.ProductionRecord
	Mortality     []models.MortalityRecord
	Attendance    []models.AttendanceRecord
	Definitions   []models.ReportDefinition
}

var _ repository.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{}
}

func (s *Store) OrganizationByID(_ context.Context, orgID string) (*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Organizations {
		if s.Organizations[i].ID == orgID {
			org := s.Organizations[i]
			return &org, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) FarmsByOrg(_ context.Context, orgID string) ([]models.Farm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var farms []models.Farm
	for _, f := range s.Farms {
		if f.OrganizationID == orgID {
			farms = append(farms, f)
		}
	}
	return farms, nil
}

func (s *Store) FarmByID(_ context.Context, orgID, farmID string) (*models.Farm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Farms {
		if s.Farms[i].ID == farmID && s.Farms[i].OrganizationID == orgID {
			farm := s.Farms[i]
			return &farm, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ShedByID(_ context.Context, orgID, shedID string) (*models.Shed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Sheds {
		if s.Sheds[i].ID == shedID && s.Sheds[i].OrganizationID == orgID {
			shed := s.Sheds[i]
			return &shed, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ShedsByScope(ctx context.Context, orgID string, scope models.Scope) ([]models.Shed, error) {
	farmIDs, err := s.farmIDs(orgID, scope)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var sheds []models.Shed
	for _, shed := range s.Sheds {
		if shed.OrganizationID != orgID {
			continue
		}
		if scope.Kind == models.ScopeShed && shed.ID != scope.ID {
			continue
		}
		if farmIDs != nil && !farmIDs[shed.FarmID] {
			continue
		}
		sheds = append(sheds, shed)
	}
	return sheds, nil
}

func (s *Store) ActiveCycle(_ context.Context, orgID, farmID string) (*models.FlockCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if farmID != "" {
		for i := range s.Cycles {
			c := s.Cycles[i]
			if c.OrganizationID == orgID && c.FarmID == farmID && c.Active {
				return &c, nil
			}
		}
	}
	for i := range s.Cycles {
		c := s.Cycles[i]
		if c.OrganizationID == orgID && c.FarmID == "" && c.Active {
			return &c, nil
		}
	}
	return nil, models.ErrNoActiveCycle
}

func (s *Store) ProductionRecords(_ context.Context, orgID string, scope models.Scope, rng models.DateRange) ([]models.ProductionRecord, error) {
	farmIDs, err := s.farmIDs(orgID, scope)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []models.ProductionRecord
	for _, r := range s.Production {
		if r.OrganizationID != orgID || !rng.Contains(r.Date) {
			continue
		}
		if scope.Kind == models.ScopeShed && r.ShedID != scope.ID {
			continue
		}
		if farmIDs != nil && !farmIDs[r.FarmID] {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *Store) MortalityRecords(_ context.Context, orgID string, scope models.Scope, rng models.DateRange) ([]models.MortalityRecord, error) {
	farmIDs, err := s.farmIDs(orgID, scope)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []models.MortalityRecord
	for _, r := range s.Mortality {
		if r.OrganizationID != orgID || !rng.Contains(r.Date) {
			continue
		}
		if scope.Kind == models.ScopeShed && r.ShedID != scope.ID {
			continue
		}
		if farmIDs != nil && !farmIDs[r.FarmID] {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *Store) AttendanceRecords(ctx context.Context, orgID string, scope models.Scope, rng models.DateRange) ([]models.AttendanceRecord, error) {
	if scope.Kind == models.ScopeShed {
		shed, err := s.ShedByID(ctx, orgID, scope.ID)
		if err != nil {
			return nil, err
		}
		scope = models.FarmScope(shed.FarmID)
	}
	farmIDs, err := s.farmIDs(orgID, scope)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []models.AttendanceRecord
	for _, r := range s.Attendance {
		if r.OrganizationID != orgID || !rng.Contains(r.Date) {
			continue
		}
		if farmIDs != nil && !farmIDs[r.FarmID] {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *Store) ActiveReportDefinitions(_ context.Context) ([]models.ReportDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var defs []models.ReportDefinition
	for _, d := range s.Definitions {
		if d.Active {
			defs = append(defs, d)
		}
	}
	return defs, nil
}

func (s *Store) ClaimOccurrence(_ context.Context, defID string, prev, due time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Definitions {
		d := &s.Definitions[i]
		if d.ID != defID {
			continue
		}
		if !d.LastOccurrence.Equal(prev) || d.ClaimedOccurrence.Equal(due) {
			return models.ErrClaimConflict
		}
		d.ClaimedOccurrence = due
		return nil
	}
	return repository.ErrNotFound
}

func (s *Store) MarkDelivered(_ context.Context, defID string, due time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Definitions {
		if s.Definitions[i].ID == defID {
			s.Definitions[i].LastOccurrence = due
			s.Definitions[i].LastError = ""
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) MarkFailed(_ context.Context, defID string, due time.Time, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Definitions {
		if s.Definitions[i].ID == defID && s.Definitions[i].ClaimedOccurrence.Equal(due) {
			s.Definitions[i].ClaimedOccurrence = time.Time{}
			s.Definitions[i].LastError = cause
			return nil
		}
	}
	return repository.ErrNotFound
}

// farmIDs resolves farm and manager scopes to a farm id set. A nil map
// means no farm filtering applies. Unknown scope ids surface ErrInvalidScope
// the same way the MongoDB store surfaces ErrNotFound for them.
func (s *Store) farmIDs(orgID string, scope models.Scope) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch scope.Kind {
	case "", models.ScopeAllOrg, models.ScopeShed:
		return nil, nil
	case models.ScopeFarm:
		return map[string]bool{scope.ID: true}, nil
	case models.ScopeManager:
		ids := map[string]bool{}
		for _, f := range s.Farms {
			if f.OrganizationID == orgID && f.ManagerID == scope.ID {
				ids[f.ID] = true
			}
		}
		return ids, nil
	default:
		return nil, models.ErrInvalidScope
	}
}
