package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/coopmetrics/internal/domain/models"
	"github.com/mamadbah2/coopmetrics/internal/repository"
)

const (
	collOrganizations     = "organizations"
	collFarms             = "farms"
	collSheds             = "sheds"
	collFlockCycles       = "flock_cycles"
	collProductionRecords = "production_records"
	collMortalityRecords  = "mortality_records"
	collAttendanceRecords = "attendance_records"
	collReportDefinitions = "report_definitions"
)

// MongoStore implements repository.Store on MongoDB.
type MongoStore struct {
	client *mongo.Client
	dbName string
}

var _ repository.Store = (*MongoStore)(nil)

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoStore{client: client, dbName: dbName}, nil
}

// Close closes the MongoDB connection.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) coll(name string) *mongo.Collection {
	return s.client.Database(s.dbName).Collection(name)
}

// OrganizationByID fetches one organization.
func (s *MongoStore) OrganizationByID(ctx context.Context, orgID string) (*models.Organization, error) {
	var org models.Organization
	err := s.coll(collOrganizations).FindOne(ctx, bson.M{"_id": orgID}).Decode(&org)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find organization %s: %w", orgID, err)
	}
	return &org, nil
}

// FarmsByOrg lists every farm in the organization.
func (s *MongoStore) FarmsByOrg(ctx context.Context, orgID string) ([]models.Farm, error) {
	cursor, err := s.coll(collFarms).Find(ctx, bson.M{"organization_id": orgID})
	if err != nil {
		return nil, fmt.Errorf("find farms for org %s: %w", orgID, err)
	}
	var farms []models.Farm
	if err := cursor.All(ctx, &farms); err != nil {
		return nil, fmt.Errorf("decode farms: %w", err)
	}
	return farms, nil
}

// FarmByID fetches one farm, tenant-filtered.
func (s *MongoStore) FarmByID(ctx context.Context, orgID, farmID string) (*models.Farm, error) {
	var farm models.Farm
	err := s.coll(collFarms).FindOne(ctx, bson.M{"_id": farmID, "organization_id": orgID}).Decode(&farm)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find farm %s: %w", farmID, err)
	}
	return &farm, nil
}

// ShedByID fetches one shed, tenant-filtered.
func (s *MongoStore) ShedByID(ctx context.Context, orgID, shedID string) (*models.Shed, error) {
	var shed models.Shed
	err := s.coll(collSheds).FindOne(ctx, bson.M{"_id": shedID, "organization_id": orgID}).Decode(&shed)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find shed %s: %w", shedID, err)
	}
	return &shed, nil
}

// ShedsByScope lists the sheds the scope resolves to.
func (s *MongoStore) ShedsByScope(ctx context.Context, orgID string, scope models.Scope) ([]models.Shed, error) {
	filter := bson.M{"organization_id": orgID}
	switch scope.Kind {
	case "", models.ScopeAllOrg:
	case models.ScopeFarm:
		filter["farm_id"] = scope.ID
	case models.ScopeShed:
		filter["_id"] = scope.ID
	case models.ScopeManager:
		farmIDs, err := s.farmIDsForManager(ctx, orgID, scope.ID)
		if err != nil {
			return nil, err
		}
		filter["farm_id"] = bson.M{"$in": farmIDs}
	default:
		return nil, models.ErrInvalidScope
	}

	cursor, err := s.coll(collSheds).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find sheds: %w", err)
	}
	var sheds []models.Shed
	if err := cursor.All(ctx, &sheds); err != nil {
		return nil, fmt.Errorf("decode sheds: %w", err)
	}
	return sheds, nil
}

// ActiveCycle returns the farm's active cycle, falling back to the
// organization-wide default cycle.
func (s *MongoStore) ActiveCycle(ctx context.Context, orgID, farmID string) (*models.FlockCycle, error) {
	if farmID != "" {
		cycle, err := s.findCycle(ctx, bson.M{"organization_id": orgID, "farm_id": farmID, "active": true})
		if err == nil {
			return cycle, nil
		}
		if !errors.Is(err, models.ErrNoActiveCycle) {
			return nil, err
		}
	}
	return s.findCycle(ctx, bson.M{
		"organization_id": orgID,
		"active":          true,
		"$or":             bson.A{bson.M{"farm_id": ""}, bson.M{"farm_id": bson.M{"$exists": false}}},
	})
}

func (s *MongoStore) findCycle(ctx context.Context, filter bson.M) (*models.FlockCycle, error) {
	var cycle models.FlockCycle
	err := s.coll(collFlockCycles).FindOne(ctx, filter).Decode(&cycle)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNoActiveCycle
	}
	if err != nil {
		return nil, fmt.Errorf("find active cycle: %w", err)
	}
	return &cycle, nil
}

// ProductionRecords lists production records for the scope and range, sorted by date.
func (s *MongoStore) ProductionRecords(ctx context.Context, orgID string, scope models.Scope, rng models.DateRange) ([]models.ProductionRecord, error) {
	filter, err := s.recordFilter(ctx, orgID, scope, rng, true)
	if err != nil {
		return nil, err
	}
	cursor, err := s.coll(collProductionRecords).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find production records: %w", err)
	}
	var records []models.ProductionRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode production records: %w", err)
	}
	return records, nil
}

// MortalityRecords lists mortality records for the scope and range, sorted by date.
func (s *MongoStore) MortalityRecords(ctx context.Context, orgID string, scope models.Scope, rng models.DateRange) ([]models.MortalityRecord, error) {
	filter, err := s.recordFilter(ctx, orgID, scope, rng, true)
	if err != nil {
		return nil, err
	}
	cursor, err := s.coll(collMortalityRecords).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find mortality records: %w", err)
	}
	var records []models.MortalityRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode mortality records: %w", err)
	}
	return records, nil
}

// AttendanceRecords lists attendance records for the scope and range.
// Attendance is recorded at farm level, so a shed scope resolves to the
// shed's farm first.
func (s *MongoStore) AttendanceRecords(ctx context.Context, orgID string, scope models.Scope, rng models.DateRange) ([]models.AttendanceRecord, error) {
	if scope.Kind == models.ScopeShed {
		shed, err := s.ShedByID(ctx, orgID, scope.ID)
		if err != nil {
			return nil, err
		}
		scope = models.FarmScope(shed.FarmID)
	}
	filter, err := s.recordFilter(ctx, orgID, scope, rng, false)
	if err != nil {
		return nil, err
	}
	cursor, err := s.coll(collAttendanceRecords).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find attendance records: %w", err)
	}
	var records []models.AttendanceRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode attendance records: %w", err)
	}
	return records, nil
}

// ActiveReportDefinitions lists active definitions across all organizations.
func (s *MongoStore) ActiveReportDefinitions(ctx context.Context) ([]models.ReportDefinition, error) {
	cursor, err := s.coll(collReportDefinitions).Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("find report definitions: %w", err)
	}
	var defs []models.ReportDefinition
	if err := cursor.All(ctx, &defs); err != nil {
		return nil, fmt.Errorf("decode report definitions: %w", err)
	}
	return defs, nil
}

// ClaimOccurrence performs the occurrence compare-and-swap. The update
// matches only while the last delivered marker still equals prev and due is
// not yet claimed, so concurrent runs cannot both win the same occurrence.
func (s *MongoStore) ClaimOccurrence(ctx context.Context, defID string, prev, due time.Time) error {
	res, err := s.coll(collReportDefinitions).UpdateOne(ctx,
		bson.M{
			"_id":                defID,
			"last_occurrence":    prev,
			"claimed_occurrence": bson.M{"$ne": due},
		},
		bson.M{"$set": bson.M{"claimed_occurrence": due}},
	)
	if err != nil {
		return fmt.Errorf("claim occurrence for %s: %w", defID, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrClaimConflict
	}
	return nil
}

// MarkDelivered advances the last delivered marker and clears any stale failure note.
func (s *MongoStore) MarkDelivered(ctx context.Context, defID string, due time.Time) error {
	_, err := s.coll(collReportDefinitions).UpdateOne(ctx,
		bson.M{"_id": defID},
		bson.M{"$set": bson.M{"last_occurrence": due, "last_error": ""}},
	)
	if err != nil {
		return fmt.Errorf("mark delivered for %s: %w", defID, err)
	}
	return nil
}

// MarkFailed records the cause and releases the claim so the next run retries.
func (s *MongoStore) MarkFailed(ctx context.Context, defID string, due time.Time, cause string) error {
	_, err := s.coll(collReportDefinitions).UpdateOne(ctx,
		bson.M{"_id": defID, "claimed_occurrence": due},
		bson.M{"$set": bson.M{"claimed_occurrence": time.Time{}, "last_error": cause}},
	)
	if err != nil {
		return fmt.Errorf("mark failed for %s: %w", defID, err)
	}
	return nil
}

// recordFilter builds the tenant-scoped filter for record collections.
// shedAware selects whether shed scopes filter on shed_id directly.
func (s *MongoStore) recordFilter(ctx context.Context, orgID string, scope models.Scope, rng models.DateRange, shedAware bool) (bson.M, error) {
	filter := bson.M{
		"organization_id": orgID,
		"date":            bson.M{"$gte": rng.Start, "$lte": rng.End},
	}

	switch scope.Kind {
	case "", models.ScopeAllOrg:
	case models.ScopeFarm:
		filter["farm_id"] = scope.ID
	case models.ScopeShed:
		if shedAware {
			filter["shed_id"] = scope.ID
		} else {
			filter["farm_id"] = scope.ID
		}
	case models.ScopeManager:
		farmIDs, err := s.farmIDsForManager(ctx, orgID, scope.ID)
		if err != nil {
			return nil, err
		}
		filter["farm_id"] = bson.M{"$in": farmIDs}
	default:
		return nil, models.ErrInvalidScope
	}
	return filter, nil
}

func (s *MongoStore) farmIDsForManager(ctx context.Context, orgID, managerID string) ([]string, error) {
	cursor, err := s.coll(collFarms).Find(ctx, bson.M{"organization_id": orgID, "manager_id": managerID})
	if err != nil {
		return nil, fmt.Errorf("find farms for manager %s: %w", managerID, err)
	}
	var farms []models.Farm
	if err := cursor.All(ctx, &farms); err != nil {
		return nil, fmt.Errorf("decode farms: %w", err)
	}
	ids := make([]string, 0, len(farms))
	for _, f := range farms {
		ids = append(ids, f.ID)
	}
	return ids, nil
}
