package models

import "time"

// Organization is the tenant boundary. Every other entity carries its ID.
type Organization struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Timezone  string    `bson:"timezone" json:"timezone"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Farm groups sheds under one organization. ManagerID is optional.
type Farm struct {
	ID             string `bson:"_id" json:"id"`
	OrganizationID string `bson:"organization_id" json:"organization_id"`
	Name           string `bson:"name" json:"name"`
	Location       string `bson:"location,omitempty" json:"location,omitempty"`
	ManagerID      string `bson:"manager_id,omitempty" json:"manager_id,omitempty"`
}

// Shed is the unit at which production and mortality are recorded.
type Shed struct {
	ID             string `bson:"_id" json:"id"`
	OrganizationID string `bson:"organization_id" json:"organization_id"`
	FarmID         string `bson:"farm_id" json:"farm_id"`
	Name           string `bson:"name" json:"name"`
	Capacity       int    `bson:"capacity" json:"capacity"`
	Active         bool   `bson:"active" json:"active"`
}

// FlockCycle anchors week numbering for a farm. FarmID empty means the
// organization-wide default cycle. TotalDays zero means open-ended.
type FlockCycle struct {
	ID             string    `bson:"_id" json:"id"`
	OrganizationID string    `bson:"organization_id" json:"organization_id"`
	FarmID         string    `bson:"farm_id,omitempty" json:"farm_id,omitempty"`
	Name           string    `bson:"name,omitempty" json:"name,omitempty"`
	StartDate      time.Time `bson:"start_date" json:"start_date"`
	TotalDays      int       `bson:"total_days,omitempty" json:"total_days,omitempty"`
	Active         bool      `bson:"active" json:"active"`
}
