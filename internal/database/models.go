package database

import "github.com/TobiSchelling/AIVisibility/internal/models"

// Scan status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Scan is one stored visibility scan.
type Scan struct {
	ID           string
	Domain       string
	BusinessType string
	Profile      models.BusinessProfile
	Location     *models.LocationContext
	Status       string
	OverallScore *int
	Error        *string
	StartedAt    string
	CompletedAt  *string
}

// Stats holds aggregate database statistics.
type Stats struct {
	Scans          int
	CompletedScans int
	Domains        int
	Results        int
	Mentions       int
}
