// Package history provides persistent storage for completed analysis runs so
// clinicians can retrieve prior reports per patient.
package history

import (
	"context"
	"io"
	"time"

	"github.com/pharmaguard-pgx-server/internal/domain"
)

// Record is one persisted analysis run. The full result is stored as a JSON
// document alongside queryable summary columns.
type Record struct {
	ID              string                 `json:"id"`
	PatientID       string                 `json:"patient_id"`
	Drugs           []string               `json:"drugs"`
	OverallSeverity domain.Severity        `json:"overall_severity"`
	Result          *domain.AnalysisResult `json:"result"`
	CreatedAt       time.Time              `json:"created_at"`
}

// Store defines the interface for analysis history storage
type Store interface {
	// Save persists a completed analysis run
	Save(ctx context.Context, result *domain.AnalysisResult) error

	// Get retrieves one analysis by its ID. Returns nil when not found.
	Get(ctx context.Context, id string) (*Record, error)

	// ListByPatient returns a patient's analyses, newest first
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Record, error)

	// List returns all analyses with pagination, newest first
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the total number of stored analyses
	Count(ctx context.Context) (int64, error)

	// Delete removes an analysis by ID
	Delete(ctx context.Context, id string) error

	// ExportJSON exports all stored analyses to a JSON writer
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Close closes the store and releases resources
	Close() error
}

// Export represents the JSON export format
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Analyses   []*Record `json:"analyses"`
}
