// Package store persists recalculated project snapshots. Stores are
// host-side and engine-unaware: they receive fully recalculated
// projects and hand back what they were given, so no stale derived
// value can be observed through them. Two backends are provided, a
// file store for single-user work and a Postgres store for shared
// deployments.
package store

import (
	"context"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/dd0wney/cluso-tara/pkg/metrics"
	"github.com/dd0wney/cluso-tara/pkg/model"
)

// StoredProject is a persisted snapshot with its store metadata. The
// revision counts saves of the project and is owned by the store; the
// fingerprint is the content digest of the serialized snapshot.
type StoredProject struct {
	Project     *model.Project `json:"project"`
	Revision    int64          `json:"revision"`
	Fingerprint string         `json:"fingerprint"`
	SavedAt     time.Time      `json:"saved_at"`
}

// ProjectSummary is a listing row.
type ProjectSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Revision  int64     `json:"revision"`
	Threats   int       `json:"threats"`
	Scenarios int       `json:"threat_scenarios"`
	SavedAt   time.Time `json:"saved_at"`
}

// ProjectStore defines the interface for project persistence
type ProjectStore interface {
	// Save upserts a recalculated snapshot and returns the stored form
	// with its new revision.
	Save(ctx context.Context, project *model.Project) (*StoredProject, error)
	// Get returns the stored snapshot for the given project id.
	Get(ctx context.Context, id string) (*StoredProject, error)
	// Delete removes the project and everything archived for it.
	Delete(ctx context.Context, id string) error
	// List returns summaries of all stored projects, most recently
	// saved first.
	List(ctx context.Context) ([]*ProjectSummary, error)
	Ping(ctx context.Context) error
	Close() error
}

// Fingerprint returns the hex BLAKE2b-256 digest of a serialized
// snapshot.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// record reports one store operation to the optional metrics registry.
func record(reg *metrics.Registry, op string, start time.Time, err error) {
	if reg == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	reg.RecordStoreOperation(op, status, time.Since(start))
}
