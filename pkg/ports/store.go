package ports

import (
	"context"

	"github.com/aretw0/corefollow/pkg/domain"
)

// SnapshotStore persists identified, independent copies of the reactor state.
// This is what makes branching exploration possible: save, run a maneuver, restore.
type SnapshotStore interface {
	// Save stores a copy of the state under id.
	// Returns domain.ErrSnapshotExists if the id is already taken.
	Save(ctx context.Context, id string, state *domain.ReactorState) error

	// Load returns a copy of the state stored under id.
	// Returns domain.ErrSnapshotNotFound if the id does not exist.
	Load(ctx context.Context, id string) (*domain.ReactorState, error)

	// Delete removes the snapshot. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the ids of all stored snapshots.
	List(ctx context.Context) ([]string, error)
}

// ScenarioLibrary provides named power maneuvers.
type ScenarioLibrary interface {
	List(ctx context.Context) ([]string, error)
	Scenario(ctx context.Context, name string) (*domain.Scenario, error)
}
