package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aretw0/corefollow/pkg/domain"
)

// SaveSnapshot stores an independent copy of the state under a caller-chosen id.
// Reusing an id fails with domain.ErrConfiguration.
func (e *Engine) SaveSnapshot(ctx context.Context, id int) error {
	err := e.store.Save(ctx, snapshotKey(id), e.state)
	if errors.Is(err, domain.ErrSnapshotExists) {
		return fmt.Errorf("%w: snapshot %d already saved", domain.ErrConfiguration, id)
	}
	if err != nil {
		return fmt.Errorf("save snapshot %d: %w", id, err)
	}
	return nil
}

// LoadSnapshot overwrites the state with the snapshot saved under id and drops the
// last result, which described the replaced state. The snapshot is retained. Unknown
// ids fail with domain.ErrConfiguration.
func (e *Engine) LoadSnapshot(ctx context.Context, id int) error {
	s, err := e.store.Load(ctx, snapshotKey(id))
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return fmt.Errorf("%w: unknown snapshot %d", domain.ErrConfiguration, id)
	}
	if err != nil {
		return fmt.Errorf("load snapshot %d: %w", id, err)
	}
	e.state.CopyFrom(s)
	e.last = nil
	e.pendingEnergy, e.pendingTime = 0, 0
	e.revision++
	return nil
}

// DeleteSnapshot releases the id.
func (e *Engine) DeleteSnapshot(ctx context.Context, id int) error {
	return e.store.Delete(ctx, snapshotKey(id))
}

func snapshotKey(id int) string {
	return "snapshot-" + strconv.Itoa(id)
}

// Checkpoint is an in-memory copy of everything a step may mutate.
type Checkpoint struct {
	state         *domain.ReactorState
	last          *domain.Result
	pendingEnergy float64
	pendingTime   float64
}

// Checkpoint captures the engine without consuming a caller snapshot id.
func (e *Engine) Checkpoint() *Checkpoint {
	return &Checkpoint{
		state:         e.state.Clone(),
		last:          e.last.Clone(),
		pendingEnergy: e.pendingEnergy,
		pendingTime:   e.pendingTime,
	}
}

// Restore rewinds the engine to cp. The checkpoint stays reusable.
func (e *Engine) Restore(cp *Checkpoint) {
	e.state.CopyFrom(cp.state)
	e.last = cp.last.Clone()
	e.pendingEnergy = cp.pendingEnergy
	e.pendingTime = cp.pendingTime
}

// SetResult replaces the last result, used by searches that fall back to an earlier iterate.
func (e *Engine) SetResult(r *domain.Result) {
	e.last = r.Clone()
}
