package domain

import "errors"

// ErrConfiguration is returned for malformed setup: unknown rod ids, inverted ranges,
// unsorted tables, duplicate snapshot ids or missing burnup tables.
var ErrConfiguration = errors.New("configuration error")

// ErrInvalidState is returned when an operation method is called out of sequence.
var ErrInvalidState = errors.New("invalid state")

// ErrNumerical is returned when the flux solver cannot produce a result.
// The engine state is rolled back before it reaches the caller.
var ErrNumerical = errors.New("numerical error")

// ErrSnapshotNotFound is returned when a snapshot id cannot be found in the store.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrSnapshotExists is returned when saving under an id that is already taken.
var ErrSnapshotExists = errors.New("snapshot already exists")

// Result error codes. Non-zero codes are soft failures: the result is still usable.
const (
	CodeOK          = 0
	CodeConvergence = 1 // criticality search exhausted its iteration cap
	CodeDepletion   = 2 // depletion sub-iteration exhausted its cap
	CodeSolver      = 3 // the solver itself reported a soft convergence failure
)
