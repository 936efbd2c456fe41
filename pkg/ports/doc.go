/*
Package ports defines the driven ports (interfaces) of the core-follow engine.

These interfaces decouple the orchestration layer from the numerical method and
from storage, so the engine can run against any flux solver and persist branch
snapshots to any backend.

# Key Interfaces

  - FluxSolver: produces an eigenvalue and power distribution for a reactor state.
  - Setup: consumes the geometry, cross-section and form-function inputs once.
  - SnapshotStore: persists identified copies of the reactor state.
  - ScenarioLibrary: lists and loads named power maneuvers.
*/
package ports
