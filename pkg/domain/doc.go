/*
Package domain contains the core domain models of the corefollow reactor follow engine.

It defines the entities exchanged between the steady-state engine, the criticality search,
the time-stepped operations and the shutdown margin analyzer. This package is kept pure and
free of external dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - ReactorState: the mutable core state (rods, burnup, poisons, boron, power, time).
  - CalculationOption: how a steady-state solve or criticality search must be performed.
  - Result: a read-only snapshot of the solved state, produced fresh by every solve or step.
  - ScenarioItem: one segment of a multi-step power maneuver.
  - SDMResult: the shutdown margin breakdown.
*/
package domain
