// Package store persists computed analysis units in SQLite.
//
// Each unit keeps its input facts and its Result Set, so a later run can
// recompute every unit from its own facts and compare output hashes. A
// mismatch means the engine is not deterministic for that input.
//
// Store implements bridge.Recorder; wire it with bridge.WithRecorder.
//
// # Ordering
//
// Units are identified by ID and ordered by the logical seq the bridge
// stamped at compute time, never by wall time. Every listing query uses
// ORDER BY seq ASC, id COLLATE BINARY ASC so results are identical across
// runs.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON, so deleting a unit deletes its facts
package store
