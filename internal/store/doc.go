// Package store provides SQLite-backed durable storage for EHRs and
// versioned compositions.
//
// The store keeps:
//   - EHRs: record containers identified by UUID
//   - Compositions: every committed version of every composition document
//
// # Versioning
//
// A composition's first version is written with WriteComposition. Later
// versions go through UpdateComposition, which requires the caller to name
// the version it is replacing (optimistic locking). Exactly one version per
// composition is flagged is_latest; queries only see latest versions.
//
// AdminDeleteComposition removes every version physically. There is no
// logical delete.
//
// # Deterministic Query Results
//
// All list reads order by a unique key with COLLATE BINARY, so identical
// stores return identical results.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Documents are stored as canonical JSON (ir.MarshalCanonical) and hashed
// with ir.ContentHash.
package store
