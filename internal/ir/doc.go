// Package ir provides the record and definition types shared across ehrstore.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps ir the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Documents are decoded with json.Number so magnitudes never pass through float64
//   - Canonical JSON (sorted keys, NFC strings) is the only input to content hashes
//   - Composition identity is an ObjectVersionID: "<uuid>::<system>::<version>"
//   - All JSON tags use snake_case
package ir
