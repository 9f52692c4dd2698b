// Package audit defines the append-only event records written alongside
// every NeoBank state change, their canonical JSON encoding, and their
// content-addressed identifiers.
//
// audit imports nothing internal. The store persists events and the
// engines build them; both depend on this package, never the reverse.
//
// Key constraints:
//   - NO floats or nulls in payloads
//   - All payload keys use snake_case
//   - Event IDs are SHA-256 over canonical JSON with a versioned domain prefix
package audit
