// Package store provides the SQLite-backed ledger for NeoBank.
//
// Every durable fact lives here: the bank configuration, account balances,
// agents, delegates, yield strategies, the admin registry, proposals and
// the append-only audit log. Engines re-read what they need at the start
// of each operation; nothing is cached in process.
//
// # Transactions
//
// All reads and writes go through a Tx obtained from Update or View. Update
// commits when the callback returns nil and rolls back otherwise, which
// gives each engine operation all-or-nothing semantics. Side effects that
// must survive a failed operation are committed by returning nil from the
// callback and reporting the failure afterwards.
//
// # Deterministic Query Results
//
// Every list query has an explicit ORDER BY so results are identical across
// runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - Single connection: one writer, operations are serialized
//
// Amounts are uint64 in Go and INTEGER in SQLite. Values above
// math.MaxInt64 are rejected at this boundary.
package store
