// Package engine implements the NeoBank authorization and spending-limit
// engine, the circuit breaker fused into it, and the operation runtime the
// other engines (governance, hooks, accounts) build on.
//
// OPERATION MODEL:
//
// Every state-mutating operation runs through Env.Update:
//  1. A span is opened and a UUIDv7 operation id is drawn
//  2. The host clock is read once; that instant is the operation's "now"
//  3. The callback runs inside a single store transaction
//  4. Audit events emitted by the callback are written in the same
//     transaction as the state they describe
//
// A callback that returns an error rolls the whole transaction back. The
// one exception is Op.CommitAndFail: writes made before it are committed
// and the error is still returned. The withdrawal path uses it for the
// suspicious-activity counter and the breaker trip, which must persist
// even though the withdrawal itself fails.
//
// No locks are taken here. The store runs one transaction at a time, which
// gives each operation exclusive access to the records it touches.
//
// WITHDRAWAL ORDER:
//
// RequestWithdrawal checks, in this exact order: pause, authority,
// destination screening, breaker, period roll, limit, balance. Each check
// fails fast.
package engine
