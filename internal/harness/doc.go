// Package harness runs scripted NeoBank scenarios against the real
// engines and checks them as executable contract tests.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: spending_limit_period
//	description: "Spend is capped per period and resets after it"
//	start: 1700000000
//	steps:
//	  - action: bank.initialize
//	    actor: admin
//	    args: { fee_bps: 100 }
//	  - action: withdraw
//	    actor: alice
//	    args: { destination: bob, amount: 3000 }
//	    expect:
//	      code: SpendingLimitExceeded
//	assertions:
//	  - type: balance
//	    account: bob
//	    equals: 2970
//
// Identities are written as labels and resolved with Resolve. A step
// without an expect clause must succeed. Repeat runs a step several times.
//
// # Assertion Types
//
//   - event_contains: an audit event of the kind exists (optionally for a subject)
//   - event_order: kinds first appear in the audit log in the given order
//   - event_count: exactly N events of the kind
//   - balance: an account holds exactly the amount
//   - final_state: a bank, agent, proposal or strategy record matches field values
//   - supply_balanced: held funds equal minted funds
//
// # Determinism
//
// Each run uses a fresh in-memory ledger, a manual clock starting at the
// scenario's start instant and operation ids derived from the scenario
// name. Traces are identical across runs and compared against golden files
// with RunWithGolden.
//
// After every step the ledger invariants in CheckInvariants are verified.
package harness
