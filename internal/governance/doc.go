// Package governance implements multi-signature treasury spending.
//
// A fixed set of at most five admins proposes transfers out of the
// treasury. A proposal is approved once threshold admins vote for it and
// rejected once enough vote against that threshold is out of reach.
// Anyone may then execute an approved proposal.
//
// Proposals live for three days. Expiry is resolved lazily: a vote on an
// expired proposal persists the Expired status and fails. Nothing sweeps
// proposals in the background.
package governance
