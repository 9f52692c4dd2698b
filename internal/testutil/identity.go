package testutil

import "github.com/roach88/neobank/internal/model"

// ID derives a stable, non-degenerate identity from a label. The same
// label always yields the same identity, so golden files stay stable.
func ID(label string) model.Identity {
	return model.DeriveIdentity("neobank/test/v1", []byte(label))
}

// Repeated returns an identity whose 32 bytes all equal b. The risk
// screener classifies it as blacklisted when b is zero and as a
// suspicious pattern otherwise.
func Repeated(b byte) model.Identity {
	var id model.Identity
	for i := range id {
		id[i] = b
	}
	return id
}
