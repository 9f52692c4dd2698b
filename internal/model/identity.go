package model

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// IdentitySize is the byte length of every account identity.
const IdentitySize = 32

// Domain prefixes for derived account addresses.
const (
	DomainVault     = "neobank/vault/v1"
	DomainTreasury  = "neobank/treasury/v1"
	DomainStakePool = "neobank/stake-pool/v1"
)

// Identity is an opaque 32-byte account key. Owners, delegates, admins,
// vaults and destinations are all identities and compare by value.
//
// The text form is base58, so identities round-trip through YAML, JSON,
// CUE and command-line flags unchanged.
type Identity [IdentitySize]byte

// ParseIdentity decodes a base58 identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	raw, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("decode identity %q: %w", s, err)
	}
	if len(raw) != IdentitySize {
		return id, fmt.Errorf("identity %q: expected %d bytes, got %d", s, IdentitySize, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// MustParseIdentity is ParseIdentity for constants and tests.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the base58 encoding.
func (id Identity) String() string {
	return base58.Encode(id[:])
}

// IsZero reports whether every byte is zero.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// DeriveIdentity computes a deterministic address from a domain and seeds.
// Format: SHA256(domain + 0x00 + seed0 + seed1 + ...)
func DeriveIdentity(domain string, seeds ...[]byte) Identity {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	for _, s := range seeds {
		h.Write(s)
	}
	var id Identity
	copy(id[:], h.Sum(nil))
	return id
}

// VaultAddress returns the fund-holding account owned by an agent.
func VaultAddress(owner Identity) Identity {
	return DeriveIdentity(DomainVault, owner[:])
}

// TreasuryAddress returns the shared pool funded by withdrawal fees.
func TreasuryAddress() Identity {
	return DeriveIdentity(DomainTreasury)
}

// StakePoolAddress returns the default account that receives liquid-staking
// deposits.
func StakePoolAddress() Identity {
	return DeriveIdentity(DomainStakePool, []byte("jitosol"))
}
