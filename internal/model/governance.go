package model

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxAdmins is the capacity of the admin registry.
	MaxAdmins = 5

	// ProposalTTL is the fixed voting window in seconds (3 days).
	ProposalTTL = 3 * 86_400

	// MaxMemoLen bounds proposal memos in characters.
	MaxMemoLen = 64
)

// AdminRegistry is the fixed-capacity admin set that governs the treasury.
type AdminRegistry struct {
	Admins        [MaxAdmins]Identity
	AdminCount    uint8
	Threshold     uint8
	ProposalCount uint64
	CreatedAt     int64
}

// NewAdminRegistry validates and builds a registry. Over-capacity and
// duplicate lists are rejected, never truncated.
func NewAdminRegistry(admins []Identity, threshold uint8) (AdminRegistry, error) {
	var r AdminRegistry
	if len(admins) > MaxAdmins {
		return r, ErrTooManyAdmins.With("count", fmt.Sprint(len(admins)))
	}
	if threshold == 0 || int(threshold) > len(admins) {
		return r, ErrInvalidThreshold.With("threshold", fmt.Sprint(threshold))
	}
	for i, a := range admins {
		for _, prev := range admins[:i] {
			if prev == a {
				return r, ErrDuplicateAdmin.With("admin", a.String())
			}
		}
		r.Admins[i] = a
	}
	r.AdminCount = uint8(len(admins))
	r.Threshold = threshold
	return r, nil
}

// Members returns the active admins in registration order.
func (r *AdminRegistry) Members() []Identity {
	out := make([]Identity, r.AdminCount)
	copy(out, r.Admins[:r.AdminCount])
	return out
}

// IsAdmin reports whether id is an active admin.
func (r *AdminRegistry) IsAdmin(id Identity) bool {
	for _, a := range r.Admins[:r.AdminCount] {
		if a == id {
			return true
		}
	}
	return false
}

// ProposalStatus is the lifecycle state of a TreasuryProposal.
type ProposalStatus uint8

const (
	ProposalPending ProposalStatus = iota
	ProposalApproved
	ProposalRejected
	ProposalExecuted
	ProposalExpired
)

var proposalStatusNames = [...]string{"pending", "approved", "rejected", "executed", "expired"}

// String returns the lowercase status name.
func (s ProposalStatus) String() string {
	if int(s) < len(proposalStatusNames) {
		return proposalStatusNames[s]
	}
	return fmt.Sprintf("ProposalStatus(%d)", uint8(s))
}

// ParseProposalStatus accepts the names produced by String.
func ParseProposalStatus(s string) (ProposalStatus, error) {
	for i, name := range proposalStatusNames {
		if strings.EqualFold(s, name) {
			return ProposalStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown proposal status %q", s)
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
// Pending -> {Approved, Rejected, Expired} and Approved -> Executed are the
// only edges.
func (s ProposalStatus) CanTransition(to ProposalStatus) bool {
	switch s {
	case ProposalPending:
		return to == ProposalApproved || to == ProposalRejected || to == ProposalExpired
	case ProposalApproved:
		return to == ProposalExecuted
	default:
		return false
	}
}

// Terminal reports whether no further transition exists.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalRejected || s == ProposalExecuted || s == ProposalExpired
}

// TreasuryProposal is a request to move funds out of the treasury.
type TreasuryProposal struct {
	ID           uint64
	Proposer     Identity
	Destination  Identity
	Amount       uint64
	Memo         string
	Status       ProposalStatus
	VotesFor     uint8
	VotesAgainst uint8
	CreatedAt    int64
	ExpiresAt    int64
	// ExecutedAt is 0 until the proposal is executed.
	ExecutedAt int64
}

// TruncateMemo NFC-normalizes a memo and cuts it to MaxMemoLen characters.
func TruncateMemo(memo string) string {
	memo = norm.NFC.String(memo)
	if utf8.RuneCountInString(memo) <= MaxMemoLen {
		return memo
	}
	runes := []rune(memo)
	return string(runes[:MaxMemoLen])
}
