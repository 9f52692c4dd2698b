package audit

// Kind names an audit event.
type Kind string

const (
	KindBankInitialized       Kind = "bank_initialized"
	KindAgentRegistered       Kind = "agent_registered"
	KindDeposit               Kind = "deposit"
	KindYieldAccrued          Kind = "yield_accrued"
	KindAirdrop               Kind = "airdrop"
	KindDelegateAdded         Kind = "delegate_added"
	KindDelegateRemoved       Kind = "delegate_removed"
	KindWithdrawal            Kind = "withdrawal"
	KindSuspiciousActivity    Kind = "suspicious_activity"
	KindBreakerTripped        Kind = "breaker_tripped"
	KindPauseChanged          Kind = "pause_changed"
	KindSecurityCounterReset  Kind = "security_counter_reset"
	KindThresholdUpdated      Kind = "threshold_updated"
	KindGovernanceInitialized Kind = "governance_initialized"
	KindProposalCreated       Kind = "proposal_created"
	KindVoteRecorded          Kind = "vote_recorded"
	KindProposalExpired       Kind = "proposal_expired"
	KindProposalExecuted      Kind = "proposal_executed"
	KindHookConfigured        Kind = "hook_configured"
	KindHookTriggered         Kind = "hook_triggered"
	KindYieldInteract         Kind = "yield_interact"
)

// Fields is an event payload. Values must be canonical-JSON encodable:
// strings, booleans, integers, text marshalers, nested Fields or slices.
type Fields map[string]any

// Event is one audit log entry.
type Event struct {
	// Seq is the store-assigned position in the log. Zero until persisted.
	Seq int64 `json:"seq"`

	// ID is the content-addressed identity (see EventID).
	ID string `json:"id"`

	// OpID groups every event written by one engine operation (UUIDv7).
	OpID string `json:"op_id"`

	Kind Kind `json:"kind"`

	// Subject is the primary identity or record key the event is about.
	Subject string `json:"subject"`

	Payload Fields `json:"payload"`

	// At is the host clock reading in Unix seconds.
	At int64 `json:"at"`
}

// New builds an event and computes its ID.
func New(opID string, kind Kind, subject string, at int64, payload Fields) (Event, error) {
	if payload == nil {
		payload = Fields{}
	}
	id, err := EventID(opID, kind, subject, at, payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:      id,
		OpID:    opID,
		Kind:    kind,
		Subject: subject,
		Payload: payload,
		At:      at,
	}, nil
}
