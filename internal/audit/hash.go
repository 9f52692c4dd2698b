package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainEvent is the hash domain for event identities.
// The version suffix allows a future algorithm change.
const DomainEvent = "neobank/event/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID for an event.
// Identical inputs always produce the same ID, so a replayed operation with
// the same op id is detectable.
func EventID(opID string, kind Kind, subject string, at int64, payload Fields) (string, error) {
	canonical, err := MarshalCanonical(Fields{
		"op_id":   opID,
		"kind":    string(kind),
		"subject": subject,
		"at":      at,
		"payload": payload,
	})
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}
