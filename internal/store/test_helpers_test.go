package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/model"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testID derives a stable identity from a label.
func testID(label string) model.Identity {
	return model.DeriveIdentity("store/test", []byte(label))
}

// mustUpdate runs fn in a committed transaction, failing the test on error.
func mustUpdate(t *testing.T, s *Store, fn func(*Tx) error) {
	t.Helper()
	if err := s.Update(context.Background(), fn); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
}

// createTestAgent writes an agent with minimal required fields.
func createTestAgent(t *testing.T, s *Store, label string) model.Agent {
	t.Helper()
	a := model.Agent{
		Owner:              testID(label),
		Name:               label,
		SpendingLimit:      5000,
		PeriodDuration:     86_400,
		CurrentPeriodStart: 1000,
		CreatedAt:          1000,
	}
	mustUpdate(t, s, func(tx *Tx) error { return tx.PutAgent(a) })
	return a
}

// createTestEvent builds an event with a computed ID.
func createTestEvent(t *testing.T, opID string, kind audit.Kind, subject string, at int64, payload audit.Fields) audit.Event {
	t.Helper()
	ev, err := audit.New(opID, kind, subject, at, payload)
	if err != nil {
		t.Fatalf("audit.New() failed: %v", err)
	}
	return ev
}
