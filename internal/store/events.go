package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/neobank/internal/audit"
)

// EventFilter narrows an audit log query. Zero fields match everything.
type EventFilter struct {
	Subject  string
	Kind     audit.Kind
	OpID     string
	AfterSeq int64
	Limit    int
}

// Events returns audit events in log order.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) Events(ctx context.Context, f EventFilter) ([]audit.Event, error) {
	var (
		where []string
		args  []any
	)
	if f.Subject != "" {
		where = append(where, "subject = ?")
		args = append(args, f.Subject)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.OpID != "" {
		where = append(where, "op_id = ?")
		args = append(args, f.OpID)
	}
	if f.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, f.AfterSeq)
	}

	query := `SELECT seq, id, op_id, kind, subject, payload, at FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC, id COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var (
			ev      audit.Event
			kind    string
			payload string
		)
		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.OpID, &kind, &ev.Subject, &payload, &ev.At); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = audit.Kind(kind)
		if ev.Payload, err = audit.DecodePayload([]byte(payload)); err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.Seq, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
