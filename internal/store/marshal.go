package store

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/model"
)

// toDB converts an amount for an INTEGER column.
func toDB(field string, v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%s %d exceeds storage range: %w", field, v, model.ErrArithmeticOverflow)
	}
	return int64(v), nil
}

// fromDB converts an INTEGER column back to an amount.
func fromDB(field string, v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("%s: negative stored value %d", field, v)
	}
	return uint64(v), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseIdentity decodes a stored identity column.
func parseIdentity(field, s string) (model.Identity, error) {
	id, err := model.ParseIdentity(s)
	if err != nil {
		return id, fmt.Errorf("%s: %w", field, err)
	}
	return id, nil
}

// marshalAdmins stores the registry's active admins as a JSON array of
// base58 strings, in slot order.
func marshalAdmins(admins []model.Identity) (string, error) {
	out := make([]string, len(admins))
	for i, a := range admins {
		out[i] = a.String()
	}
	data, err := audit.MarshalCanonical(out)
	if err != nil {
		return "", fmt.Errorf("marshal admins: %w", err)
	}
	return string(data), nil
}

func unmarshalAdmins(data string) ([]model.Identity, error) {
	var raw []string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal admins: %w", err)
	}
	out := make([]model.Identity, len(raw))
	for i, s := range raw {
		id, err := parseIdentity("admins", s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// marshalPayload converts an event payload to canonical JSON TEXT.
func marshalPayload(p audit.Fields) (string, error) {
	data, err := audit.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// amounts converts several named amounts at once, failing on the first
// out-of-range value.
type amounts struct {
	err error
}

func (a *amounts) to(field string, v uint64) int64 {
	if a.err != nil {
		return 0
	}
	out, err := toDB(field, v)
	a.err = err
	return out
}

func (a *amounts) from(field string, v int64) uint64 {
	if a.err != nil {
		return 0
	}
	out, err := fromDB(field, v)
	a.err = err
	return out
}
