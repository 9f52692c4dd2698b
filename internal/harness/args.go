package harness

import (
	"fmt"
	"math"

	"github.com/roach88/neobank/internal/model"
)

// args reads typed values out of a step's YAML args. The first conversion
// error is kept in err and later reads return zero values.
type args struct {
	m     map[string]any
	actor model.Identity
	err   error
}

func (a *args) fail(key string, format string, v ...any) {
	if a.err == nil {
		a.err = fmt.Errorf("arg %q: %s", key, fmt.Sprintf(format, v...))
	}
}

func (a *args) get(key string) (any, bool) {
	v, ok := a.m[key]
	return v, ok && v != nil
}

// u64 returns a non-negative integer arg.
func (a *args) u64(key string, def uint64) uint64 {
	v, ok := a.get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		if n >= 0 {
			return uint64(n)
		}
	case int64:
		if n >= 0 {
			return uint64(n)
		}
	case uint64:
		return n
	case float64:
		if n >= 0 && n == math.Trunc(n) && n <= math.MaxInt64 {
			return uint64(n)
		}
	}
	a.fail(key, "want a non-negative integer, got %v", v)
	return 0
}

// i64 returns a signed integer arg.
func (a *args) i64(key string, def int64) int64 {
	v, ok := a.get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
	case float64:
		if n == math.Trunc(n) && math.Abs(n) <= math.MaxInt64 {
			return int64(n)
		}
	}
	a.fail(key, "want an integer, got %v", v)
	return 0
}

func (a *args) u8(key string, def uint8) uint8 {
	n := a.u64(key, uint64(def))
	if n > math.MaxUint8 {
		a.fail(key, "%d exceeds %d", n, math.MaxUint8)
		return 0
	}
	return uint8(n)
}

func (a *args) u16(key string, def uint16) uint16 {
	n := a.u64(key, uint64(def))
	if n > math.MaxUint16 {
		a.fail(key, "%d exceeds %d", n, math.MaxUint16)
		return 0
	}
	return uint16(n)
}

func (a *args) str(key, def string) string {
	v, ok := a.get(key)
	if !ok {
		return def
	}
	s, isStr := v.(string)
	if !isStr {
		a.fail(key, "want a string, got %v", v)
	}
	return s
}

func (a *args) flag(key string, def bool) bool {
	v, ok := a.get(key)
	if !ok {
		return def
	}
	b, isBool := v.(bool)
	if !isBool {
		a.fail(key, "want a boolean, got %v", v)
	}
	return b
}

// id resolves an identity label. A missing arg falls back to the actor.
func (a *args) id(key string) model.Identity {
	label := a.str(key, "")
	if label == "" {
		if a.actor.IsZero() {
			a.fail(key, "required")
		}
		return a.actor
	}
	id, err := Resolve(label)
	if err != nil {
		a.fail(key, "%v", err)
	}
	return id
}

// ids resolves a list of identity labels.
func (a *args) ids(key string) []model.Identity {
	v, ok := a.get(key)
	if !ok {
		a.fail(key, "required")
		return nil
	}
	list, isList := v.([]any)
	if !isList {
		a.fail(key, "want a list, got %v", v)
		return nil
	}
	out := make([]model.Identity, 0, len(list))
	for _, item := range list {
		label, isStr := item.(string)
		if !isStr {
			a.fail(key, "want identity labels, got %v", item)
			return nil
		}
		id, err := Resolve(label)
		if err != nil {
			a.fail(key, "%v", err)
			return nil
		}
		out = append(out, id)
	}
	return out
}
