package storage

import (
	"fmt"
	"time"
)

// TimeLayout is the canonical textual form timestamps take in the store.
const TimeLayout = "2006-01-02 15:04:05"

// Cast tells the engine how a column value converts between its Go
// representation and the store's textual one.
type Cast int

const (
	// CastNone passes the value through unchanged.
	CastNone Cast = iota
	// CastTime serializes time.Time as TimeLayout on write and parses the
	// same form on read.
	CastTime
)

// Column describes one persistable attribute of an entity. The surrogate key
// is implicit and always named "id"; it is never listed here.
type Column struct {
	Name string
	Cast Cast
	// Sensitive marks columns whose bound values must be redacted in
	// statement logs (password hashes and the like).
	Sensitive bool
}

// Descriptor statically declares how an entity maps onto its table. It
// replaces any runtime introspection: the set of persisted attributes is
// exactly Columns, in order.
type Descriptor[E any] struct {
	// Table is the table name.
	Table string

	// Columns lists the persistable attributes.
	Columns []Column

	// Values returns the entity's attribute values aligned with Columns.
	Values func(e *E) []any

	// Assign writes decoded attribute values (aligned with Columns) back
	// onto the entity.
	Assign func(e *E, vals []any) error

	// ID returns a pointer to the surrogate key. A zero value means the
	// entity has not been persisted.
	ID func(e *E) *int64
}

// encode converts a single attribute value into its store representation.
func encode(c Column, v any) (any, error) {
	switch c.Cast {
	case CastTime:
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("column %s: expected time.Time, got %T", c.Name, v)
		}
		return t.Format(TimeLayout), nil
	default:
		return v, nil
	}
}

// decode converts a scanned store value back into the attribute value the
// descriptor's Assign expects.
func decode(c Column, v any) (any, error) {
	switch c.Cast {
	case CastTime:
		switch tv := v.(type) {
		case time.Time:
			// some drivers hand timestamps back already parsed
			return tv, nil
		case []byte:
			return parseStoreTime(c, string(tv))
		case string:
			return parseStoreTime(c, tv)
		default:
			return nil, fmt.Errorf("column %s: cannot cast %T to time", c.Name, v)
		}
	default:
		if b, ok := v.([]byte); ok {
			return string(b), nil
		}
		return v, nil
	}
}

func parseStoreTime(c Column, s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("column %s: %w", c.Name, err)
	}
	return t, nil
}
