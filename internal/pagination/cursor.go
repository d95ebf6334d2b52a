// Package pagination implements opaque compound-key seek pagination.
//
// A cursor is base64url(JSON) of the sort-key values of the last item on a
// page. Given a cursor, "items after this point" for sort fields
// f1, f2, ... fn is the disjunction over prefix levels
//
//	f1 <op> v1
//	OR (f1 = v1 AND f2 <op> v2)
//	OR ...
//
// where <op> is < for descending fields and > for ascending ones. The same
// predicate is available as SQL (Filter) and in memory (After), so stores
// that can push the filter down and callers that rank in memory agree on
// page boundaries.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var ErrInvalidCursor = errors.New("invalid cursor")

const DefaultMaxLimit = 50

type Kind int

const (
	KindString Kind = iota
	KindTime
	KindInt
)

// SortField is one column of the sort key.
type SortField struct {
	Name string
	Desc bool
	Kind Kind
}

// Cursor holds decoded sort-key values, typed per field Kind. Keys outside
// the sort key are kept as their raw JSON values.
type Cursor map[string]any

// Time returns a time-valued entry, parsing strings when needed.
func (c Cursor) Time(name string) (time.Time, bool) {
	switch v := c[name].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		return t, err == nil
	}
	return time.Time{}, false
}

type Paginator struct {
	sort     []SortField
	maxLimit int
}

// New builds a paginator for the given sort key. maxLimit <= 0 uses
// DefaultMaxLimit.
func New(maxLimit int, sort ...SortField) *Paginator {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &Paginator{sort: sort, maxLimit: maxLimit}
}

func (p *Paginator) Sort() []SortField { return p.sort }

func (p *Paginator) MaxLimit() int { return p.maxLimit }

// ClampLimit returns the page size to serve: the maximum when none was
// requested, otherwise the request capped at the maximum.
func (p *Paginator) ClampLimit(requested int) int {
	if requested <= 0 || requested > p.maxLimit {
		return p.maxLimit
	}
	return requested
}

// OrderBy renders the sort key as ORDER BY terms.
func (p *Paginator) OrderBy() []string {
	out := make([]string, 0, len(p.sort))
	for _, f := range p.sort {
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		out = append(out, f.Name+" "+dir)
	}
	return out
}

// Encode serializes values into an opaque token. Every sort field must be
// present; extra keys are carried along verbatim.
func (p *Paginator) Encode(values map[string]any) (string, error) {
	payload := make(map[string]any, len(values))
	for k, v := range values {
		payload[k] = wireValue(v)
	}
	for _, f := range p.sort {
		if _, ok := values[f.Name]; !ok {
			return "", fmt.Errorf("cursor: missing sort field %q", f.Name)
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

func wireValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	}
	return v
}

// Decode parses a token produced by Encode.
func (p *Paginator) Decode(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		// tolerate clients that strip padding
		if raw, err = base64.RawURLEncoding.DecodeString(token); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}

	c := Cursor(payload)
	for _, f := range p.sort {
		v, ok := payload[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrInvalidCursor, f.Name)
		}
		typed, err := typedValue(f.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidCursor, f.Name, err)
		}
		c[f.Name] = typed
	}
	return c, nil
}

func typedValue(kind Kind, v any) (any, error) {
	switch kind {
	case KindTime:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected timestamp string, got %T", v)
		}
		return time.Parse(time.RFC3339Nano, s)
	case KindInt:
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", v)
		}
		return int64(n), nil
	default:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	}
}

// Filter renders the seek predicate for c. A nil cursor yields nil.
func (p *Paginator) Filter(c Cursor) sq.Sqlizer {
	if c == nil {
		return nil
	}
	or := make(sq.Or, 0, len(p.sort))
	for i, f := range p.sort {
		var strict sq.Sqlizer
		if f.Desc {
			strict = sq.Lt{f.Name: c[f.Name]}
		} else {
			strict = sq.Gt{f.Name: c[f.Name]}
		}
		if i == 0 {
			or = append(or, strict)
			continue
		}
		and := make(sq.And, 0, i+1)
		for _, prev := range p.sort[:i] {
			and = append(and, sq.Eq{prev.Name: c[prev.Name]})
		}
		or = append(or, append(and, strict))
	}
	return or
}

// After reports whether an item with the given sort-key values comes after
// the cursor. A nil cursor admits everything.
func (p *Paginator) After(c Cursor, values map[string]any) bool {
	if c == nil {
		return true
	}
	for _, f := range p.sort {
		cmp := compare(values[f.Name], c[f.Name])
		if cmp == 0 {
			continue
		}
		if f.Desc {
			return cmp < 0
		}
		return cmp > 0
	}
	return false
}

// Compare orders two value maps by the sort key: negative when a comes
// first on a page.
func (p *Paginator) Compare(a, b map[string]any) int {
	for _, f := range p.sort {
		cmp := compare(a[f.Name], b[f.Name])
		if cmp == 0 {
			continue
		}
		if f.Desc {
			return -cmp
		}
		return cmp
	}
	return 0
}

func compare(a, b any) int {
	switch x := a.(type) {
	case time.Time:
		y, _ := b.(time.Time)
		return x.Compare(y)
	case string:
		y, _ := b.(string)
		return strings.Compare(x, y)
	case int:
		return compareInt(int64(x), toInt64(b))
	case int64:
		return compareInt(x, toInt64(b))
	}
	return 0
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
