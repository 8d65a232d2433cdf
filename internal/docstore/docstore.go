// Package docstore is the persistence contract shared by the profile, site and
// naming bounded contexts: keyed documents grouped in collections, an atomic
// upsert, and a filtered scan.
//
// Documents hold JSON-compatible scalar values (string, bool, float64, nil).
// Timestamps are stored as strings in TimeLayout so that lexical order matches
// chronological order in every backend.
package docstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"
)

// TimeLayout is fixed width; RFC3339Nano drops trailing zeros and breaks ordering.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

type Document map[string]any

// String returns the field as a string, or "" when absent or not a string.
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

func (d Document) Bool(field string) bool {
	b, _ := d[field].(bool)
	return b
}

// Time parses a field written with FormatTime. Absent or malformed values yield the zero time.
func (d Document) Time(field string) time.Time {
	t, err := time.Parse(TimeLayout, d.String(field))
	if err != nil {
		return time.Time{}
	}
	return t
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Contains matches when Substring occurs, case-insensitively, in any of Fields.
type Contains struct {
	Fields    []string
	Substring string
}

// Filter selects documents. All Equals pairs must hold, and Contains if set.
type Filter struct {
	Equals   map[string]any
	Contains *Contains
}

type Sort struct {
	Field string
	Desc  bool
}

// Store is implemented by the memory, postgres and redis backends.
//
// FindOne returns sentinel.ErrNotFound when key is absent. Upsert is atomic per
// key: patch fields always overwrite, setOnInsert fields apply only when the
// key is created. A limit <= 0 means no limit.
type Store interface {
	FindOne(ctx context.Context, collection, key string) (Document, error)
	Upsert(ctx context.Context, collection, key string, patch, setOnInsert Document) error
	FindMany(ctx context.Context, collection string, filter Filter, sort *Sort, limit int) ([]Document, error)
	Close() error
}

// Match reports whether doc satisfies filter.
func Match(doc Document, filter Filter) bool {
	for field, want := range filter.Equals {
		if !equalValues(doc[field], want) {
			return false
		}
	}
	if c := filter.Contains; c != nil {
		needle := strings.ToLower(c.Substring)
		found := false
		for _, field := range c.Fields {
			if strings.Contains(strings.ToLower(doc.String(field)), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SortDocuments orders docs in place. Documents missing the field sort last.
func SortDocuments(docs []Document, sort *Sort) {
	if sort == nil || sort.Field == "" {
		return
	}
	slices.SortStableFunc(docs, func(a, b Document) int {
		av, aok := a[sort.Field]
		bv, bok := b[sort.Field]
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}
		c := compareValues(av, bv)
		if sort.Desc {
			return -c
		}
		return c
	})
}

// Truncate applies a FindMany limit.
func Truncate(docs []Document, limit int) []Document {
	if limit > 0 && len(docs) > limit {
		return docs[:limit]
	}
	return docs
}

func equalValues(a, b any) bool {
	an, aNum := toFloat(a)
	bn, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && an == bn
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}

func compareValues(a, b any) int {
	if an, ok := toFloat(a); ok {
		if bn, ok := toFloat(b); ok {
			return cmp.Compare(an, bn)
		}
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
