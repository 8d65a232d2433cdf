package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	doc := Document{"domain": "Alice.shadow", "program_address": "Prog111", "verified": true, "score": float64(3)}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches", Filter{}, true},
		{"equal bool", Filter{Equals: map[string]any{"verified": true}}, true},
		{"unequal bool", Filter{Equals: map[string]any{"verified": false}}, false},
		{"missing field", Filter{Equals: map[string]any{"owner": "W1"}}, false},
		{"int compares with float", Filter{Equals: map[string]any{"score": 3}}, true},
		{"string never equals bool", Filter{Equals: map[string]any{"verified": "true"}}, false},
		{"contains is case-insensitive", Filter{Contains: &Contains{Fields: []string{"domain"}, Substring: "ALICE"}}, true},
		{"contains checks any field", Filter{Contains: &Contains{Fields: []string{"domain", "program_address"}, Substring: "prog"}}, true},
		{"contains miss", Filter{Contains: &Contains{Fields: []string{"domain"}, Substring: "bob"}}, false},
		{"both conditions", Filter{
			Equals:   map[string]any{"verified": true},
			Contains: &Contains{Fields: []string{"domain"}, Substring: "ali"},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(doc, tt.filter))
		})
	}
}

func TestSortDocuments(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []Document{
		{"k": "b", "created_at": FormatTime(base.Add(time.Second))},
		{"k": "none"},
		{"k": "c", "created_at": FormatTime(base.Add(10 * time.Second))},
		{"k": "a", "created_at": FormatTime(base)},
	}

	SortDocuments(docs, &Sort{Field: "created_at", Desc: true})

	var order []string
	for _, d := range docs {
		order = append(order, d.String("k"))
	}
	assert.Equal(t, []string{"c", "b", "a", "none"}, order)
}

func TestFormatTimeOrdersLexically(t *testing.T) {
	// 100ms vs 90ms would misorder with RFC3339Nano's trimmed fractions.
	a := FormatTime(time.Date(2026, 1, 1, 0, 0, 0, 90_000_000, time.UTC))
	b := FormatTime(time.Date(2026, 1, 1, 0, 0, 0, 100_000_000, time.UTC))
	assert.Less(t, a, b)
	assert.Len(t, a, len(b))

	d := Document{"at": a}
	assert.True(t, d.Time("at").Equal(time.Date(2026, 1, 1, 0, 0, 0, 90_000_000, time.UTC)))
	assert.True(t, Document{}.Time("at").IsZero())
}

func TestTruncate(t *testing.T) {
	docs := []Document{{}, {}, {}}
	assert.Len(t, Truncate(docs, 2), 2)
	assert.Len(t, Truncate(docs, 0), 3)
	assert.Len(t, Truncate(docs, 10), 3)
}
