package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	dErrors "shadow/pkg/domain-errors"
)

func TestClientKey(t *testing.T) {
	tests := []struct {
		name, wallet, ip, want string
	}{
		{"wallet wins over ip", "W1", "1.2.3.4", "wallet:W1"},
		{"ip when no wallet", "", "1.2.3.4", "ip:1.2.3.4"},
		{"unknown when neither", "", "", "unknown"},
		{"whitespace treated as missing", "  ", " ", "unknown"},
		{"delimiters sanitized", "", "::1", "ip:_3a_3a1"},
		{"escape byte sanitized", "a_b", "", "wallet:a_5fb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientKey(tt.wallet, tt.ip))
		})
	}
}

func TestSanitizeKeySegmentKeepsSegmentsDistinct(t *testing.T) {
	inputs := []string{"a:b", "a_b", "a_3ab", "a__b", "a:_b", "a_:b", "a::b", "fe80::1", "fe80__1"}
	seen := map[string]string{}
	for _, in := range inputs {
		out := SanitizeKeySegment(in)
		assert.NotContains(t, out, ":")
		if prev, dup := seen[out]; dup {
			t.Errorf("%q and %q both sanitize to %q", prev, in, out)
		}
		seen[out] = in
	}
}

func TestRateWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := &RateWindow{}
	w.Restart(now, time.Minute)

	assert.Equal(t, 0, w.Count)
	assert.False(t, w.Expired(now.Add(59*time.Second)))
	assert.True(t, w.Expired(now.Add(time.Minute)))
}

func TestExceededError(t *testing.T) {
	err := &ExceededError{Limit: 2, RetryAfter: 58*time.Second + 300*time.Millisecond}
	assert.Equal(t, 58, err.RetryAfterSeconds())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))
	assert.Contains(t, err.Error(), "58 seconds")

	short := &ExceededError{RetryAfter: 200 * time.Millisecond}
	assert.Equal(t, 1, short.RetryAfterSeconds())
}
