package docstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "shadow/pkg/domain-errors"
	"shadow/pkg/platform/sentinel"
)

func TestDomainError(t *testing.T) {
	assert.NoError(t, DomainError(nil, "x"))

	err := DomainError(fmt.Errorf("users/W1: %w", sentinel.ErrNotFound), "profile not found")
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))

	err = DomainError(context.DeadlineExceeded, "x")
	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, dErrors.CodeUnavailable, de.Code)
	assert.Equal(t, "store timeout", de.Message)

	err = DomainError(errors.New("connection reset"), "x")
	assert.True(t, dErrors.Is(err, dErrors.CodeUnavailable))
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	ctx, cancel = WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_, ok = ctx.Deadline()
	assert.True(t, ok)
}
