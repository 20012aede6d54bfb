package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf_UnwrapsWrappedRejections(t *testing.T) {
	base := NewRejection(RejectionInsufficientFunds, "available 1.00, required 2.00")
	wrapped := fmt.Errorf("transfer failed: %w", base)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, RejectionInsufficientFunds, kind)
	assert.True(t, IsRejection(wrapped, RejectionInsufficientFunds))
}

func TestKindOf_NonRejection(t *testing.T) {
	_, ok := KindOf(errors.New("connection refused"))
	assert.False(t, ok)
	assert.False(t, IsRejection(nil, RejectionNotFound))
}

func TestRetryable(t *testing.T) {
	assert.True(t, RejectionLockTimeout.Retryable())
	assert.True(t, RejectionConcurrencyConflict.Retryable())

	for _, k := range []RejectionKind{
		RejectionInvalidArgument,
		RejectionSelfTransfer,
		RejectionNotFound,
		RejectionInactiveBenefit,
		RejectionInsufficientFunds,
	} {
		assert.False(t, k.Retryable(), "kind %s", k)
	}
}
