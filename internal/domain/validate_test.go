package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func benefit(t *testing.T, balance string, active bool) *Benefit {
	t.Helper()
	return &Benefit{
		ID:      uuid.New(),
		Name:    "test benefit",
		Balance: dec(t, balance),
		Active:  active,
		Version: 1,
	}
}

func TestValidateTransfer_Success(t *testing.T) {
	from := benefit(t, "100.00", true)
	to := benefit(t, "0.00", true)

	require.NoError(t, ValidateTransfer(from.ID, to.ID, dec(t, "50.00"), from, to))

	// Exact balance covers the amount: >= is the contract, not >.
	require.NoError(t, ValidateTransfer(from.ID, to.ID, dec(t, "100.00"), from, to))

	// Trailing zeros beyond the cent are still cent-scale values.
	require.NoError(t, ValidateTransfer(from.ID, to.ID, dec(t, "50.010"), from, to))
}

func TestValidateTransfer_Rejections(t *testing.T) {
	fromID := uuid.New()
	toID := uuid.New()

	active := func(balance string) *Benefit {
		b := benefit(t, balance, true)
		return b
	}
	inactive := func(balance string) *Benefit {
		b := benefit(t, balance, false)
		return b
	}

	tests := []struct {
		name   string
		fromID uuid.UUID
		toID   uuid.UUID
		amount string
		from   *Benefit
		to     *Benefit
		want   RejectionKind
	}{
		{"missing source id", uuid.Nil, toID, "10.00", nil, nil, RejectionInvalidArgument},
		{"missing destination id", fromID, uuid.Nil, "10.00", nil, nil, RejectionInvalidArgument},
		{"zero amount", fromID, toID, "0", active("100.00"), active("0"), RejectionInvalidArgument},
		{"negative amount", fromID, toID, "-5.00", active("100.00"), active("0"), RejectionInvalidArgument},
		{"sub-cent amount", fromID, toID, "0.005", active("100.00"), active("0"), RejectionInvalidArgument},
		{"three decimal places", fromID, toID, "10.001", active("100.00"), active("0"), RejectionInvalidArgument},
		{"self transfer", fromID, fromID, "10.00", active("100.00"), active("100.00"), RejectionSelfTransfer},
		{"source missing", fromID, toID, "10.00", nil, active("0"), RejectionNotFound},
		{"destination missing", fromID, toID, "10.00", active("100.00"), nil, RejectionNotFound},
		{"source inactive", fromID, toID, "10.00", inactive("100.00"), active("0"), RejectionInactiveBenefit},
		{"destination inactive", fromID, toID, "10.00", active("100.00"), inactive("0"), RejectionInactiveBenefit},
		{"insufficient funds", fromID, toID, "100.01", active("100.00"), active("0"), RejectionInsufficientFunds},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTransfer(tc.fromID, tc.toID, dec(t, tc.amount), tc.from, tc.to)
			require.Error(t, err)
			kind, ok := KindOf(err)
			require.True(t, ok, "expected a rejection, got %v", err)
			assert.Equal(t, tc.want, kind)
		})
	}
}

// The check order is part of the contract: the first failing check determines
// the reported reason even when several preconditions are violated at once.
func TestValidateTransfer_FirstFailureWins(t *testing.T) {
	fromID := uuid.New()
	toID := uuid.New()

	t.Run("amount checked before self transfer", func(t *testing.T) {
		err := ValidateTransfer(fromID, fromID, dec(t, "0"), nil, nil)
		assert.True(t, IsRejection(err, RejectionInvalidArgument))
	})

	t.Run("self transfer checked before existence", func(t *testing.T) {
		err := ValidateTransfer(fromID, fromID, dec(t, "10.00"), nil, nil)
		assert.True(t, IsRejection(err, RejectionSelfTransfer))
	})

	t.Run("source existence checked before destination", func(t *testing.T) {
		err := ValidateTransfer(fromID, toID, dec(t, "10.00"), nil, nil)
		require.True(t, IsRejection(err, RejectionNotFound))
		assert.Contains(t, err.Error(), "source")
	})

	t.Run("source activity checked before destination activity", func(t *testing.T) {
		err := ValidateTransfer(fromID, toID, dec(t, "10.00"),
			benefit(t, "100.00", false), benefit(t, "0", false))
		require.True(t, IsRejection(err, RejectionInactiveBenefit))
		assert.Contains(t, err.Error(), "source")
	})

	t.Run("inactivity checked before funds", func(t *testing.T) {
		err := ValidateTransfer(fromID, toID, dec(t, "10.00"),
			benefit(t, "0", false), benefit(t, "0", true))
		assert.True(t, IsRejection(err, RejectionInactiveBenefit))
	})
}

func TestValidateBenefit(t *testing.T) {
	long := func(n int) string {
		s := make([]byte, n)
		for i := range s {
			s[i] = 'x'
		}
		return string(s)
	}

	require.NoError(t, ValidateBenefit("Meal voucher", "monthly meal allowance", dec(t, "0")))

	// Limits are character counts, not byte counts: a multibyte name at the
	// limit passes even though it is over the limit in bytes.
	require.NoError(t, ValidateBenefit(strings.Repeat("á", MaxNameLength), "", dec(t, "0")))
	require.NoError(t, ValidateBenefit("ok", strings.Repeat("ç", MaxDescriptionLength), dec(t, "0")))

	tests := []struct {
		name        string
		benefitName string
		description string
		balance     string
	}{
		{"empty name", "", "", "10.00"},
		{"name too long", long(MaxNameLength + 1), "", "10.00"},
		{"multibyte name too long", strings.Repeat("á", MaxNameLength+1), "", "10.00"},
		{"description too long", "ok", long(MaxDescriptionLength + 1), "10.00"},
		{"negative balance", "ok", "", "-0.01"},
		{"sub-cent balance", "ok", "", "10.005"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBenefit(tc.benefitName, tc.description, dec(t, tc.balance))
			assert.True(t, IsRejection(err, RejectionInvalidArgument))
		})
	}
}
