package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beneficio/benefit-service/internal/domain"
)

func seedBenefit(t *testing.T, r *MemoryRepository, balance string, active bool) *domain.Benefit {
	t.Helper()
	amount, err := decimal.NewFromString(balance)
	require.NoError(t, err)

	created, err := r.CreateBenefit(context.Background(), &domain.Benefit{
		Name:    "seeded",
		Balance: amount,
		Active:  active,
	})
	require.NoError(t, err)
	return created
}

func TestMemoryRepository_CreateAndFind(t *testing.T) {
	r := NewMemoryRepository()
	created := seedBenefit(t, r, "25.50", true)

	require.NotEqual(t, uuid.Nil, created.ID)
	assert.EqualValues(t, 1, created.Version)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := r.FindBenefitByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, found.Balance.Equal(created.Balance))

	_, err = r.FindBenefitByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBenefitNotFound)
}

func TestMemoryRepository_FindReturnsCopy(t *testing.T) {
	r := NewMemoryRepository()
	created := seedBenefit(t, r, "10.00", true)

	found, err := r.FindBenefitByID(context.Background(), created.ID)
	require.NoError(t, err)
	found.Balance = decimal.RequireFromString("999.99")

	again, err := r.FindBenefitByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.RequireFromString("10.00")))
}

func TestMemoryRepository_ListActive(t *testing.T) {
	r := NewMemoryRepository()
	seedBenefit(t, r, "1.00", true)
	seedBenefit(t, r, "2.00", false)

	all, err := r.ListBenefits(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := r.ListActiveBenefits(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].Active)
}

func TestMemoryRepository_UpdateVersionConflict(t *testing.T) {
	r := NewMemoryRepository()
	created := seedBenefit(t, r, "10.00", true)

	updated := *created
	updated.Name = "renamed"
	got, err := r.UpdateBenefit(context.Background(), &updated)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Version)

	// Reusing the stale token must fail.
	stale := *created
	stale.Name = "stale write"
	_, err = r.UpdateBenefit(context.Background(), &stale)
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = r.UpdateBenefit(context.Background(), &domain.Benefit{ID: uuid.New(), Version: 1})
	assert.ErrorIs(t, err, ErrBenefitNotFound)
}

func TestMemoryRepository_Delete(t *testing.T) {
	r := NewMemoryRepository()
	created := seedBenefit(t, r, "10.00", true)

	require.NoError(t, r.DeleteBenefit(context.Background(), created.ID))
	assert.ErrorIs(t, r.DeleteBenefit(context.Background(), created.ID), ErrBenefitNotFound)
}

func TestMemoryRepository_AtomicCommitsOnSuccess(t *testing.T) {
	r := NewMemoryRepository()
	a := seedBenefit(t, r, "100.00", true)
	b := seedBenefit(t, r, "50.00", true)

	err := r.Atomic(context.Background(), func(tx Tx) error {
		from, err := tx.FindForUpdate(context.Background(), a.ID)
		require.NoError(t, err)
		to, err := tx.FindForUpdate(context.Background(), b.ID)
		require.NoError(t, err)

		from.Balance = from.Balance.Sub(decimal.RequireFromString("30.00"))
		to.Balance = to.Balance.Add(decimal.RequireFromString("30.00"))

		require.NoError(t, tx.Save(context.Background(), from))
		require.NoError(t, tx.Save(context.Background(), to))
		return nil
	})
	require.NoError(t, err)

	gotA, err := r.FindBenefitByID(context.Background(), a.ID)
	require.NoError(t, err)
	gotB, err := r.FindBenefitByID(context.Background(), b.ID)
	require.NoError(t, err)

	assert.True(t, gotA.Balance.Equal(decimal.RequireFromString("70.00")), "got %s", gotA.Balance)
	assert.True(t, gotB.Balance.Equal(decimal.RequireFromString("80.00")), "got %s", gotB.Balance)
	assert.EqualValues(t, 2, gotA.Version)
	assert.EqualValues(t, 2, gotB.Version)
}

func TestMemoryRepository_AtomicRollsBackOnError(t *testing.T) {
	r := NewMemoryRepository()
	a := seedBenefit(t, r, "100.00", true)

	boom := errors.New("boom")
	err := r.Atomic(context.Background(), func(tx Tx) error {
		from, err := tx.FindForUpdate(context.Background(), a.ID)
		require.NoError(t, err)
		from.Balance = decimal.Zero
		require.NoError(t, tx.Save(context.Background(), from))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := r.FindBenefitByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("100.00")))
	assert.EqualValues(t, 1, got.Version)
}

func TestMemoryRepository_AtomicConflictsWithInterleavedUpdate(t *testing.T) {
	r := NewMemoryRepository()
	a := seedBenefit(t, r, "100.00", true)

	err := r.Atomic(context.Background(), func(tx Tx) error {
		from, err := tx.FindForUpdate(context.Background(), a.ID)
		require.NoError(t, err)

		// A plain update with a valid token lands while the unit of work is
		// still open. Its write must survive.
		interleaved := *a
		interleaved.Balance = decimal.RequireFromString("999.00")
		_, err = r.UpdateBenefit(context.Background(), &interleaved)
		require.NoError(t, err)

		from.Balance = from.Balance.Sub(decimal.RequireFromString("30.00"))
		return tx.Save(context.Background(), from)
	})
	require.ErrorIs(t, err, ErrVersionConflict)

	got, err := r.FindBenefitByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("999.00")), "got %s", got.Balance)
	assert.EqualValues(t, 2, got.Version)
}

func TestMemoryRepository_AtomicReadsOwnWrites(t *testing.T) {
	r := NewMemoryRepository()
	a := seedBenefit(t, r, "100.00", true)

	err := r.Atomic(context.Background(), func(tx Tx) error {
		first, err := tx.FindForUpdate(context.Background(), a.ID)
		require.NoError(t, err)
		first.Balance = decimal.RequireFromString("40.00")
		require.NoError(t, tx.Save(context.Background(), first))

		second, err := tx.FindForUpdate(context.Background(), a.ID)
		require.NoError(t, err)
		assert.True(t, second.Balance.Equal(decimal.RequireFromString("40.00")))
		return nil
	})
	require.NoError(t, err)
}
