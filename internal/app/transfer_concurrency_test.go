package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/beneficio/benefit-service/internal/domain"
)

// Opposite-direction transfers over the same pair must converge to the exact
// expected balances regardless of interleaving, and must not deadlock.
func TestTransfer_OppositeDirectionsConverge(t *testing.T) {
	svc, _, _ := newTestService(t)
	a := seed(t, svc, "1000.00", true)
	b := seed(t, svc, "500.00", true)

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := svc.Transfer(context.Background(), a.ID, b.ID, mustDec(t, "200.00")); err != nil {
				t.Errorf("a->b transfer failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := svc.Transfer(context.Background(), b.ID, a.ID, mustDec(t, "100.00")); err != nil {
				t.Errorf("b->a transfer failed: %v", err)
			}
		}()
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("opposite-direction transfers deadlocked")
	}

	wantBalance(t, svc, a.ID, "900.00")
	wantBalance(t, svc, b.ID, "600.00")
}

// Hammering a shared pair from many goroutines must conserve the combined
// total and never produce a lost update or a negative balance.
func TestTransfer_ConservationUnderContention(t *testing.T) {
	svc, _, _ := newTestService(t)
	a := seed(t, svc, "1000.00", true)
	b := seed(t, svc, "1000.00", true)
	c := seed(t, svc, "1000.00", true)

	total := mustDec(t, "3000.00")
	amount := mustDec(t, "7.00")

	pairs := [][2]uuid.UUID{
		{a.ID, b.ID}, {b.ID, a.ID},
		{b.ID, c.ID}, {c.ID, b.ID},
		{c.ID, a.ID}, {a.ID, c.ID},
	}

	var wg sync.WaitGroup
	for _, pair := range pairs {
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func(from, to uuid.UUID) {
				defer wg.Done()
				// Insufficient funds is an acceptable outcome under contention;
				// anything else is a failure.
				err := svc.Transfer(context.Background(), from, to, amount)
				if err != nil && !isInsufficientFunds(err) {
					t.Errorf("transfer %s->%s failed: %v", from, to, err)
				}
			}(pair[0], pair[1])
		}
	}
	wg.Wait()

	sum := decimal.Zero
	for _, id := range []uuid.UUID{a.ID, b.ID, c.ID} {
		balance := balanceOf(t, svc, id)
		if balance.Sign() < 0 {
			t.Fatalf("benefit %s has negative balance %s", id, balance)
		}
		sum = sum.Add(balance)
	}
	if !sum.Equal(total) {
		t.Fatalf("total not conserved: expected %s, got %s", total, sum)
	}
}

func isInsufficientFunds(err error) bool {
	return domain.IsRejection(err, domain.RejectionInsufficientFunds)
}
