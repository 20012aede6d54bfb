package domain

import (
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// hasCentScale reports whether d is representable at two decimal places.
// Comparing against the truncation tolerates trailing zeros ("0.010").
func hasCentScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// ValidateTransferInput runs the structural transfer checks that need no
// storage access: identifiers present, amount strictly positive at cent
// scale, no self-transfer. The orchestrator calls this before taking any
// locks.
func ValidateTransferInput(fromID, toID uuid.UUID, amount decimal.Decimal) error {
	if fromID == uuid.Nil {
		return NewRejection(RejectionInvalidArgument, "source benefit id is required")
	}
	if toID == uuid.Nil {
		return NewRejection(RejectionInvalidArgument, "destination benefit id is required")
	}
	if amount.Sign() <= 0 {
		return NewRejection(RejectionInvalidArgument, "amount must be positive, got %s", amount)
	}
	if !hasCentScale(amount) {
		return NewRejection(RejectionInvalidArgument, "amount must have at most two decimal places, got %s", amount)
	}
	if fromID == toID {
		return NewRejection(RejectionSelfTransfer, "cannot transfer to the same benefit")
	}
	return nil
}

// ValidateTransfer checks every transfer precondition against two locked
// snapshots. Checks run in a fixed order and the first failure wins, so the
// reported rejection is deterministic: identifiers present, amount positive
// and at cent scale, distinct ids, source exists, destination exists, source
// active, destination active, sufficient funds. A nil snapshot means the
// lookup found nothing.
func ValidateTransfer(fromID, toID uuid.UUID, amount decimal.Decimal, from, to *Benefit) error {
	if err := ValidateTransferInput(fromID, toID, amount); err != nil {
		return err
	}
	if from == nil {
		return NewRejection(RejectionNotFound, "source benefit not found: %s", fromID)
	}
	if to == nil {
		return NewRejection(RejectionNotFound, "destination benefit not found: %s", toID)
	}
	if !from.Active {
		return NewRejection(RejectionInactiveBenefit, "source benefit is not active: %s", fromID)
	}
	if !to.Active {
		return NewRejection(RejectionInactiveBenefit, "destination benefit is not active: %s", toID)
	}
	if from.Balance.LessThan(amount) {
		return NewRejection(RejectionInsufficientFunds,
			"insufficient balance: available %s, required %s", from.Balance, amount)
	}
	return nil
}

// ValidateBenefit checks the fields shared by the create and update paths.
func ValidateBenefit(name, description string, balance decimal.Decimal) error {
	if name == "" {
		return NewRejection(RejectionInvalidArgument, "name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return NewRejection(RejectionInvalidArgument, "name exceeds %d characters", MaxNameLength)
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return NewRejection(RejectionInvalidArgument, "description exceeds %d characters", MaxDescriptionLength)
	}
	if balance.Sign() < 0 {
		return NewRejection(RejectionInvalidArgument, "balance must be non-negative, got %s", balance)
	}
	if !hasCentScale(balance) {
		return NewRejection(RejectionInvalidArgument, "balance must have at most two decimal places, got %s", balance)
	}
	return nil
}
