/**
 * @description
 * This file defines the `Repository` interface, the contract for all benefit
 * persistence required by the service. Defining an interface decouples the
 * business logic from the backing store, so the same orchestration runs
 * against PostgreSQL in production and the in-memory store in tests.
 *
 * The transfer path uses the transactional surface: `Atomic` opens an
 * all-or-nothing unit of work whose `Tx` handle provides find-with-exclusive-
 * hold and durable save. The plain CRUD update path instead relies on the
 * benefit's version token for conflict detection.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: Benefit identifiers.
 * - internal/domain: The benefit model.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/beneficio/benefit-service/internal/domain"
)

var (
	// ErrBenefitNotFound is returned when an identifier resolves to no benefit.
	ErrBenefitNotFound = errors.New("benefit not found")
	// ErrVersionConflict is returned when an update carries a stale version token.
	ErrVersionConflict = errors.New("benefit version conflict")
)

// Tx is the handle passed to an Atomic unit of work.
type Tx interface {
	// FindForUpdate loads a benefit with an exclusive hold that lasts until the
	// unit of work ends. Returns ErrBenefitNotFound when the id does not resolve.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*domain.Benefit, error)
	// Save durably writes the benefit's balance and bumps its version token.
	Save(ctx context.Context, b *domain.Benefit) error
}

// Repository defines the persistence operations for benefits.
type Repository interface {
	CreateBenefit(ctx context.Context, b *domain.Benefit) (*domain.Benefit, error)
	FindBenefitByID(ctx context.Context, id uuid.UUID) (*domain.Benefit, error)
	ListBenefits(ctx context.Context) ([]domain.Benefit, error)
	ListActiveBenefits(ctx context.Context) ([]domain.Benefit, error)
	// UpdateBenefit replaces the mutable fields. The write only applies when
	// b.Version matches the stored token; a mismatch yields ErrVersionConflict.
	UpdateBenefit(ctx context.Context, b *domain.Benefit) (*domain.Benefit, error)
	DeleteBenefit(ctx context.Context, id uuid.UUID) error

	// Atomic runs fn inside a single all-or-nothing unit of work. Writes made
	// through the Tx handle are committed only when fn returns nil; any error
	// rolls everything back.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
}
