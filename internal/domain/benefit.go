/**
 * @description
 * This file defines the core domain model for the benefit-service: the `Benefit`
 * entity, a named account holding a monetary balance, plus the request payloads
 * accepted by the service layer. Balances are fixed-point decimals with a scale
 * of two; binary floating point is never used for money.
 *
 * @dependencies
 * - github.com/google/uuid: Benefit identifiers.
 * - github.com/shopspring/decimal: Exact decimal arithmetic for balances.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MaxNameLength is the longest accepted benefit name.
	MaxNameLength = 100
	// MaxDescriptionLength is the longest accepted benefit description.
	MaxDescriptionLength = 255
)

// Benefit is an account holding a monetary balance.
//
// Version is a monotonically increasing conflict token. It is bumped on every
// committed mutation and compared on the plain update path to detect concurrent
// modification; the transfer path relies on exclusive locks instead.
type Benefit struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Balance     decimal.Decimal `json:"balance"`
	Active      bool            `json:"active"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateBenefitRequest is the payload for creating a new benefit.
// Active defaults to true when omitted.
type CreateBenefitRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Balance     decimal.Decimal `json:"balance"`
	Active      *bool           `json:"active"`
}

// UpdateBenefitRequest is the payload for replacing a benefit's mutable fields.
// Version, when non-zero, must match the stored conflict token.
type UpdateBenefitRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Balance     decimal.Decimal `json:"balance"`
	Active      *bool           `json:"active"`
	Version     int64           `json:"version"`
}

// TransferRequest asks to move Amount from one benefit's balance to another's.
type TransferRequest struct {
	FromID uuid.UUID       `json:"from_id"`
	ToID   uuid.UUID       `json:"to_id"`
	Amount decimal.Decimal `json:"amount"`
}
