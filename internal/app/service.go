/**
 * @description
 * This file contains the core business logic for the benefit-service. The
 * `Service` struct implements the CRUD use cases around benefits and the
 * transfer orchestrator that moves value between two benefits atomically.
 *
 * Transfer algorithm:
 * 1. Structural validation (ids present, amount positive, no self-transfer)
 *    fails fast without touching storage or taking locks.
 * 2. The lock coordinator takes exclusive holds on both benefits in canonical
 *    (ascending identifier) order, with a bounded wait.
 * 3. Inside an all-or-nothing storage unit of work, both benefits are
 *    re-fetched under row locks — state may have changed since any earlier
 *    read — and the full precondition list is re-validated.
 * 4. On success both balances are mutated with exact decimal arithmetic and
 *    saved; the commit is atomic, so a concurrent reader never observes a
 *    half-applied transfer. Any rejection leaves both balances untouched.
 * 5. Locks are released on every exit path via deferred scopes.
 *
 * @dependencies
 * - github.com/google/uuid, github.com/shopspring/decimal: Identifier and money types.
 * - go.uber.org/zap: Structured logging.
 * - internal/domain, internal/lock, internal/store: Model, lock coordinator, persistence.
 * - pkg/rabbitmq: Transfer event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/beneficio/benefit-service/internal/domain"
	"github.com/beneficio/benefit-service/internal/lock"
	"github.com/beneficio/benefit-service/internal/store"
	"github.com/beneficio/benefit-service/pkg/rabbitmq"
)

// Service provides the business logic for benefits.
type Service struct {
	repo   store.Repository
	locks  *lock.Coordinator
	events rabbitmq.Publisher
	logger *zap.Logger
}

// NewService creates a new service instance. The producer may be nil when no
// message broker is configured; the logger may be nil.
func NewService(repo store.Repository, locks *lock.Coordinator, producer rabbitmq.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		locks:  locks,
		events: producer,
		logger: logger,
	}
}

// CreateBenefit validates and stores a new benefit. Active defaults to true.
func (s *Service) CreateBenefit(ctx context.Context, req domain.CreateBenefitRequest) (*domain.Benefit, error) {
	name := strings.TrimSpace(req.Name)
	if err := domain.ValidateBenefit(name, req.Description, req.Balance); err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	created, err := s.repo.CreateBenefit(ctx, &domain.Benefit{
		Name:        name,
		Description: req.Description,
		Balance:     req.Balance,
		Active:      active,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create benefit: %w", err)
	}

	s.logger.Info("benefit created",
		zap.String("component", "service"),
		zap.String("benefit_id", created.ID.String()),
	)
	return created, nil
}

// GetBenefit loads a single benefit.
func (s *Service) GetBenefit(ctx context.Context, id uuid.UUID) (*domain.Benefit, error) {
	b, err := s.repo.FindBenefitByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, id)
	}
	return b, nil
}

// ListBenefits returns every benefit.
func (s *Service) ListBenefits(ctx context.Context) ([]domain.Benefit, error) {
	return s.repo.ListBenefits(ctx)
}

// ListActiveBenefits returns only active benefits.
func (s *Service) ListActiveBenefits(ctx context.Context) ([]domain.Benefit, error) {
	return s.repo.ListActiveBenefits(ctx)
}

// UpdateBenefit replaces a benefit's mutable fields. When the request carries
// a version token it must match the stored one; a zero token skips the check
// by adopting the current version.
func (s *Service) UpdateBenefit(ctx context.Context, id uuid.UUID, req domain.UpdateBenefitRequest) (*domain.Benefit, error) {
	name := strings.TrimSpace(req.Name)
	if err := domain.ValidateBenefit(name, req.Description, req.Balance); err != nil {
		return nil, err
	}

	current, err := s.repo.FindBenefitByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, id)
	}

	version := req.Version
	if version == 0 {
		version = current.Version
	}

	active := current.Active
	if req.Active != nil {
		active = *req.Active
	}

	updated, err := s.repo.UpdateBenefit(ctx, &domain.Benefit{
		ID:          id,
		Name:        name,
		Description: req.Description,
		Balance:     req.Balance,
		Active:      active,
		Version:     version,
	})
	if err != nil {
		return nil, mapStoreError(err, id)
	}

	s.logger.Info("benefit updated",
		zap.String("component", "service"),
		zap.String("benefit_id", id.String()),
		zap.Int64("version", updated.Version),
	)
	return updated, nil
}

// DeleteBenefit removes a benefit. The per-benefit lock is held for the
// duration so a delete never races a transfer in flight against the same
// benefit.
func (s *Service) DeleteBenefit(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.NewRejection(domain.RejectionInvalidArgument, "benefit id is required")
	}

	err := s.locks.WithLock(ctx, id, func() error {
		return s.repo.DeleteBenefit(ctx, id)
	})
	if err != nil {
		return mapStoreError(err, id)
	}

	s.logger.Info("benefit deleted",
		zap.String("component", "service"),
		zap.String("benefit_id", id.String()),
	)
	return nil
}

// Transfer atomically moves amount from one benefit's balance to another's.
// Exactly two balance mutations happen on success, zero on any rejection.
func (s *Service) Transfer(ctx context.Context, fromID, toID uuid.UUID, amount decimal.Decimal) error {
	// Fail fast before any lock or storage access.
	if err := domain.ValidateTransferInput(fromID, toID, amount); err != nil {
		s.logTransferReject(fromID, toID, amount, err)
		return err
	}

	var fromAfter, toAfter decimal.Decimal

	err := s.locks.WithLocks(ctx, fromID, toID, func() error {
		return s.repo.Atomic(ctx, func(tx store.Tx) error {
			from, to, err := fetchPairForUpdate(ctx, tx, fromID, toID)
			if err != nil {
				return err
			}

			if err := domain.ValidateTransfer(fromID, toID, amount, from, to); err != nil {
				return err
			}

			from.Balance = from.Balance.Sub(amount)
			to.Balance = to.Balance.Add(amount)

			if err := tx.Save(ctx, from); err != nil {
				return fmt.Errorf("failed to save source benefit: %w", err)
			}
			if err := tx.Save(ctx, to); err != nil {
				return fmt.Errorf("failed to save destination benefit: %w", err)
			}

			fromAfter, toAfter = from.Balance, to.Balance
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			err = domain.NewRejection(domain.RejectionConcurrencyConflict,
				"transfer %s -> %s raced a concurrent update; retry", fromID, toID)
		}
		s.logTransferReject(fromID, toID, amount, err)
		return err
	}

	s.logger.Info("transfer completed",
		zap.String("component", "service"),
		zap.String("from_id", fromID.String()),
		zap.String("to_id", toID.String()),
		zap.String("amount", amount.String()),
	)
	s.publishTransferCompleted(ctx, fromID, toID, amount, fromAfter, toAfter)
	return nil
}

// fetchPairForUpdate locks both rows in ascending identifier order — the same
// canonical order the lock coordinator uses — then hands the snapshots back as
// (from, to). A missing benefit becomes a nil snapshot for the validator.
func fetchPairForUpdate(ctx context.Context, tx store.Tx, fromID, toID uuid.UUID) (*domain.Benefit, *domain.Benefit, error) {
	firstID, secondID := fromID, toID
	if secondID.String() < firstID.String() {
		firstID, secondID = secondID, firstID
	}

	first, err := tx.FindForUpdate(ctx, firstID)
	if err != nil && !errors.Is(err, store.ErrBenefitNotFound) {
		return nil, nil, err
	}
	second, err := tx.FindForUpdate(ctx, secondID)
	if err != nil && !errors.Is(err, store.ErrBenefitNotFound) {
		return nil, nil, err
	}

	if firstID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

func (s *Service) logTransferReject(fromID, toID uuid.UUID, amount decimal.Decimal, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		s.logger.Error("transfer failed",
			zap.String("component", "service"),
			zap.String("from_id", fromID.String()),
			zap.String("to_id", toID.String()),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("transfer rejected",
		zap.String("component", "service"),
		zap.String("from_id", fromID.String()),
		zap.String("to_id", toID.String()),
		zap.String("amount", amount.String()),
		zap.String("reason", string(kind)),
	)
}

func (s *Service) publishTransferCompleted(ctx context.Context, fromID, toID uuid.UUID, amount, fromBalance, toBalance decimal.Decimal) {
	if s.events == nil {
		return
	}

	event := rabbitmq.TransferCompletedEvent{
		FromID:      fromID,
		ToID:        toID,
		Amount:      amount,
		FromBalance: fromBalance,
		ToBalance:   toBalance,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.events.PublishTransferCompleted(ctx, event); err != nil {
		// Event delivery is best-effort; the transfer is already committed.
		s.logger.Warn("transfer event publish failed",
			zap.String("component", "service"),
			zap.String("from_id", fromID.String()),
			zap.String("to_id", toID.String()),
			zap.Error(err),
		)
	}
}

// mapStoreError translates storage sentinels into the rejection taxonomy.
func mapStoreError(err error, id uuid.UUID) error {
	switch {
	case errors.Is(err, store.ErrBenefitNotFound):
		return domain.NewRejection(domain.RejectionNotFound, "benefit not found: %s", id)
	case errors.Is(err, store.ErrVersionConflict):
		return domain.NewRejection(domain.RejectionConcurrencyConflict,
			"benefit %s was modified concurrently; reload and retry", id)
	default:
		return err
	}
}
