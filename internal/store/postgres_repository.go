/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface using the pgx driver. Balances live in a numeric(15,2) column and
 * are scanned directly into shopspring decimals via the pgx decimal codec
 * registered at pool construction.
 *
 * Concurrency disciplines:
 * - Transfer path: `Atomic` wraps a database transaction; `FindForUpdate`
 *   issues `SELECT ... FOR UPDATE`, so the row lock lasts until commit or
 *   rollback and every `Save` inside the unit of work is all-or-nothing.
 * - Plain update path: compare-and-set on the version column; a stale token
 *   surfaces as ErrVersionConflict.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5, pgxpool: PostgreSQL driver and connection pool.
 * - github.com/google/uuid, github.com/shopspring/decimal: Identifier and money types.
 * - internal/domain: The benefit model.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beneficio/benefit-service/internal/domain"
)

const benefitColumns = "id, name, description, balance, active, version, created_at, updated_at"

// PostgresRepository implements Repository backed by PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new repository on top of a pgx pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type pgRow interface {
	Scan(dest ...any) error
}

func scanBenefit(row pgRow) (*domain.Benefit, error) {
	var b domain.Benefit
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Balance, &b.Active, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBenefit inserts a new benefit and returns the stored record.
func (r *PostgresRepository) CreateBenefit(ctx context.Context, b *domain.Benefit) (*domain.Benefit, error) {
	query := `
		INSERT INTO benefits (id, name, description, balance, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + benefitColumns

	id := b.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	created, err := scanBenefit(r.db.QueryRow(ctx, query, id, b.Name, b.Description, b.Balance, b.Active))
	if err != nil {
		return nil, fmt.Errorf("failed to insert benefit: %w", err)
	}
	return created, nil
}

// FindBenefitByID loads a single benefit without locking it.
func (r *PostgresRepository) FindBenefitByID(ctx context.Context, id uuid.UUID) (*domain.Benefit, error) {
	query := `SELECT ` + benefitColumns + ` FROM benefits WHERE id = $1`

	b, err := scanBenefit(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBenefitNotFound
		}
		return nil, fmt.Errorf("failed to query benefit: %w", err)
	}
	return b, nil
}

// ListBenefits returns every benefit, newest first.
func (r *PostgresRepository) ListBenefits(ctx context.Context) ([]domain.Benefit, error) {
	return r.list(ctx, `SELECT `+benefitColumns+` FROM benefits ORDER BY created_at DESC`)
}

// ListActiveBenefits returns only benefits whose active flag is set.
func (r *PostgresRepository) ListActiveBenefits(ctx context.Context) ([]domain.Benefit, error) {
	return r.list(ctx, `SELECT `+benefitColumns+` FROM benefits WHERE active ORDER BY created_at DESC`)
}

func (r *PostgresRepository) list(ctx context.Context, query string) ([]domain.Benefit, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list benefits: %w", err)
	}
	defer rows.Close()

	benefits := []domain.Benefit{}
	for rows.Next() {
		b, err := scanBenefit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan benefit row: %w", err)
		}
		benefits = append(benefits, *b)
	}
	return benefits, rows.Err()
}

// UpdateBenefit applies a compare-and-set write keyed on the version token.
func (r *PostgresRepository) UpdateBenefit(ctx context.Context, b *domain.Benefit) (*domain.Benefit, error) {
	query := `
		UPDATE benefits
		SET name = $1, description = $2, balance = $3, active = $4,
		    version = version + 1, updated_at = now()
		WHERE id = $5 AND version = $6
		RETURNING ` + benefitColumns

	updated, err := scanBenefit(r.db.QueryRow(ctx, query, b.Name, b.Description, b.Balance, b.Active, b.ID, b.Version))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update benefit: %w", err)
	}

	// No row matched: distinguish a missing benefit from a stale token.
	if _, findErr := r.FindBenefitByID(ctx, b.ID); findErr != nil {
		return nil, findErr
	}
	return nil, ErrVersionConflict
}

// DeleteBenefit removes a benefit record.
func (r *PostgresRepository) DeleteBenefit(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM benefits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete benefit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBenefitNotFound
	}
	return nil
}

// Atomic runs fn inside a database transaction. The transaction commits only
// when fn returns nil; row locks taken via FindForUpdate are held to the end.
func (r *PostgresRepository) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// pgTx adapts a pgx transaction to the Tx contract.
type pgTx struct {
	tx pgx.Tx
}

// FindForUpdate locks the benefit row for the remainder of the transaction.
func (t *pgTx) FindForUpdate(ctx context.Context, id uuid.UUID) (*domain.Benefit, error) {
	query := `SELECT ` + benefitColumns + ` FROM benefits WHERE id = $1 FOR UPDATE`

	b, err := scanBenefit(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBenefitNotFound
		}
		return nil, fmt.Errorf("failed to lock benefit: %w", err)
	}
	return b, nil
}

// Save writes the benefit's balance and bumps the version token. Only called
// on rows already locked by FindForUpdate within the same transaction.
func (t *pgTx) Save(ctx context.Context, b *domain.Benefit) error {
	query := `
		UPDATE benefits
		SET balance = $1, version = version + 1, updated_at = now()
		WHERE id = $2
		RETURNING version`

	if err := t.tx.QueryRow(ctx, query, b.Balance, b.ID).Scan(&b.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBenefitNotFound
		}
		return fmt.Errorf("failed to save benefit: %w", err)
	}
	return nil
}
