package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"staking-engine/internal/model"
)

// OperationRepository appends to and reads the operation journal.
type OperationRepository struct {
	db DBTX
}

// NewOperationRepository creates a new OperationRepository instance.
func NewOperationRepository(db DBTX) *OperationRepository {
	return &OperationRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *OperationRepository) WithTx(tx pgx.Tx) *OperationRepository {
	return &OperationRepository{db: tx}
}

// Record appends op to the journal, assigning its id and creation time.
func (r *OperationRepository) Record(ctx context.Context, op *model.Operation) error {
	const query = `
		INSERT INTO operations (id, op, signer, account, amount, status, error_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`

	id := uuid.New()
	if op.ID != "" {
		parsed, err := uuid.Parse(op.ID)
		if err != nil {
			return fmt.Errorf("invalid operation id %q: %w", op.ID, err)
		}
		id = parsed
	}
	err := r.db.QueryRow(ctx, query,
		id, op.Op, op.Signer, op.Account, numeric(op.Amount), op.Status, op.ErrorCode,
	).Scan(&op.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}
	op.ID = id.String()
	return nil
}

// ListBySigner returns the most recent operations of signer, newest first.
func (r *OperationRepository) ListBySigner(ctx context.Context, signer string, limit int) ([]*model.Operation, error) {
	const query = `
		SELECT id, op, signer, account, amount, status, error_code, created_at
		FROM operations
		WHERE signer = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, signer, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get operations: %w", err)
	}
	defer rows.Close()

	var ops []*model.Operation
	for rows.Next() {
		var (
			op     model.Operation
			id     uuid.UUID
			amount decimal.Decimal
		)
		err := rows.Scan(
			&id,
			&op.Op,
			&op.Signer,
			&op.Account,
			&amount,
			&op.Status,
			&op.ErrorCode,
			&op.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		op.ID = id.String()
		if op.Amount, err = fromNumeric(amount); err != nil {
			return nil, err
		}
		ops = append(ops, &op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}

	return ops, nil
}
