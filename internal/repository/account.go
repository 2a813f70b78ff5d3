package repository

import (
	"context"
	"errors"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"staking-engine/internal/model"
)

// AccountKind tags the record stored at an address.
type AccountKind int16

// Record kinds.
const (
	KindPool AccountKind = iota
	KindUser
	KindPackage
)

// AccountRepository persists program records in their on-ledger byte
// layout, one row per address.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	return &AccountRepository{db: tx}
}

// load reads the raw record at addr. With forUpdate the row stays locked
// until the surrounding transaction ends.
func (r *AccountRepository) load(ctx context.Context, addr solana.PublicKey, kind AccountKind, forUpdate bool) ([]byte, error) {
	query := `SELECT kind, data FROM accounts WHERE address = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		got  AccountKind
		data []byte
	)
	err := r.db.QueryRow(ctx, query, addr.String()).Scan(&got, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account %s: %w", addr, err)
	}
	if got != kind {
		return nil, fmt.Errorf("%w: %s", ErrKindMismatch, addr)
	}
	return data, nil
}

func (r *AccountRepository) store(ctx context.Context, addr solana.PublicKey, kind AccountKind, owner solana.PublicKey, status int16, data []byte) error {
	const query = `
		INSERT INTO accounts (address, kind, owner, status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (address)
		DO UPDATE SET status = EXCLUDED.status, data = EXCLUDED.data, updated_at = NOW()
		WHERE accounts.kind = EXCLUDED.kind
	`
	tag, err := r.db.Exec(ctx, query, addr.String(), kind, owner.String(), status, data)
	if err != nil {
		return fmt.Errorf("failed to store account %s: %w", addr, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrKindMismatch, addr)
	}
	return nil
}

// Exists reports whether any record is stored at addr.
func (r *AccountRepository) Exists(ctx context.Context, addr solana.PublicKey) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE address = $1)`, addr.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account %s: %w", addr, err)
	}
	return exists, nil
}

// GetPool loads the pool record at addr.
func (r *AccountRepository) GetPool(ctx context.Context, addr solana.PublicKey, forUpdate bool) (*model.Pool, error) {
	data, err := r.load(ctx, addr, KindPool, forUpdate)
	if err != nil {
		return nil, err
	}
	return model.DecodePool(data)
}

// PutPool stores the pool record at addr.
func (r *AccountRepository) PutPool(ctx context.Context, addr solana.PublicKey, pool *model.Pool) error {
	data, err := model.EncodePool(pool)
	if err != nil {
		return err
	}
	return r.store(ctx, addr, KindPool, pool.Admin, 0, data)
}

// GetUser loads the user record at addr.
func (r *AccountRepository) GetUser(ctx context.Context, addr solana.PublicKey, forUpdate bool) (*model.User, error) {
	data, err := r.load(ctx, addr, KindUser, forUpdate)
	if err != nil {
		return nil, err
	}
	return model.DecodeUser(data)
}

// PutUser stores the user record at addr.
func (r *AccountRepository) PutUser(ctx context.Context, addr solana.PublicKey, user *model.User) error {
	data, err := model.EncodeUser(user)
	if err != nil {
		return err
	}
	return r.store(ctx, addr, KindUser, user.User, 0, data)
}

// GetPackage loads the package with the given id.
func (r *AccountRepository) GetPackage(ctx context.Context, id solana.PublicKey, forUpdate bool) (*model.Package, error) {
	data, err := r.load(ctx, id, KindPackage, forUpdate)
	if err != nil {
		return nil, err
	}
	return model.DecodePackage(data)
}

// PutPackage stores a package under its id.
func (r *AccountRepository) PutPackage(ctx context.Context, pkg *model.Package) error {
	data, err := model.EncodePackage(pkg)
	if err != nil {
		return err
	}
	return r.store(ctx, pkg.ID, KindPackage, pkg.Owner, int16(pkg.Status), data)
}

// ListPackages returns the packages of owner in creation order.
func (r *AccountRepository) ListPackages(ctx context.Context, owner solana.PublicKey) ([]*model.Package, error) {
	const query = `
		SELECT data
		FROM accounts
		WHERE owner = $1 AND kind = $2
		ORDER BY created_at, address
	`
	return r.queryPackages(ctx, query, owner.String(), KindPackage)
}

// ActivePackages returns every package still accruing.
func (r *AccountRepository) ActivePackages(ctx context.Context) ([]*model.Package, error) {
	const query = `
		SELECT data
		FROM accounts
		WHERE kind = $1 AND status = $2
		ORDER BY created_at, address
	`
	return r.queryPackages(ctx, query, KindPackage, int16(model.PackageActive))
}

func (r *AccountRepository) queryPackages(ctx context.Context, query string, args ...any) ([]*model.Package, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var packages []*model.Package
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		pkg, err := model.DecodePackage(data)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating packages: %w", err)
	}

	return packages, nil
}

// ListUsers returns every user record.
func (r *AccountRepository) ListUsers(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.Query(ctx, `SELECT data FROM accounts WHERE kind = $1 ORDER BY created_at, address`, KindUser)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user, err := model.DecodeUser(data)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
