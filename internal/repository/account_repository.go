package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-hall-booking/internal/model"
)

// AccountRepo stores buyer accounts keyed by name.  There is no atomic
// upsert: callers check Exists and then choose Insert or UpdatePhone.
type AccountRepo struct {
	db *sqlx.DB
}

// NewAccountRepo returns a new AccountRepo bound to the given database.
func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

func (r *AccountRepo) cmd(tx *sqlx.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.db
}

// Exists reports whether an account with the given name is stored.
func (r *AccountRepo) Exists(ctx context.Context, name string) (bool, error) {
	_, err := r.IDByNameTx(ctx, nil, name)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert creates a new account and populates its ID.
func (r *AccountRepo) Insert(ctx context.Context, a *model.Account) error {
	return r.InsertTx(ctx, nil, a)
}

// UpdatePhone overwrites the phone of the account named a.Name.
func (r *AccountRepo) UpdatePhone(ctx context.Context, a *model.Account) error {
	return r.UpdatePhoneTx(ctx, nil, a)
}

// IDByNameTx returns the id of the named account, locking the row when
// called inside a transaction.
func (r *AccountRepo) IDByNameTx(ctx context.Context, tx *sqlx.Tx, name string) (uint64, error) {
	q := `SELECT id FROM accounts WHERE name = ?`
	if tx != nil {
		q += ` FOR UPDATE`
	}
	var id uint64
	if err := r.cmd(tx).GetContext(ctx, &id, q, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return id, nil
}

// InsertTx inserts an account within tx (or the pool when tx is nil).
func (r *AccountRepo) InsertTx(ctx context.Context, tx *sqlx.Tx, a *model.Account) error {
	const q = `INSERT INTO accounts (name, phone) VALUES (?, ?)`
	res, err := r.cmd(tx).ExecContext(ctx, q, a.Name, a.Phone)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateAccount, a.Name)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// UpdatePhoneTx overwrites the phone of an existing account.  MySQL
// reports zero affected rows when the phone is unchanged, so the row
// count is not inspected.
func (r *AccountRepo) UpdatePhoneTx(ctx context.Context, tx *sqlx.Tx, a *model.Account) error {
	const q = `UPDATE accounts SET phone = ?, updated_at = CURRENT_TIMESTAMP WHERE name = ?`
	_, err := r.cmd(tx).ExecContext(ctx, q, a.Phone, a.Name)
	return err
}
