package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-hall-booking/internal/model"
)

// TicketRecord mirrors the tickets table.  It is only used for inserts;
// reads return model.Ticket with the seat and account resolved.
type TicketRecord struct {
	ID        uint64
	Code      string
	SeatID    uint64
	AccountID uint64
	Price     int
	CreatedAt time.Time
}

// TicketRepo provides insert and lookup for tickets.  There is no update
// or delete path: a ticket is immutable once the purchase commits.
type TicketRepo struct {
	db *sqlx.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sqlx.DB) *TicketRepo { return &TicketRepo{db: db} }

// CreateTx inserts a ticket within tx and populates the generated ID.  A
// zero CreatedAt is replaced with the current UTC time.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, t *TicketRecord) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	const q = `INSERT INTO tickets (code, seat_id, account_id, price, created_at) VALUES (?, ?, ?, ?, ?)`
	var cmd querier = r.db
	if tx != nil {
		cmd = tx
	}
	res, err := cmd.ExecContext(ctx, q, t.Code, t.SeatID, t.AccountID, t.Price, t.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByCode loads a ticket by its public code.
func (r *TicketRepo) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	const q = `SELECT t.id, t.code, s.seat_row, s.seat_number, a.name, t.price, t.created_at
	           FROM tickets t
	           JOIN seats s ON s.id = t.seat_id
	           JOIN accounts a ON a.id = t.account_id
	           WHERE t.code = ?`
	var t model.Ticket
	if err := r.db.GetContext(ctx, &t, q, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}
