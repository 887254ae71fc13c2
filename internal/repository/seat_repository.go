package repository // repository defines data access for seats

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-hall-booking/internal/model"
)

// SeatRecord is a seat row together with its surrogate key.  The key is
// only needed inside the booking transaction to link the ticket.
type SeatRecord struct {
	ID uint64 `db:"id"`
	model.Seat
}

// SeatRepo provides methods to work with the seats table.
type SeatRepo struct {
	db *sqlx.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sqlx.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

func (r *SeatRepo) cmd(tx *sqlx.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.db
}

// ListAll returns every seat of the hall ordered by row then number.
func (r *SeatRepo) ListAll(ctx context.Context) ([]model.Seat, error) {
	const q = `SELECT seat_row, seat_number, occupied, price
	           FROM seats
	           ORDER BY seat_row, seat_number`
	seats := make([]model.Seat, 0)
	if err := r.db.SelectContext(ctx, &seats, q); err != nil {
		return nil, err
	}
	return seats, nil
}

// ListByOccupied returns the free (occupied=false) or taken seats ordered
// by row then number.
func (r *SeatRepo) ListByOccupied(ctx context.Context, occupied bool) ([]model.Seat, error) {
	const q = `SELECT seat_row, seat_number, occupied, price
	           FROM seats
	           WHERE occupied = ?
	           ORDER BY seat_row, seat_number`
	seats := make([]model.Seat, 0)
	if err := r.db.SelectContext(ctx, &seats, q, occupied); err != nil {
		return nil, err
	}
	return seats, nil
}

// Get loads a single seat.  ErrSeatNotFound when the hall has no such seat.
func (r *SeatRepo) Get(ctx context.Context, row, number int) (*model.Seat, error) {
	const q = `SELECT seat_row, seat_number, occupied, price
	           FROM seats WHERE seat_row = ? AND seat_number = ?`
	var s model.Seat
	if err := r.db.GetContext(ctx, &s, q, row, number); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Exists reports whether the hall contains a seat at row/number.
func (r *SeatRepo) Exists(ctx context.Context, row, number int) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM seats WHERE seat_row = ? AND seat_number = ?)`
	var found bool
	if err := r.db.GetContext(ctx, &found, q, row, number); err != nil {
		return false, err
	}
	return found, nil
}

// Price returns the current price of a seat.
func (r *SeatRepo) Price(ctx context.Context, row, number int) (int, error) {
	const q = `SELECT price FROM seats WHERE seat_row = ? AND seat_number = ?`
	var price int
	if err := r.db.GetContext(ctx, &price, q, row, number); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrSeatNotFound
		}
		return 0, err
	}
	return price, nil
}

// SetOccupied moves a seat into the requested state.  The update only
// matches when the seat is currently in the opposite state, so the
// returned flag is false when the seat was already where the caller
// wanted it (or does not exist).
func (r *SeatRepo) SetOccupied(ctx context.Context, row, number int, occupied bool) (bool, error) {
	const q = `UPDATE seats
	           SET occupied = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE seat_row = ? AND seat_number = ? AND occupied = ?`
	res, err := r.db.ExecContext(ctx, q, occupied, row, number, !occupied)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Layout returns the highest row and seat number stored.  An empty hall
// yields a zero layout.
func (r *SeatRepo) Layout(ctx context.Context) (model.HallLayout, error) {
	const q = `SELECT COALESCE(MAX(seat_row), 0) AS max_row, COALESCE(MAX(seat_number), 0) AS max_number
	           FROM seats`
	var l model.HallLayout
	if err := r.db.GetContext(ctx, &l, q); err != nil {
		return model.HallLayout{}, err
	}
	return l, nil
}

// LockTx reads a seat with an exclusive row lock held until the
// transaction ends.  Concurrent purchases of the same seat queue here.
func (r *SeatRepo) LockTx(ctx context.Context, tx *sqlx.Tx, row, number int) (*SeatRecord, error) {
	const q = `SELECT id, seat_row, seat_number, occupied, price
	           FROM seats WHERE seat_row = ? AND seat_number = ?
	           FOR UPDATE`
	var rec SeatRecord
	if err := r.cmd(tx).GetContext(ctx, &rec, q, row, number); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// OccupyTx marks a locked seat as occupied.  It returns false when the
// seat was already occupied.
func (r *SeatRepo) OccupyTx(ctx context.Context, tx *sqlx.Tx, id uint64) (bool, error) {
	const q = `UPDATE seats
	           SET occupied = TRUE, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND occupied = FALSE`
	res, err := r.cmd(tx).ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
