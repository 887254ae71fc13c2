package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-hall-booking/internal/apperr"
	"github.com/iliyamo/cinema-hall-booking/internal/model"
)

// BookingRepo runs the ticket purchase as one transaction over the seat,
// account and ticket tables.
type BookingRepo struct {
	db       *sqlx.DB
	seats    *SeatRepo
	accounts *AccountRepo
	tickets  *TicketRepo
}

// NewBookingRepo wires a BookingRepo from the per-table repositories.  All
// of them must share db so the transaction covers every write.
func NewBookingRepo(db *sqlx.DB, seats *SeatRepo, accounts *AccountRepo, tickets *TicketRepo) *BookingRepo {
	if seats == nil || accounts == nil || tickets == nil {
		panic("nil repository passed to NewBookingRepo")
	}
	return &BookingRepo{db: db, seats: seats, accounts: accounts, tickets: tickets}
}

// Purchase occupies seat for account and records a ticket with the given
// code.  The seat row is locked first, so of two concurrent purchases of
// the same seat the second one waits, then sees the seat occupied and
// fails with apperr.Unavailable.  Any failure rolls back every write.
func (r *BookingRepo) Purchase(ctx context.Context, seat model.Seat, account model.Account, code string) (*model.Ticket, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin purchase: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rec, err := r.seats.LockTx(ctx, tx, seat.Row, seat.Number)
	if err != nil {
		if errors.Is(err, ErrSeatNotFound) {
			return nil, apperr.New(apperr.OutOfRange, fmt.Sprintf("seat %s is not in the hall", seat.Code()))
		}
		return nil, fmt.Errorf("lock seat: %w", err)
	}
	if rec.Occupied {
		return nil, apperr.New(apperr.Unavailable, fmt.Sprintf("seat %s is already occupied", seat.Code()))
	}
	ok, err := r.seats.OccupyTx(ctx, tx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("occupy seat: %w", err)
	}
	if !ok {
		return nil, apperr.New(apperr.Unavailable, fmt.Sprintf("seat %s is already occupied", seat.Code()))
	}

	accountID, err := r.accounts.IDByNameTx(ctx, tx, account.Name)
	switch {
	case err == nil:
		if err := r.accounts.UpdatePhoneTx(ctx, tx, &account); err != nil {
			return nil, fmt.Errorf("update account: %w", err)
		}
	case errors.Is(err, ErrAccountNotFound):
		if err := r.accounts.InsertTx(ctx, tx, &account); err != nil {
			return nil, fmt.Errorf("insert account: %w", err)
		}
		accountID = account.ID
	default:
		return nil, fmt.Errorf("find account: %w", err)
	}

	ticket := &TicketRecord{
		Code:      code,
		SeatID:    rec.ID,
		AccountID: accountID,
		Price:     rec.Price,
	}
	if err := r.tickets.CreateTx(ctx, tx, ticket); err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase: %w", err)
	}
	committed = true

	return &model.Ticket{
		ID:          ticket.ID,
		Code:        ticket.Code,
		Row:         rec.Row,
		Number:      rec.Number,
		AccountName: account.Name,
		Price:       ticket.Price,
		CreatedAt:   ticket.CreatedAt,
	}, nil
}
