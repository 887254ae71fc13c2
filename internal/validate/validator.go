// Package validate guards seat and account arguments before any storage
// mutation happens.  Hall bounds are not a constant: a seat is in range
// only if storage holds it.
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-hall-booking/internal/apperr"
	"github.com/iliyamo/cinema-hall-booking/internal/model"
)

// SeatLocator answers whether the hall contains a seat.
type SeatLocator interface {
	Exists(ctx context.Context, row, number int) (bool, error)
}

// Validator checks arguments against the stored hall.
type Validator struct {
	seats SeatLocator
}

// New returns a Validator backed by seats.
func New(seats SeatLocator) *Validator {
	if seats == nil {
		panic("nil seat locator passed to validate.New")
	}
	return &Validator{seats: seats}
}

// CheckSeat fails with NullReference for a nil seat and OutOfRange when
// the coordinates are not part of the hall.  Lookup errors are returned
// as SystemFailure.
func (v *Validator) CheckSeat(ctx context.Context, seat *model.Seat) error {
	if seat == nil {
		return apperr.New(apperr.NullReference, "seat is required")
	}
	if seat.Row < 1 || seat.Number < 1 {
		return apperr.New(apperr.OutOfRange, fmt.Sprintf("seat row %d number %d is out of the hall", seat.Row, seat.Number))
	}
	ok, err := v.seats.Exists(ctx, seat.Row, seat.Number)
	if err != nil {
		return apperr.System(err, "check seat")
	}
	if !ok {
		return apperr.New(apperr.OutOfRange, fmt.Sprintf("seat row %d number %d is out of the hall", seat.Row, seat.Number))
	}
	return nil
}

// CheckAccount fails with NullReference for a nil account or one without
// a name.
func (v *Validator) CheckAccount(account *model.Account) error {
	if account == nil || strings.TrimSpace(account.Name) == "" {
		return apperr.New(apperr.NullReference, "account name is required")
	}
	return nil
}
