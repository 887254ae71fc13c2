package model

import (
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-hall-booking/internal/apperr"
)

// MaxSeatIndex is the highest row and seat number a two digit seat code
// can address.
const MaxSeatIndex = 9

// Seat describes a bookable position in the hall.  Seats are uniquely
// identified by their row and number (both 1-based); the occupied flag and
// the price (whole currency units) change as tickets are bought or seats
// are released.
type Seat struct {
	Row      int  `json:"row" db:"seat_row"`       // seats.seat_row
	Number   int  `json:"number" db:"seat_number"` // seats.seat_number
	Occupied bool `json:"occupied" db:"occupied"`  // seats.occupied
	Price    int  `json:"price" db:"price"`        // seats.price
}

// Code renders the seat the way the hall front-end addresses it: the
// row digit followed by the number digit.
func (s Seat) Code() string {
	return fmt.Sprintf("%d%d", s.Row, s.Number)
}

// ParseSeatCode turns a two digit seat code ("12" = row 1, seat 2) into
// a Seat.  An empty code is a missing argument; anything else that is
// not exactly two digits is reported as out of range.
func ParseSeatCode(code string) (*Seat, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.New(apperr.NullReference, "seat code is required")
	}
	if len(code) != 2 || !isDigit(code[0]) || !isDigit(code[1]) {
		return nil, apperr.New(apperr.OutOfRange, fmt.Sprintf("seat code %q is not a row and number pair", code))
	}
	return &Seat{Row: int(code[0] - '0'), Number: int(code[1] - '0')}, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
