package model

import "time"

// Ticket links one seat to one account and represents a completed
// purchase.  Code is the public reference (UUID) handed to the buyer and
// Price is the seat price at the moment of purchase.  Tickets are written
// once inside the booking transaction and never modified or deleted
// afterwards.
type Ticket struct {
	ID          uint64    `json:"-" db:"id"`
	Code        string    `json:"code" db:"code"`
	Row         int       `json:"row" db:"seat_row"`
	Number      int       `json:"number" db:"seat_number"`
	AccountName string    `json:"name" db:"name"`
	Price       int       `json:"price" db:"price"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
