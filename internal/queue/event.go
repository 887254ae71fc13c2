// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketPurchasedQueue is the durable queue carrying TicketPurchasedEvent.
const TicketPurchasedQueue = "ticket.purchased"

// TicketPurchasedEvent is published after a purchase commits.  It carries
// enough for downstream consumers to log or notify without querying the
// database.
type TicketPurchasedEvent struct {
	TicketCode  string `json:"ticket_code"`
	Row         int    `json:"row"`
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Price       int    `json:"price"`
	PurchasedAt string `json:"purchased_at"`
}
