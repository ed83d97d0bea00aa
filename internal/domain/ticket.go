package domain

import "time"

// Ticket is the immutable record of a completed purchase. Tickets are
// append-only; nothing in the system updates or deletes them.
type Ticket struct {
	ID               string    `bson:"_id,omitempty" json:"-"`
	Code             string    `bson:"code" json:"code"`
	PurchaseDatetime time.Time `bson:"purchase_datetime" json:"purchase_datetime"`
	Amount           float64   `bson:"amount" json:"amount"`
	Purchaser        string    `bson:"purchaser" json:"purchaser"`
}
