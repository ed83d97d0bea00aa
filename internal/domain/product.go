package domain

import "time"

type Product struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Price     float64   `bson:"price" json:"price"`
	Category  string    `bson:"category" json:"category"`
	Stock     int       `bson:"stock" json:"stock"`
	Available bool      `bson:"available" json:"available"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Purchasable reports whether the product can satisfy a request for the
// given quantity right now.
func (p *Product) Purchasable(quantity int) bool {
	return p.Available && p.Stock >= quantity
}
