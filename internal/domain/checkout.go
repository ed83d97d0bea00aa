package domain

// CheckoutResult summarizes one checkout pass. It is returned to the caller
// and never persisted; the Ticket it points at is.
type CheckoutResult struct {
	Total               float64
	Ticket              *Ticket
	ProductsUnavailable []string
}
