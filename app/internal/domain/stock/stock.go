package stock

// Stock is the number of units a product currently has available.
type Stock struct {
	ID     int64
	Amount int64
}

// Allows reports whether amount units can be held in a cart.
func (s Stock) Allows(amount int64) bool {
	return amount <= s.Amount
}
