package cart

import (
	"encoding/json"
	"fmt"

	domproduct "example.com/storefront-cart/app/internal/domain/product"
)

// record is the persisted shape of a line-item.
type record struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Image  string  `json:"image"`
	Amount int64   `json:"amount"`
}

// Encode serializes the whole cart as a JSON array of line-items.
func Encode(c Cart) ([]byte, error) {
	records := make([]record, 0, len(c.Items))
	for _, item := range c.Items {
		records = append(records, record{
			ID:     item.ID,
			Title:  item.Title,
			Price:  item.Price,
			Image:  item.Image,
			Amount: item.Amount,
		})
	}
	return json.Marshal(records)
}

// Decode parses a payload produced by Encode. Entries with a non-positive
// amount and duplicate IDs after the first are dropped.
func Decode(data []byte) (Cart, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}

	c := Cart{Items: make([]Item, 0, len(records))}
	seen := make(map[int64]struct{}, len(records))
	for _, r := range records {
		if r.Amount <= 0 {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		c.Items = append(c.Items, Item{
			Product: domproduct.Product{
				ID:    r.ID,
				Title: r.Title,
				Price: r.Price,
				Image: r.Image,
			},
			Amount: r.Amount,
		})
	}
	return c, nil
}
