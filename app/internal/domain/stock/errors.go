package stock

import "errors"

var (
	ErrStockNotFound = errors.New("stock not found")
)
