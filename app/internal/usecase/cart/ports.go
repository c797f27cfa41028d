package cart

import (
	"context"

	domcart "example.com/storefront-cart/app/internal/domain/cart"
	domproduct "example.com/storefront-cart/app/internal/domain/product"
	domstock "example.com/storefront-cart/app/internal/domain/stock"
)

type ProductCatalog interface {
	domproduct.Repository
}

type StockLookup interface {
	domstock.Repository
}

type CartRepository interface {
	domcart.Repository
}

// Notifier delivers a user-facing message. It is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

const (
	MsgOutOfStock   = "Requested quantity is out of stock"
	MsgAddFailed    = "Failed to add product"
	MsgRemoveFailed = "Failed to remove product"
	MsgUpdateFailed = "Failed to update product amount"
)
