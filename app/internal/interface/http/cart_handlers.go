package http

import (
	"net/http"

	cartuc "example.com/storefront-cart/app/internal/usecase/cart"
)

type addCartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

type updateCartItemRequest struct {
	Amount *int64 `json:"amount" validate:"required"`
}

func (a *API) shopperStore(w http.ResponseWriter, r *http.Request) *cartuc.Store {
	shopperID := getShopperID(r.Context())
	if shopperID == "" {
		respondError(w, http.StatusUnauthorized, errUnauthenticated)
		return nil
	}
	store, err := a.carts.Store(r.Context(), shopperID)
	if err != nil {
		a.logger.ErrorContext(r.Context(), "cart_load_failed", "shopper_id", shopperID, "error", err)
		respondError(w, http.StatusInternalServerError, errInternal)
		return nil
	}
	return store
}

func (a *API) handleGetCart(w http.ResponseWriter, r *http.Request) {
	store := a.shopperStore(w, r)
	if store == nil {
		return
	}
	writeJSON(w, http.StatusOK, mapCart(store.Cart()))
}

func (a *API) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	store := a.shopperStore(w, r)
	if store == nil {
		return
	}
	c, err := store.AddProduct(r.Context(), req.ProductID)
	if err != nil {
		a.handleCartError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(c))
}

func (a *API) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var req updateCartItemRequest
	if err := a.decodeAndValidate(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	store := a.shopperStore(w, r)
	if store == nil {
		return
	}
	c, err := store.UpdateProductAmount(r.Context(), id, *req.Amount)
	if err != nil {
		a.handleCartError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(c))
}

func (a *API) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	store := a.shopperStore(w, r)
	if store == nil {
		return
	}
	c, err := store.RemoveProduct(r.Context(), id)
	if err != nil {
		a.handleCartError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(c))
}
