package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	domcart "example.com/storefront-cart/app/internal/domain/cart"
	domproduct "example.com/storefront-cart/app/internal/domain/product"
	domstock "example.com/storefront-cart/app/internal/domain/stock"
	"example.com/storefront-cart/app/internal/infra/notify"
	cartuc "example.com/storefront-cart/app/internal/usecase/cart"
	sessionuc "example.com/storefront-cart/app/internal/usecase/session"
)

type API struct {
	sessionSvc *sessionuc.Service
	carts      *cartuc.Registry
	validator  *validator.Validate
	logger     *slog.Logger
}

type Dependencies struct {
	SessionService *sessionuc.Service
	Carts          *cartuc.Registry
	Logger         *slog.Logger
}

func NewAPI(deps Dependencies) *API {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		sessionSvc: deps.SessionService,
		carts:      deps.Carts,
		validator:  validator.New(),
		logger:     logger,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.AllowContentType("application/json", "text/plain"))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/session", a.handleStartSession)

		r.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware)
			pr.Use(noticeMiddleware)
			pr.Get("/cart", a.handleGetCart)
			pr.Post("/cart/items", a.handleAddCartItem)
			pr.Put("/cart/items/{id}", a.handleUpdateCartItem)
			pr.Delete("/cart/items/{id}", a.handleRemoveCartItem)
		})
	})

	return r
}

func (a *API) decodeAndValidate(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return a.validator.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Outcome string `json:"outcome,omitempty"`
	Notice  string `json:"notice,omitempty"`
}

func respondError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func parseIDParam(r *http.Request, key string) (int64, error) {
	idStr := chi.URLParam(r, key)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

func mapCart(c domcart.Cart) map[string]any {
	items := make([]map[string]any, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, map[string]any{
			"id":       item.ID,
			"title":    item.Title,
			"price":    item.Price,
			"image":    item.Image,
			"amount":   item.Amount,
			"subtotal": item.Subtotal(),
		})
	}
	return map[string]any{
		"items":   items,
		"total":   c.Total(),
		"count":   c.Count(),
		"version": c.Version,
	}
}

// handleCartError answers a failed cart mutation. The notice raised by the
// store, if any, is echoed so the UI can show it.
func (a *API) handleCartError(w http.ResponseWriter, r *http.Request, err error) {
	outcome := domcart.Classify(err)

	status := http.StatusInternalServerError
	switch {
	case outcome == domcart.OutcomeOutOfStock:
		status = http.StatusUnprocessableEntity
	case outcome == domcart.OutcomeNotFound,
		errors.Is(err, domproduct.ErrProductNotFound),
		errors.Is(err, domstock.ErrStockNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), "cart_request_failed",
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err)
	}

	// 5xx details stay in the log.
	msg := errInternal.Error()
	switch {
	case errors.Is(err, domproduct.ErrProductNotFound):
		msg = domproduct.ErrProductNotFound.Error()
	case errors.Is(err, domstock.ErrStockNotFound):
		msg = domstock.ErrStockNotFound.Error()
	case status != http.StatusInternalServerError:
		msg = err.Error()
	}

	resp := errorResponse{Error: msg, Outcome: string(outcome)}
	if notices := notify.Messages(r.Context()); len(notices) > 0 {
		resp.Notice = notices[len(notices)-1]
	}
	writeJSON(w, status, resp)
}
