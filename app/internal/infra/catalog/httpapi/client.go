// Package httpapi reads products and stock from the storefront's REST API:
// GET {base}/products/{id} and GET {base}/stock/{id}.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	domproduct "example.com/storefront-cart/app/internal/domain/product"
	domstock "example.com/storefront-cart/app/internal/domain/stock"
)

var errNotFound = errors.New("not found")

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Products returns a product repository backed by this client.
func (c *Client) Products() *ProductClient {
	return &ProductClient{c: c}
}

// Stock returns a stock repository backed by this client.
func (c *Client) Stock() *StockClient {
	return &StockClient{c: c}
}

type ProductClient struct {
	c *Client
}

type productResponse struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

func (p *ProductClient) GetByID(ctx context.Context, id int64) (*domproduct.Product, error) {
	var resp productResponse
	if err := p.c.getJSON(ctx, "/products/"+strconv.FormatInt(id, 10), &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, domproduct.ErrProductNotFound
		}
		return nil, err
	}
	return &domproduct.Product{
		ID:    resp.ID,
		Title: resp.Title,
		Price: resp.Price,
		Image: resp.Image,
	}, nil
}

type StockClient struct {
	c *Client
}

type stockResponse struct {
	ID     int64 `json:"id"`
	Amount int64 `json:"amount"`
}

func (s *StockClient) GetByID(ctx context.Context, id int64) (*domstock.Stock, error) {
	var resp stockResponse
	if err := s.c.getJSON(ctx, "/stock/"+strconv.FormatInt(id, 10), &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, domstock.ErrStockNotFound
		}
		return nil, err
	}
	return &domstock.Stock{ID: resp.ID, Amount: resp.Amount}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return errNotFound
	case res.StatusCode < 200 || res.StatusCode > 299:
		return fmt.Errorf("GET %s: unexpected status %d", path, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}
