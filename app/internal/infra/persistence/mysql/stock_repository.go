package mysql

import (
	"context"
	"database/sql"
	"errors"

	domstock "example.com/storefront-cart/app/internal/domain/stock"
)

type StockRepository struct {
	db *sql.DB
}

func NewStockRepository(db *sql.DB) *StockRepository {
	return &StockRepository{db: db}
}

func (r *StockRepository) GetByID(ctx context.Context, id int64) (*domstock.Stock, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, amount FROM stock WHERE id = ?`, id)

	var s domstock.Stock
	if err := row.Scan(&s.ID, &s.Amount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domstock.ErrStockNotFound
		}
		return nil, err
	}
	return &s, nil
}
