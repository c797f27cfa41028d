package stock

import "context"

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Stock, error)
}
