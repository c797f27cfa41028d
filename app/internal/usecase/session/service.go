package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid session token")

type Claims struct {
	ShopperID string
}

type TokenService interface {
	GenerateToken(shopperID string) (string, error)
	ParseToken(token string) (*Claims, error)
}

// Service issues guest sessions. Each session names a fresh shopper whose
// cart is kept under its own persistence key.
type Service struct {
	tokens TokenService
	newID  func() string
}

func NewService(tokens TokenService) *Service {
	return &Service{
		tokens: tokens,
		newID:  uuid.NewString,
	}
}

type StartResult struct {
	Token     string
	ShopperID string
}

func (s *Service) Start(ctx context.Context) (*StartResult, error) {
	shopperID := s.newID()
	token, err := s.tokens.GenerateToken(shopperID)
	if err != nil {
		return nil, err
	}
	return &StartResult{Token: token, ShopperID: shopperID}, nil
}

func (s *Service) Resolve(token string) (*Claims, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
