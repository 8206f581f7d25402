package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/tesloshop/backend/internal/domain"
	"github.com/tesloshop/backend/internal/repository"
)

type ProductService interface {
	Create(ctx context.Context, input CreateProductInput, ownerID uuid.UUID) (*CreateResult, error)
	FindAll(ctx context.Context, req repository.PageRequest) (*ListResult, error)
	FindOne(ctx context.Context, lookup Lookup) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput, actorID uuid.UUID) (*domain.Product, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

type AuthServiceInterface interface {
	Register(ctx context.Context, email, fullName, password, ua, ip string) (*LoginResult, error)
	Login(ctx context.Context, email, password, ua, ip string) (*LoginResult, error)
	CheckStatus(ctx context.Context, userID uuid.UUID) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken, ua, ip string) (*LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
}
