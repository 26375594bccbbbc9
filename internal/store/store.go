package store

import (
	"context"
	"errors"

	"savdo/backend/internal/domain"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidSale = errors.New("invalid sale")
	ErrDuplicate   = errors.New("already exists")
)

// Repository is the persistence boundary. The memory implementation
// backs dev/demo mode and the tests; postgres backs production.
type Repository interface {
	SearchProducts(ctx context.Context, storeID int64, query string, limit int) ([]domain.ProductSnapshot, error)
	GetProduct(ctx context.Context, storeID, productID int64) (*domain.ProductSnapshot, error)
	ListStocks(ctx context.Context, storeID, productID int64) ([]domain.StockRef, error)

	ListStores(ctx context.Context) ([]domain.Store, error)

	SearchClients(ctx context.Context, query string, limit int) ([]domain.Client, error)
	GetClient(ctx context.Context, clientID int64) (*domain.Client, error)
	CreateClient(ctx context.Context, req domain.ClientCreateRequest) (*domain.Client, error)

	LatestCurrencyRate(ctx context.Context, currency string) (*domain.CurrencyRate, error)

	CreateSale(ctx context.Context, payload domain.SalePayload) (*domain.SaleRecord, error)
	GetSale(ctx context.Context, saleID string) (*domain.SaleRecord, error)

	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	ListSellers(ctx context.Context, storeID int64) ([]domain.SellerUser, error)
	UpdateUserPassword(ctx context.Context, username, passwordHash string) error
}
