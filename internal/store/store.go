package store

import (
	"context"
	"errors"
	"time"

	"github.com/Subby02/web-project/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// MaxLineQuantity is the largest quantity a cart line may hold; the postgres
// column is a 32-bit integer.
const MaxLineQuantity = 1<<31 - 1

// ProductRepository is read-mostly: the core only ever writes a product's
// discount schedule.
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	UpdateProductDiscount(ctx context.Context, id string, rate float64, saleStart *time.Time, saleEnd *time.Time) (*domain.Product, error)
}

type CartRepository interface {
	ListCartLines(ctx context.Context, ownerID string) ([]domain.CartLine, error)
	GetCartLine(ctx context.Context, ownerID string, lineID string) (*domain.CartLine, error)
	// UpsertCartLine atomically merges delta into the line identified by the
	// line's key. A missing line is created with quantity max(delta, 1). The
	// returned bool reports whether the line was created. A merged quantity
	// outside [1, MaxLineQuantity] leaves the line untouched and returns
	// ErrInvalidInput.
	UpsertCartLine(ctx context.Context, line domain.CartLine, delta int) (*domain.CartLine, bool, error)
	// AdjustCartLine adds delta to an existing line and deletes it when the
	// result is zero or less, in one step. It never creates a line: a missing
	// or foreign line is ErrNotFound. The returned bool reports deletion.
	AdjustCartLine(ctx context.Context, ownerID string, lineID string, delta int) (*domain.CartLine, bool, error)
	SetCartLineQuantity(ctx context.Context, ownerID string, lineID string, quantity int) (*domain.CartLine, error)
	DeleteCartLine(ctx context.Context, ownerID string, lineID string) error
	ClearCart(ctx context.Context, ownerID string) (int, error)
}

type OrderRepository interface {
	// CreateOrder returns ErrConflict when the order id is already taken.
	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
	GetOrder(ctx context.Context, userID string, orderID string) (*domain.Order, error)
	// ListOrdersBetween returns orders dated in [from, to], oldest first.
	ListOrdersBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Order, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
}

type Repository interface {
	ProductRepository
	CartRepository
	OrderRepository
	UserRepository
}
