package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// UserRepository persists users. Lookups of absent users return an
// apperr not-found error; a duplicate email returns an apperr conflict.
type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	// EnsureByPhone returns the user for phone, creating a stub when absent.
	EnsureByPhone(ctx context.Context, phone, defaultName string) (*models.User, bool, error)

	// SetOTP stores the hash of a fresh code and resets the attempt counter.
	SetOTP(ctx context.Context, id primitive.ObjectID, hash string, expires time.Time) error
	// IncrOTPAttempts atomically bumps the persisted attempt counter.
	IncrOTPAttempts(ctx context.Context, id primitive.ObjectID) (int, error)
	// LockOTP drops the code hash but keeps the expiry and the attempt count,
	// so the lockout outlives the code itself.
	LockOTP(ctx context.Context, id primitive.ObjectID, attempts int) error
	ClearOTP(ctx context.Context, id primitive.ObjectID) error
	// MarkPhoneVerified clears any outstanding code and flags the phone as
	// verified.
	MarkPhoneVerified(ctx context.Context, id primitive.ObjectID) (*models.User, error)

	CompleteProfile(ctx context.Context, id primitive.ObjectID, name, email string) (*models.User, error)
	SetAddresses(ctx context.Context, id primitive.ObjectID, addresses []models.Address) error
	AddToWishlist(ctx context.Context, id, productID primitive.ObjectID) error
	RemoveFromWishlist(ctx context.Context, id, productID primitive.ObjectID) error
	// SetRole replaces the user's role. The empty role is a plain shopper.
	SetRole(ctx context.Context, id primitive.ObjectID, role string) error
}

// CartRepository mutates carts with single atomic operations.
type CartRepository interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	// AddQuantity increments the line for productID, appending it when the
	// cart has none and creating the cart when the user has none.
	AddQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error)
	// SetQuantity overwrites the quantity of an existing line.
	SetQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error)
	// RemoveLine drops the line for productID. Only a missing cart is an error.
	RemoveLine(ctx context.Context, userID, productID primitive.ObjectID) (*models.Cart, error)
	Clear(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
}

// SortKey orders product listings.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortPopular   SortKey = "popular"
	SortNameAsc   SortKey = "name_asc"
	SortNameDesc  SortKey = "name_desc"
)

// ParseSortKey maps a query value to a sort key, defaulting to newest.
func ParseSortKey(raw string) SortKey {
	switch k := SortKey(raw); k {
	case SortPriceAsc, SortPriceDesc, SortPopular, SortNameAsc, SortNameDesc:
		return k
	default:
		return SortNewest
	}
}

// ProductQuery selects visible products. Zero values mean "no constraint".
type ProductQuery struct {
	CategoryID *primitive.ObjectID
	Featured   bool
	Trending   bool
	InStock    bool
	MinPrice   *float64
	MaxPrice   *float64
	Search     string
	Sort       SortKey
	Skip       int64
	Limit      int64
}

// ProductRepository reads the visible part of the catalog.
type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	List(ctx context.Context, q ProductQuery) ([]models.Product, int64, error)
}

type CategoryRepository interface {
	// List returns every category ordered by name.
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	// MatchName returns categories whose name contains fragment, ignoring
	// case, ordered by name.
	MatchName(ctx context.Context, fragment string) ([]models.Category, error)
}

// AdminProductQuery selects products in any lifecycle state. An empty
// Status matches every state.
type AdminProductQuery struct {
	Status     models.ProductStatus
	CategoryID *primitive.ObjectID
	Search     string
	Skip       int64
	Limit      int64
}

// ProductStore is the write side of the catalog. Its own reads ignore the
// product status; the embedded reads keep the shopper view.
type ProductStore interface {
	ProductRepository
	FindAny(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	// ListAll returns matching products newest first with the total count.
	ListAll(ctx context.Context, q AdminProductQuery) ([]models.Product, int64, error)
	Insert(ctx context.Context, p *models.Product) error
	// Replace overwrites the stored product with the same id.
	Replace(ctx context.Context, p *models.Product) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.ProductStatus, at time.Time) (*models.Product, error)
}

// CategoryStore adds writes to CategoryRepository. Insert and Replace
// return an apperr conflict when the name or slug is taken.
type CategoryStore interface {
	CategoryRepository
	Insert(ctx context.Context, c *models.Category) error
	Replace(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}
