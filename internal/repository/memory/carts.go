package memory

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/service"
)

// CartRepository applies each mutation under one lock, matching the
// atomicity of the MongoDB update operators.
type CartRepository struct {
	mu    sync.Mutex
	carts map[primitive.ObjectID]*models.Cart
	now   func() time.Time
}

func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[primitive.ObjectID]*models.Cart), now: time.Now}
}

func (r *CartRepository) FindByUser(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, apperr.NotFound("Cart not found")
	}
	return cloneCart(c), nil
}

func (r *CartRepository) AddQuantity(_ context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	c, ok := r.carts[userID]
	if !ok {
		c = &models.Cart{ID: primitive.NewObjectID(), User: userID, Products: []models.CartLine{}, CreatedAt: now}
		r.carts[userID] = c
	}
	merged := false
	for i := range c.Products {
		if c.Products[i].Product == productID {
			c.Products[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		c.Products = append(c.Products, models.CartLine{Product: productID, Quantity: quantity})
	}
	c.UpdatedAt = now
	return cloneCart(c), nil
}

func (r *CartRepository) SetQuantity(_ context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, apperr.NotFound("Cart not found")
	}
	for i := range c.Products {
		if c.Products[i].Product == productID {
			c.Products[i].Quantity = quantity
			c.UpdatedAt = r.now()
			return cloneCart(c), nil
		}
	}
	return nil, apperr.NotFound("Product not in cart")
}

func (r *CartRepository) RemoveLine(_ context.Context, userID, productID primitive.ObjectID) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, apperr.NotFound("Cart not found")
	}
	kept := make([]models.CartLine, 0, len(c.Products))
	for _, line := range c.Products {
		if line.Product != productID {
			kept = append(kept, line)
		}
	}
	c.Products = kept
	c.UpdatedAt = r.now()
	return cloneCart(c), nil
}

func (r *CartRepository) Clear(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, apperr.NotFound("Cart not found")
	}
	c.Products = []models.CartLine{}
	c.UpdatedAt = r.now()
	return cloneCart(c), nil
}

func cloneCart(c *models.Cart) *models.Cart {
	out := *c
	out.Products = append([]models.CartLine{}, c.Products...)
	return &out
}

var _ service.CartRepository = (*CartRepository)(nil)
