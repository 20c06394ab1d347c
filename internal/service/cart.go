package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/metrics"
	"storefront/internal/models"
)

// CartLineView is a cart line with its product resolved. Product is nil when
// the product is no longer in the catalog.
type CartLineView struct {
	Product   *models.Product    `json:"product"`
	ProductID primitive.ObjectID `json:"productId"`
	Quantity  int                `json:"quantity"`
	LineTotal float64            `json:"lineTotal"`
}

// CartView is the client-facing shape of a cart.
type CartView struct {
	ID        *primitive.ObjectID `json:"id,omitempty"`
	User      primitive.ObjectID  `json:"user"`
	Products  []CartLineView      `json:"products"`
	Totals    Totals              `json:"totals"`
	UpdatedAt *time.Time          `json:"updatedAt,omitempty"`
}

type CartService struct {
	carts    CartRepository
	products ProductRepository
	log      *zap.Logger
}

func NewCartService(carts CartRepository, products ProductRepository, log *zap.Logger) *CartService {
	return &CartService{carts: carts, products: products, log: log}
}

// AddItem merges quantity into the user's line for productID. A nil
// quantity means one unit.
func (s *CartService) AddItem(ctx context.Context, userID primitive.ObjectID, productID string, quantity *int) (*CartView, error) {
	pid, err := parseProductID(productID)
	if err != nil {
		return nil, err
	}
	qty := 1
	if quantity != nil {
		qty = *quantity
	}
	if qty <= 0 {
		return nil, apperr.Validation("quantity must be greater than 0")
	}

	if _, err := s.products.FindByID(ctx, pid); err != nil {
		return nil, err
	}

	cart, err := s.carts.AddQuantity(ctx, userID, pid, qty)
	if err != nil {
		return nil, err
	}
	metrics.CartMutationsTotal.WithLabelValues("add").Inc()
	s.log.Debug("cart line added",
		zap.String("user_id", userID.Hex()),
		zap.String("product_id", pid.Hex()),
		zap.Int("quantity", qty),
	)
	return s.resolve(ctx, userID, cart)
}

// GetCart returns the user's cart. A user without a cart gets an empty one.
func (s *CartService) GetCart(ctx context.Context, userID primitive.ObjectID) (*CartView, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return s.resolve(ctx, userID, nil)
	}
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, userID, cart)
}

// RemoveItem drops the line for productID. Removing a product that is not in
// the cart succeeds; only a user without any cart gets not-found.
func (s *CartService) RemoveItem(ctx context.Context, userID primitive.ObjectID, productID string) (*CartView, error) {
	pid, err := parseProductID(productID)
	if err != nil {
		return nil, err
	}
	cart, err := s.carts.RemoveLine(ctx, userID, pid)
	if err != nil {
		return nil, err
	}
	metrics.CartMutationsTotal.WithLabelValues("remove").Inc()
	return s.resolve(ctx, userID, cart)
}

// UpdateQuantity sets the quantity of an existing line. Zero removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, userID primitive.ObjectID, productID string, quantity int) (*CartView, error) {
	if quantity < 0 {
		return nil, apperr.Validation("quantity cannot be negative")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	pid, err := parseProductID(productID)
	if err != nil {
		return nil, err
	}
	cart, err := s.carts.SetQuantity(ctx, userID, pid, quantity)
	if err != nil {
		return nil, err
	}
	metrics.CartMutationsTotal.WithLabelValues("update").Inc()
	return s.resolve(ctx, userID, cart)
}

// Clear empties the cart. Clearing a missing cart returns the empty shape.
func (s *CartService) Clear(ctx context.Context, userID primitive.ObjectID) (*CartView, error) {
	cart, err := s.carts.Clear(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return s.resolve(ctx, userID, nil)
	}
	if err != nil {
		return nil, err
	}
	metrics.CartMutationsTotal.WithLabelValues("clear").Inc()
	return s.resolve(ctx, userID, cart)
}

func (s *CartService) resolve(ctx context.Context, userID primitive.ObjectID, cart *models.Cart) (*CartView, error) {
	view := &CartView{User: userID, Products: []CartLineView{}}
	if cart == nil {
		return view, nil
	}
	id := cart.ID
	updated := cart.UpdatedAt
	view.ID = &id
	view.UpdatedAt = &updated

	if len(cart.Products) == 0 {
		return view, nil
	}

	ids := make([]primitive.ObjectID, 0, len(cart.Products))
	for _, line := range cart.Products {
		ids = append(ids, line.Product)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for _, line := range cart.Products {
		lv := CartLineView{ProductID: line.Product, Quantity: line.Quantity}
		if p, ok := byID[line.Product]; ok {
			lv.Product = p
			lv.LineTotal = lineTotal(p, line.Quantity).Round(2).InexactFloat64()
		} else {
			s.log.Warn("cart line references missing product",
				zap.String("user_id", userID.Hex()),
				zap.String("product_id", line.Product.Hex()),
			)
		}
		view.Products = append(view.Products, lv)
	}
	view.Totals = computeTotals(view.Products)
	return view, nil
}

func parseProductID(raw string) (primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return primitive.NilObjectID, apperr.Validation("Product ID is required")
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid productId")
	}
	return id, nil
}
