package models

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
)

// ProductStatus is the lifecycle state of a catalog entry. Documents written
// before the field existed decode as the empty status and count as active.
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductDraft    ProductStatus = "draft"
	ProductArchived ProductStatus = "archived"
)

// Visible reports whether the product may be shown to shoppers.
func (s ProductStatus) Visible() bool {
	return s == "" || s == ProductActive
}

// ParseProductStatus accepts a status name in any case. The empty string
// is active.
func ParseProductStatus(raw string) (ProductStatus, error) {
	switch s := ProductStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return ProductActive, nil
	case ProductActive, ProductDraft, ProductArchived:
		return s, nil
	default:
		return "", apperr.Validation("unknown product status " + raw)
	}
}

const (
	MaxProductNameLength        = 100
	MaxProductDescriptionLength = 1000
	MaxRating                   = 5
)

type Product struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name               string              `bson:"name" json:"name"`
	Description        string              `bson:"description" json:"description"`
	Price              float64             `bson:"price" json:"price"`
	OriginalPrice      float64             `bson:"originalPrice,omitempty" json:"originalPrice,omitempty"`
	Images             StringList          `bson:"images" json:"images"`
	Category           *primitive.ObjectID `bson:"category,omitempty" json:"category,omitempty"`
	Brand              string              `bson:"brand,omitempty" json:"brand,omitempty"`
	Sizes              StringList          `bson:"sizes" json:"sizes"`
	Colors             StringList          `bson:"colors" json:"colors"`
	Inventory          int                 `bson:"inventory" json:"inventory"`
	Discount           float64             `bson:"discount" json:"discount"`
	Featured           bool                `bson:"featured" json:"featured"`
	Trending           bool                `bson:"trending" json:"trending"`
	Tags               StringList          `bson:"tags,omitempty" json:"tags,omitempty"`
	Ratings            float64             `bson:"ratings" json:"ratings"`
	Status             ProductStatus       `bson:"status,omitempty" json:"status"`
	InStock            bool                `bson:"-" json:"inStock"`
	DiscountPercentage int                 `bson:"-" json:"discountPercentage"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Derive fills the read-only fields computed from stored values.
func (p *Product) Derive() {
	p.InStock = p.Inventory > 0
	p.DiscountPercentage = discountPercent(p.Price, p.OriginalPrice)
	if p.Status == "" {
		p.Status = ProductActive
	}
}

// SyncDiscount stores the percent taken off the original price.
func (p *Product) SyncDiscount() {
	p.Discount = float64(discountPercent(p.Price, p.OriginalPrice))
}

func discountPercent(price, original float64) int {
	if original <= price || original <= 0 {
		return 0
	}
	return int(math.Round((original - price) / original * 100))
}

// Validate checks the field invariants every stored product must hold.
func (p *Product) Validate() error {
	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		return apperr.Validation("Product name is required")
	case utf8.RuneCountInString(name) > MaxProductNameLength:
		return apperr.Validation("Product name cannot exceed 100 characters")
	case utf8.RuneCountInString(p.Description) > MaxProductDescriptionLength:
		return apperr.Validation("Description cannot exceed 1000 characters")
	case !finite(p.Price) || p.Price < 0:
		return apperr.Validation("Price cannot be negative")
	case !finite(p.OriginalPrice) || p.OriginalPrice < 0:
		return apperr.Validation("Original price cannot be negative")
	case p.Inventory < 0:
		return apperr.Validation("Inventory cannot be negative")
	case !finite(p.Discount) || p.Discount < 0 || p.Discount > 100:
		return apperr.Validation("Discount must be between 0 and 100")
	case !finite(p.Ratings) || p.Ratings < 0 || p.Ratings > MaxRating:
		return apperr.Validation("Rating must be between 0 and 5")
	}
	if _, err := ParseProductStatus(string(p.Status)); err != nil {
		return err
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
