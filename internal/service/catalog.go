package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

const (
	DefaultPageLimit  = 12
	MaxPageLimit      = 100
	featuredLimit     = 10
	trendingLimit     = 8
	categoryListLimit = 20
)

// ProductFilter is the shopper-facing listing request.
type ProductFilter struct {
	Category string
	Featured bool
	Trending bool
	InStock  bool
	MinPrice *float64
	MaxPrice *float64
	Search   string
	Sort     string
	Page     int64
	Limit    int64
}

// ProductPage is one page of a listing.
type ProductPage struct {
	Items []models.Product
	Total int64
	Page  int64
	Pages int64
}

type CatalogService struct {
	products   ProductRepository
	categories CategoryRepository
	log        *zap.Logger
}

func NewCatalogService(products ProductRepository, categories CategoryRepository, log *zap.Logger) *CatalogService {
	return &CatalogService{products: products, categories: categories, log: log}
}

func (s *CatalogService) ListProducts(ctx context.Context, f ProductFilter) (*ProductPage, error) {
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, apperr.Validation("minPrice cannot exceed maxPrice")
	}

	q := ProductQuery{
		Featured: f.Featured,
		Trending: f.Trending,
		InStock:  f.InStock,
		MinPrice: f.MinPrice,
		MaxPrice: f.MaxPrice,
		Search:   strings.TrimSpace(f.Search),
		Sort:     ParseSortKey(f.Sort),
		Skip:     (page - 1) * limit,
		Limit:    limit,
	}

	if ref := strings.TrimSpace(f.Category); ref != "" {
		// an unknown category leaves the listing unfiltered
		cat, err := s.ResolveCategory(ctx, ref)
		switch {
		case err == nil:
			q.CategoryID = &cat.ID
		case errors.Is(err, apperr.ErrNotFound):
			s.log.Debug("category filter ignored", zap.String("category", ref))
		default:
			return nil, err
		}
	}

	items, total, err := s.products.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ProductPage{
		Items: items,
		Total: total,
		Page:  page,
		Pages: int64(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// GetProduct returns a visible product. A malformed id is reported as
// not-found, like an absent one.
func (s *CatalogService) GetProduct(ctx context.Context, rawID string) (*models.Product, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(rawID))
	if err != nil {
		return nil, apperr.NotFound("Product not found")
	}
	return s.products.FindByID(ctx, id)
}

// ListByCategory returns the products of the category ref resolves to.
func (s *CatalogService) ListByCategory(ctx context.Context, ref, sort string, limit int64) (*models.Category, []models.Product, error) {
	cat, err := s.ResolveCategory(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	if limit < 1 {
		limit = categoryListLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	key := ParseSortKey(sort)
	if key != SortPriceAsc && key != SortPriceDesc {
		key = SortNewest
	}
	items, _, err := s.products.List(ctx, ProductQuery{CategoryID: &cat.ID, Sort: key, Limit: limit})
	if err != nil {
		return nil, nil, err
	}
	return cat, items, nil
}

func (s *CatalogService) Featured(ctx context.Context) ([]models.Product, error) {
	items, _, err := s.products.List(ctx, ProductQuery{Featured: true, Sort: SortNewest, Limit: featuredLimit})
	return items, err
}

func (s *CatalogService) Trending(ctx context.Context) ([]models.Product, error) {
	items, _, err := s.products.List(ctx, ProductQuery{Trending: true, InStock: true, Sort: SortNewest, Limit: trendingLimit})
	return items, err
}

// Search matches query against name, description and tags.
func (s *CatalogService) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("search query is required")
	}
	items, _, err := s.products.List(ctx, ProductQuery{Search: query, Sort: SortNewest, Limit: MaxPageLimit})
	return items, err
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

// ResolveCategory finds a category by id, then by slug, then by name. Among
// name matches an exact case-insensitive match wins; otherwise the
// alphabetically first category containing ref is used.
func (s *CatalogService) ResolveCategory(ctx context.Context, ref string) (*models.Category, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperr.Validation("category is required")
	}

	if id, err := primitive.ObjectIDFromHex(ref); err == nil {
		cat, err := s.categories.FindByID(ctx, id)
		if err == nil {
			return cat, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}

	cat, err := s.categories.FindBySlug(ctx, strings.ToLower(ref))
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	matches, err := s.categories.MatchName(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, apperr.NotFound("Category not found")
	}
	for i := range matches {
		if strings.EqualFold(matches[i].Name, ref) {
			return &matches[i], nil
		}
	}
	if len(matches) > 1 {
		s.log.Debug("category reference matched several names",
			zap.String("ref", ref),
			zap.Int("matches", len(matches)),
			zap.String("picked", matches[0].Name),
		)
	}
	return &matches[0], nil
}
