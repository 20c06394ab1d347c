package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/metrics"
	"storefront/internal/models"
)

// ProductInput creates or patches a product. Nil fields are left as they
// are; on create, name and price are required.
type ProductInput struct {
	Name          *string   `json:"name"`
	Description   *string   `json:"description"`
	Price         *float64  `json:"price"`
	OriginalPrice *float64  `json:"originalPrice"`
	Images        *[]string `json:"images"`
	Category      *string   `json:"category"`
	Brand         *string   `json:"brand"`
	Sizes         *[]string `json:"sizes"`
	Colors        *[]string `json:"colors"`
	Tags          *[]string `json:"tags"`
	Inventory     *int      `json:"inventory"`
	Featured      *bool     `json:"featured"`
	Trending      *bool     `json:"trending"`
	Ratings       *float64  `json:"ratings"`
	Status        *string   `json:"status"`
}

// CategoryInput creates or patches a category. An empty Parent detaches
// the category from its parent.
type CategoryInput struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	Parent      *string `json:"parent"`
	Featured    *bool   `json:"featured"`
}

// AdminProductFilter is the admin listing request. Status and Category are
// optional; an unknown category is a validation error here.
type AdminProductFilter struct {
	Status   string
	Category string
	Search   string
	Page     int64
	Limit    int64
}

// CatalogAdminService writes the catalog. Removing a product archives it;
// archived and draft products stay readable here but not to shoppers.
type CatalogAdminService struct {
	products   ProductStore
	categories CategoryStore
	log        *zap.Logger
	now        func() time.Time
}

func NewCatalogAdminService(products ProductStore, categories CategoryStore, log *zap.Logger) *CatalogAdminService {
	return &CatalogAdminService{products: products, categories: categories, log: log, now: time.Now}
}

func (s *CatalogAdminService) ListProducts(ctx context.Context, f AdminProductFilter) (*ProductPage, error) {
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

	q := AdminProductQuery{Search: strings.TrimSpace(f.Search), Skip: (page - 1) * limit, Limit: limit}
	if raw := strings.TrimSpace(f.Status); raw != "" {
		status, err := models.ParseProductStatus(raw)
		if err != nil {
			return nil, err
		}
		q.Status = status
	}
	if ref := strings.TrimSpace(f.Category); ref != "" {
		cat, err := s.exactCategory(ctx, ref)
		if err != nil {
			return nil, err
		}
		q.CategoryID = &cat.ID
	}

	items, total, err := s.products.ListAll(ctx, q)
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

func (s *CatalogAdminService) GetProduct(ctx context.Context, rawID string) (*models.Product, error) {
	id, err := parseCatalogID(rawID, "Product not found")
	if err != nil {
		return nil, err
	}
	return s.products.FindAny(ctx, id)
}

func (s *CatalogAdminService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Validation("Product name is required")
	}
	if in.Price == nil {
		return nil, apperr.Validation("Product price is required")
	}

	now := s.now()
	p := &models.Product{
		ID:        primitive.NewObjectID(),
		Status:    models.ProductActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.applyProduct(ctx, p, in); err != nil {
		return nil, err
	}
	if err := s.products.Insert(ctx, p); err != nil {
		return nil, err
	}

	metrics.CatalogWritesTotal.WithLabelValues("product_create").Inc()
	s.log.Info("product created",
		zap.String("product_id", p.ID.Hex()),
		zap.String("status", string(p.Status)),
	)
	p.Derive()
	return p, nil
}

func (s *CatalogAdminService) UpdateProduct(ctx context.Context, rawID string, in ProductInput) (*models.Product, error) {
	id, err := parseCatalogID(rawID, "Product not found")
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyProduct(ctx, p, in); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.products.Replace(ctx, p); err != nil {
		return nil, err
	}

	metrics.CatalogWritesTotal.WithLabelValues("product_update").Inc()
	s.log.Info("product updated", zap.String("product_id", p.ID.Hex()))
	p.Derive()
	return p, nil
}

// SetProductStatus moves a product between active, draft and archived.
func (s *CatalogAdminService) SetProductStatus(ctx context.Context, rawID, rawStatus string) (*models.Product, error) {
	id, err := parseCatalogID(rawID, "Product not found")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rawStatus) == "" {
		return nil, apperr.Validation("status is required")
	}
	status, err := models.ParseProductStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, id, status)
}

// DeleteProduct archives the product. Carts and wishlists that reference it
// stop resolving it, and its document is kept.
func (s *CatalogAdminService) DeleteProduct(ctx context.Context, rawID string) error {
	id, err := parseCatalogID(rawID, "Product not found")
	if err != nil {
		return err
	}
	_, err = s.setStatus(ctx, id, models.ProductArchived)
	return err
}

func (s *CatalogAdminService) setStatus(ctx context.Context, id primitive.ObjectID, status models.ProductStatus) (*models.Product, error) {
	p, err := s.products.SetStatus(ctx, id, status, s.now())
	if err != nil {
		return nil, err
	}
	metrics.CatalogWritesTotal.WithLabelValues("product_status").Inc()
	s.log.Info("product status changed",
		zap.String("product_id", id.Hex()),
		zap.String("status", string(status)),
	)
	return p, nil
}

// applyProduct patches p with in and checks the result. The stored discount
// always follows the two prices.
func (s *CatalogAdminService) applyProduct(ctx context.Context, p *models.Product, in ProductInput) error {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.OriginalPrice != nil {
		p.OriginalPrice = *in.OriginalPrice
	}
	if in.Images != nil {
		p.Images = cleanList(*in.Images)
	}
	if in.Brand != nil {
		p.Brand = strings.TrimSpace(*in.Brand)
	}
	if in.Sizes != nil {
		p.Sizes = cleanList(*in.Sizes)
	}
	if in.Colors != nil {
		p.Colors = cleanList(*in.Colors)
	}
	if in.Tags != nil {
		p.Tags = cleanList(*in.Tags)
	}
	if in.Inventory != nil {
		p.Inventory = *in.Inventory
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.Trending != nil {
		p.Trending = *in.Trending
	}
	if in.Ratings != nil {
		p.Ratings = *in.Ratings
	}
	if in.Status != nil {
		status, err := models.ParseProductStatus(*in.Status)
		if err != nil {
			return err
		}
		p.Status = status
	}
	if in.Category != nil {
		if ref := strings.TrimSpace(*in.Category); ref == "" {
			p.Category = nil
		} else {
			cat, err := s.exactCategory(ctx, ref)
			if err != nil {
				return err
			}
			p.Category = &cat.ID
		}
	}

	p.SyncDiscount()
	return p.Validate()
}

func (s *CatalogAdminService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.Validation("Category name is required")
	}
	c := &models.Category{ID: primitive.NewObjectID(), CreatedAt: s.now()}
	if err := s.applyCategory(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.categories.Insert(ctx, c); err != nil {
		return nil, err
	}

	metrics.CatalogWritesTotal.WithLabelValues("category_create").Inc()
	s.log.Info("category created", zap.String("category_id", c.ID.Hex()), zap.String("slug", c.Slug))
	return c, nil
}

func (s *CatalogAdminService) UpdateCategory(ctx context.Context, rawID string, in CategoryInput) (*models.Category, error) {
	id, err := parseCatalogID(rawID, "Category not found")
	if err != nil {
		return nil, err
	}
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyCategory(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.categories.Replace(ctx, c); err != nil {
		return nil, err
	}

	metrics.CatalogWritesTotal.WithLabelValues("category_update").Inc()
	s.log.Info("category updated", zap.String("category_id", c.ID.Hex()))
	return c, nil
}

// DeleteCategory removes a category nothing refers to. Products in any
// status and child categories both block the delete.
func (s *CatalogAdminService) DeleteCategory(ctx context.Context, rawID string) error {
	id, err := parseCatalogID(rawID, "Category not found")
	if err != nil {
		return err
	}
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		return err
	}

	_, inUse, err := s.products.ListAll(ctx, AdminProductQuery{CategoryID: &id, Limit: 1})
	if err != nil {
		return err
	}
	if inUse > 0 {
		return apperr.Conflict("Category still has products")
	}
	all, err := s.categories.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range all {
		if c.ParentCategory != nil && *c.ParentCategory == id {
			return apperr.Conflict("Category still has subcategories")
		}
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	metrics.CatalogWritesTotal.WithLabelValues("category_delete").Inc()
	s.log.Info("category deleted", zap.String("category_id", id.Hex()))
	return nil
}

func (s *CatalogAdminService) applyCategory(ctx context.Context, c *models.Category, in CategoryInput) error {
	// a slug derived from the old name follows a rename
	derived := c.Slug == "" || c.Slug == models.Slugify(c.Name)
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return apperr.Validation("Category name cannot be empty")
		}
		c.Name = name
	}
	switch {
	case in.Slug != nil && strings.TrimSpace(*in.Slug) != "":
		c.Slug = models.Slugify(*in.Slug)
	case derived:
		c.Slug = models.Slugify(c.Name)
	}
	if c.Slug == "" {
		return apperr.Validation("Category slug cannot be empty")
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.Image != nil {
		c.Image = strings.TrimSpace(*in.Image)
	}
	if in.Featured != nil {
		c.Featured = *in.Featured
	}
	if in.Parent != nil {
		ref := strings.TrimSpace(*in.Parent)
		if ref == "" {
			c.ParentCategory = nil
			return nil
		}
		parent, err := s.exactCategory(ctx, ref)
		if err != nil {
			return err
		}
		if parent.ID == c.ID {
			return apperr.Validation("Category cannot be its own parent")
		}
		c.ParentCategory = &parent.ID
	}
	return nil
}

// exactCategory resolves a write-side reference by id or slug only; name
// fragments are too loose to attach products to.
func (s *CatalogAdminService) exactCategory(ctx context.Context, ref string) (*models.Category, error) {
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
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Validation("Unknown category " + ref)
	}
	return cat, err
}

func parseCatalogID(raw, notFound string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, apperr.NotFound(notFound)
	}
	return id, nil
}

func cleanList(values []string) models.StringList {
	out := make(models.StringList, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// GrantAdmin gives the user registered under phone the admin role,
// creating the user when absent.
func GrantAdmin(ctx context.Context, users UserRepository, phone string) (*models.User, error) {
	normalized, ok := models.NormalizePhone(phone)
	if !ok {
		return nil, apperr.Validation(strings.TrimSpace(phone) + " is not a valid phone number!")
	}
	u, _, err := users.EnsureByPhone(ctx, normalized, models.DefaultUserName(normalized))
	if err != nil {
		return nil, err
	}
	if err := users.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
		return nil, err
	}
	u.Role = models.RoleAdmin
	return u, nil
}
