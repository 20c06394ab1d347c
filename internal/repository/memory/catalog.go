package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/service"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products []models.Product
}

func NewProductRepository(products ...models.Product) *ProductRepository {
	r := &ProductRepository{}
	for _, p := range products {
		r.Put(p)
	}
	return r
}

// Put inserts or replaces p, assigning an id when it has none.
func (r *ProductRepository) Put(p models.Product) models.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	for i := range r.products {
		if r.products[i].ID == p.ID {
			r.products[i] = p
			return p
		}
	}
	r.products = append(r.products, p)
	return p
}

func (r *ProductRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.products {
		if p.ID == id && p.Status.Visible() {
			p.Derive()
			return &p, nil
		}
	}
	return nil, apperr.NotFound("Product not found")
}

func (r *ProductRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]models.Product, 0, len(ids))
	for _, p := range r.products {
		if want[p.ID] && p.Status.Visible() {
			p.Derive()
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *ProductRepository) List(_ context.Context, q service.ProductQuery) ([]models.Product, int64, error) {
	r.mu.RLock()
	matched := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if matches(p, q) {
			p.Derive()
			matched = append(matched, p)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, less(matched, q.Sort))
	return page(matched, q.Skip, q.Limit)
}

func matches(p models.Product, q service.ProductQuery) bool {
	if !p.Status.Visible() {
		return false
	}
	if q.CategoryID != nil && (p.Category == nil || *p.Category != *q.CategoryID) {
		return false
	}
	if q.Featured && !p.Featured {
		return false
	}
	if q.Trending && !p.Trending {
		return false
	}
	if q.InStock && p.Inventory <= 0 {
		return false
	}
	if q.MinPrice != nil && p.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && p.Price > *q.MaxPrice {
		return false
	}
	return q.Search == "" || matchesSearch(p, q.Search)
}

func matchesSearch(p models.Product, search string) bool {
	needle := strings.ToLower(search)
	hit := strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
	for _, tag := range p.Tags {
		hit = hit || strings.Contains(strings.ToLower(tag), needle)
	}
	return hit
}

func (r *ProductRepository) FindAny(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return nil, apperr.NotFound("Product not found")
	}
	p := r.products[i]
	p.Derive()
	return &p, nil
}

func (r *ProductRepository) ListAll(_ context.Context, q service.AdminProductQuery) ([]models.Product, int64, error) {
	r.mu.RLock()
	matched := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		p.Derive()
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		if q.CategoryID != nil && (p.Category == nil || *p.Category != *q.CategoryID) {
			continue
		}
		if q.Search != "" && !matchesSearch(p, q.Search) {
			continue
		}
		matched = append(matched, p)
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, less(matched, service.SortNewest))
	return page(matched, q.Skip, q.Limit)
}

func (r *ProductRepository) Insert(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if r.indexOf(p.ID) >= 0 {
		return apperr.Conflict("product already exists")
	}
	r.products = append(r.products, *p)
	return nil
}

func (r *ProductRepository) Replace(_ context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(p.ID)
	if i < 0 {
		return apperr.NotFound("Product not found")
	}
	r.products[i] = *p
	return nil
}

func (r *ProductRepository) SetStatus(_ context.Context, id primitive.ObjectID, status models.ProductStatus, at time.Time) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return nil, apperr.NotFound("Product not found")
	}
	r.products[i].Status = status
	r.products[i].UpdatedAt = at
	p := r.products[i]
	p.Derive()
	return &p, nil
}

func (r *ProductRepository) indexOf(id primitive.ObjectID) int {
	for i := range r.products {
		if r.products[i].ID == id {
			return i
		}
	}
	return -1
}

func page(items []models.Product, skip, limit int64) ([]models.Product, int64, error) {
	total := int64(len(items))
	start := skip
	if start > total {
		start = total
	}
	end := total
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end], total, nil
}

func less(items []models.Product, key service.SortKey) func(i, j int) bool {
	switch key {
	case service.SortPriceAsc:
		return func(i, j int) bool { return items[i].Price < items[j].Price }
	case service.SortPriceDesc:
		return func(i, j int) bool { return items[i].Price > items[j].Price }
	case service.SortPopular:
		return func(i, j int) bool { return items[i].Ratings > items[j].Ratings }
	case service.SortNameAsc:
		return func(i, j int) bool { return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name) }
	case service.SortNameDesc:
		return func(i, j int) bool { return strings.ToLower(items[i].Name) > strings.ToLower(items[j].Name) }
	default:
		return func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) }
	}
}

type CategoryRepository struct {
	mu         sync.RWMutex
	categories []models.Category
}

func NewCategoryRepository(categories ...models.Category) *CategoryRepository {
	r := &CategoryRepository{}
	for _, c := range categories {
		r.Put(c)
	}
	return r
}

// Put stores c, assigning an id and slug when missing.
func (r *CategoryRepository) Put(c models.Category) models.Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if c.Slug == "" {
		c.Slug = models.Slugify(c.Name)
	}
	r.categories = append(r.categories, c)
	return c
}

func (r *CategoryRepository) List(_ context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]models.Category{}, r.categories...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (r *CategoryRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Category, error) {
	return r.find(func(c models.Category) bool { return c.ID == id })
}

func (r *CategoryRepository) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	return r.find(func(c models.Category) bool { return c.Slug == slug })
}

func (r *CategoryRepository) MatchName(ctx context.Context, fragment string) ([]models.Category, error) {
	all, _ := r.List(ctx)
	needle := strings.ToLower(fragment)
	out := make([]models.Category, 0)
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *CategoryRepository) Insert(_ context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if r.taken(*c) {
		return apperr.Conflict("category already exists")
	}
	r.categories = append(r.categories, *c)
	return nil
}

func (r *CategoryRepository) Replace(_ context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(c.ID)
	if i < 0 {
		return apperr.NotFound("Category not found")
	}
	if r.taken(*c) {
		return apperr.Conflict("category already exists")
	}
	r.categories[i] = *c
	return nil
}

func (r *CategoryRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return apperr.NotFound("Category not found")
	}
	r.categories = append(r.categories[:i], r.categories[i+1:]...)
	return nil
}

// taken reports whether another category already uses c's name or slug.
func (r *CategoryRepository) taken(c models.Category) bool {
	for _, other := range r.categories {
		if other.ID != c.ID && (other.Name == c.Name || other.Slug == c.Slug) {
			return true
		}
	}
	return false
}

func (r *CategoryRepository) indexOf(id primitive.ObjectID) int {
	for i := range r.categories {
		if r.categories[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *CategoryRepository) find(pred func(models.Category) bool) (*models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.categories {
		if pred(c) {
			return &c, nil
		}
	}
	return nil, apperr.NotFound("Category not found")
}

var (
	_ service.ProductStore  = (*ProductRepository)(nil)
	_ service.CategoryStore = (*CategoryRepository)(nil)
)
