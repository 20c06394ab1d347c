package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repository/memory"
	"storefront/internal/service"
)

type catalogFixture struct {
	svc        *service.CatalogService
	products   *memory.ProductRepository
	categories *memory.CategoryRepository
	men        models.Category
	menShirts  models.Category
	shirts     models.Category
	women      models.Category
}

func newCatalogFixture() *catalogFixture {
	f := &catalogFixture{
		products:   memory.NewProductRepository(),
		categories: memory.NewCategoryRepository(),
	}
	f.men = f.categories.Put(models.Category{Name: "Men"})
	f.menShirts = f.categories.Put(models.Category{Name: "Men Shirts"})
	f.shirts = f.categories.Put(models.Category{Name: "Shirts", Slug: "tops"})
	f.women = f.categories.Put(models.Category{Name: "Women"})

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	add := func(name string, price float64, cat models.Category, age int, mod func(*models.Product)) {
		p := models.Product{
			Name:      name,
			Price:     price,
			Category:  &cat.ID,
			Inventory: 3,
			CreatedAt: base.Add(-time.Duration(age) * time.Hour),
		}
		if mod != nil {
			mod(&p)
		}
		f.products.Put(p)
	}
	add("Kurta", 450, f.women, 1, func(p *models.Product) { p.Featured = true })
	add("Chinos", 700, f.men, 2, func(p *models.Product) { p.Tags = models.StringList{"cotton"} })
	add("Blazer", 1000, f.men, 3, func(p *models.Product) { p.Trending = true })
	add("Jacket", 1500, f.men, 4, func(p *models.Product) { p.Trending = true; p.Inventory = 0 })
	add("Polo", 500, f.men, 5, func(p *models.Product) { p.Description = "Cotton pique polo" })
	add("Draft Vest", 600, f.men, 0, func(p *models.Product) { p.Status = models.ProductDraft })
	add("Oxford", 900, f.menShirts, 6, nil)

	f.svc = service.NewCatalogService(f.products, f.categories, zap.NewNop())
	return f
}

func names(items []models.Product) []string {
	out := make([]string, 0, len(items))
	for _, p := range items {
		out = append(out, p.Name)
	}
	return out
}

func TestListProductsPriceRangeSorted(t *testing.T) {
	f := newCatalogFixture()
	page, err := f.svc.ListProducts(context.Background(), service.ProductFilter{
		MinPrice: ptr(500.0),
		MaxPrice: ptr(1000.0),
		Sort:     "price_asc",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Polo", "Chinos", "Oxford", "Blazer"}, names(page.Items))
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, int64(1), page.Page)
	assert.Equal(t, int64(1), page.Pages)
}

func TestListProductsRejectsInvertedRange(t *testing.T) {
	f := newCatalogFixture()
	_, err := f.svc.ListProducts(context.Background(), service.ProductFilter{MinPrice: ptr(10.0), MaxPrice: ptr(5.0)})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListProductsPagination(t *testing.T) {
	f := newCatalogFixture()
	page, err := f.svc.ListProducts(context.Background(), service.ProductFilter{Page: 2, Limit: 4})
	require.NoError(t, err)

	assert.Equal(t, int64(6), page.Total)
	assert.Equal(t, int64(2), page.Pages)
	assert.Equal(t, []string{"Polo", "Oxford"}, names(page.Items))

	page, err = f.svc.ListProducts(context.Background(), service.ProductFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, page.Items, 6)
}

func TestListProductsUnknownSortIsNewest(t *testing.T) {
	f := newCatalogFixture()
	page, err := f.svc.ListProducts(context.Background(), service.ProductFilter{Sort: "bogus", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Kurta", "Chinos"}, names(page.Items))
}

func TestListProductsByCategoryReference(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	for _, ref := range []string{f.men.ID.Hex(), "men", "MEN"} {
		page, err := f.svc.ListProducts(ctx, service.ProductFilter{Category: ref})
		require.NoError(t, err, ref)
		assert.Equal(t, []string{"Chinos", "Blazer", "Jacket", "Polo"}, names(page.Items), ref)
	}

	page, err := f.svc.ListProducts(ctx, service.ProductFilter{Category: "kids"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), page.Total, "unknown category is not a filter")
}

func TestListProductsFlags(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	page, err := f.svc.ListProducts(ctx, service.ProductFilter{Trending: true, InStock: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Blazer"}, names(page.Items))

	page, err = f.svc.ListProducts(ctx, service.ProductFilter{Search: "COTTON"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Chinos", "Polo"}, names(page.Items))
}

func TestResolveCategoryTieBreak(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	cat, err := f.svc.ResolveCategory(ctx, "Men")
	require.NoError(t, err)
	assert.Equal(t, f.men.ID, cat.ID)

	// an exact name beats the alphabetically earlier "Men Shirts"
	cat, err = f.svc.ResolveCategory(ctx, "shirts")
	require.NoError(t, err)
	assert.Equal(t, f.shirts.ID, cat.ID)

	cat, err = f.svc.ResolveCategory(ctx, "men shi")
	require.NoError(t, err)
	assert.Equal(t, f.menShirts.ID, cat.ID)

	cat, err = f.svc.ResolveCategory(ctx, "om")
	require.NoError(t, err)
	assert.Equal(t, f.women.ID, cat.ID)

	cat, err = f.svc.ResolveCategory(ctx, "en")
	require.NoError(t, err)
	assert.Equal(t, f.men.ID, cat.ID)

	_, err = f.svc.ResolveCategory(ctx, "kids")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListByCategory(t *testing.T) {
	f := newCatalogFixture()
	cat, items, err := f.svc.ListByCategory(context.Background(), "men-shirts", "price_desc", 0)
	require.NoError(t, err)
	assert.Equal(t, "Men Shirts", cat.Name)
	assert.Equal(t, []string{"Oxford"}, names(items))

	_, _, err = f.svc.ListByCategory(context.Background(), "kids", "", 0)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetProduct(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	page, err := f.svc.ListProducts(ctx, service.ProductFilter{Search: "kurta"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	p, err := f.svc.GetProduct(ctx, page.Items[0].ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Kurta", p.Name)
	assert.True(t, p.InStock)

	_, err = f.svc.GetProduct(ctx, "nope")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFeaturedTrendingSearch(t *testing.T) {
	f := newCatalogFixture()
	ctx := context.Background()

	featured, err := f.svc.Featured(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kurta"}, names(featured))

	trending, err := f.svc.Trending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Blazer"}, names(trending))

	_, err = f.svc.Search(ctx, "  ")
	require.ErrorIs(t, err, apperr.ErrValidation)

	found, err := f.svc.Search(ctx, "vest")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestListCategoriesSortedByName(t *testing.T) {
	f := newCatalogFixture()
	cats, err := f.svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 4)
	assert.Equal(t, []string{"Men", "Men Shirts", "Shirts", "Women"}, []string{
		cats[0].Name, cats[1].Name, cats[2].Name, cats[3].Name,
	})
}
