package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/service"
)

// ListProducts serves GET /api/products with filtering, sorting and paging.
func ListProducts(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products"
		defer handlePanic(c, log, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		minPrice, err := parsePrice("minPrice", c.Query("minPrice"))
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		maxPrice, err := parsePrice("maxPrice", c.Query("maxPrice"))
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := catalog.ListProducts(ctx, service.ProductFilter{
			Category: c.Query("category"),
			Featured: parseFlag(c.Query("featured")),
			Trending: parseFlag(c.Query("trending")),
			InStock:  parseFlag(c.Query("inStock")),
			MinPrice: minPrice,
			MaxPrice: maxPrice,
			Search:   c.Query("search"),
			Sort:     c.Query("sort"),
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"count":   len(result.Items),
			"total":   result.Total,
			"page":    result.Page,
			"pages":   result.Pages,
			"data":    result.Items,
		})
	}
}

func GetProduct(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/:id"
		defer handlePanic(c, log, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := catalog.GetProduct(ctx, c.Param("id"))
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
	}
}

func FeaturedProducts(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/featured"
		defer handlePanic(c, log, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		items, err := catalog.Featured(ctx)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
	}
}

func TrendingProducts(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/trending"
		defer handlePanic(c, log, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		items, err := catalog.Trending(ctx)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
	}
}

func ProductsByCategory(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/category/:category"
		defer handlePanic(c, log, route)

		_, limit, err := parsePaginationParams("", c.Query("limit"))
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		category, items, err := catalog.ListByCategory(ctx, c.Param("category"), c.Query("sort"), limit)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"category": category,
			"count":    len(items),
			"data":     items,
		})
	}
}

func SearchProducts(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/products/search/:query"
		defer handlePanic(c, log, route)

		query := c.Param("query")

		ctx, cancel := requestContext(c)
		defer cancel()

		items, err := catalog.Search(ctx, query)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "query": query, "count": len(items), "data": items})
	}
}

func ListCategories(catalog *service.CatalogService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/categories"
		defer handlePanic(c, log, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		categories, err := catalog.ListCategories(ctx)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(categories), "data": categories})
	}
}
