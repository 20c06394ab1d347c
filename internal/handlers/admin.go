package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/service"
)

// AdminListProducts serves GET /api/admin/products. Unlike the shopper
// listing it includes drafts and archived products.
func AdminListProducts(admin *service.CatalogAdminService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/products"
		defer handlePanic(c, log, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := admin.ListProducts(ctx, service.AdminProductFilter{
			Status:   c.Query("status"),
			Category: c.Query("category"),
			Search:   c.Query("search"),
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}

		switch {
		case limit == 0:
			limit = service.DefaultPageLimit
		case limit > service.MaxPageLimit:
			limit = service.MaxPageLimit
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    result.Items,
			"pagination": gin.H{
				"page":       result.Page,
				"limit":      limit,
				"total":      result.Total,
				"totalPages": result.Pages,
			},
		})
	}
}

func AdminGetProduct(admin *service.CatalogAdminService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/admin/products/:id"
		defer handlePanic(c, log, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := admin.GetProduct(ctx, c.Param("id"))
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
	}
}

func AdminCreateProduct(admin *service.CatalogAdminService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/products"
		defer handlePanic(c, log, route)

		var req service.ProductInput
		if err := bindJSON(c, &req); err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := admin.CreateProduct(ctx, req)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Product created successfully", "data": product})
	}
}

func AdminUpdateProduct(admin *service.CatalogAdminService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/admin/products/:id"
		defer handlePanic(c, log, route)

		var req service.ProductInput
		if err := bindJSON(c, &req); err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := admin.UpdateProduct(ctx, c.Param("id"), req)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product updated successfully", "data": product})
	}
}

type productStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func AdminSetProductStatus(admin *service.CatalogAdminService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /api/admin/products/:id/status"
		defer handlePanic(c, log, route)

		var req productStatusRequest
		if err := bindValidated(c, &req); err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := admin.SetProductStatus(ctx, c.Param("id"), req.Status)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
	}
}

// AdminDeleteProduct archives the product; the document is kept.
func AdminDeleteProduct(admin *service.CatalogAdminService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/admin/products/:id"
		defer handlePanic(c, log, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := admin.DeleteProduct(ctx, c.Param("id")); err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product deleted successfully"})
	}
}

func AdminCreateCategory(admin *service.CatalogAdminService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/admin/categories"
		defer handlePanic(c, log, route)

		var req service.CategoryInput
		if err := bindJSON(c, &req); err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		category, err := admin.CreateCategory(ctx, req)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": category})
	}
}

func AdminUpdateCategory(admin *service.CatalogAdminService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/admin/categories/:id"
		defer handlePanic(c, log, route)

		var req service.CategoryInput
		if err := bindJSON(c, &req); err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		category, err := admin.UpdateCategory(ctx, c.Param("id"), req)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": category})
	}
}

func AdminDeleteCategory(admin *service.CatalogAdminService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/admin/categories/:id"
		defer handlePanic(c, log, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := admin.DeleteCategory(ctx, c.Param("id")); err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Category deleted successfully"})
	}
}
