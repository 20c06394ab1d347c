package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/middleware"
	"storefront/internal/service"
)

type Services struct {
	Auth    *service.AuthService
	Catalog *service.CatalogService
	Cart    *service.CartService
	Account *service.AccountService
	Admin   *service.CatalogAdminService
}

// RegisterRoutes mounts the shopper API, the admin catalog API and the
// health check on r.
func RegisterRoutes(r gin.IRouter, s Services, checks map[string]Check, log *zap.Logger) {
	r.GET("/healthz", Health(checks, log))

	api := r.Group("/api")
	requireUser := middleware.UserAuth(s.Auth, log)

	auth := api.Group("/auth")
	{
		auth.POST("/send-otp", SendOTP(s.Auth, log))
		auth.POST("/verify-otp", VerifyOTP(s.Auth, log))
		auth.POST("/complete-profile", requireUser, CompleteProfile(s.Auth, log))
		auth.GET("/me", requireUser, GetMe(log))
	}

	products := api.Group("/products")
	{
		products.GET("", ListProducts(s.Catalog, log))
		products.GET("/featured", FeaturedProducts(s.Catalog, log))
		products.GET("/trending", TrendingProducts(s.Catalog, log))
		products.GET("/category/:category", ProductsByCategory(s.Catalog, log))
		products.GET("/search/:query", SearchProducts(s.Catalog, log))
		products.GET("/:id", GetProduct(s.Catalog, log))
	}

	api.GET("/categories", ListCategories(s.Catalog, log))

	cart := api.Group("/cart")
	cart.Use(requireUser)
	{
		cart.GET("", GetCart(s.Cart, log))
		cart.POST("", AddToCart(s.Cart, log))
		cart.DELETE("", ClearCart(s.Cart, log))
		cart.PUT("/:productId", UpdateCartItem(s.Cart, log))
		cart.DELETE("/:productId", RemoveFromCart(s.Cart, log))
	}

	users := api.Group("/users")
	users.Use(requireUser)
	{
		users.GET("/addresses", GetUserAddresses(s.Account, log))
		users.POST("/addresses", CreateUserAddress(s.Account, log))
		users.PUT("/addresses/:id", UpdateUserAddress(s.Account, log))
		users.DELETE("/addresses/:id", DeleteUserAddress(s.Account, log))

		users.GET("/wishlist", GetWishlist(s.Account, log))
		users.POST("/wishlist", AddToWishlist(s.Account, log))
		users.DELETE("/wishlist/:productId", RemoveFromWishlist(s.Account, log))
	}

	admin := api.Group("/admin")
	admin.Use(requireUser, middleware.AdminAuth())
	{
		admin.GET("/products", AdminListProducts(s.Admin, log))
		admin.POST("/products", AdminCreateProduct(s.Admin, log))
		admin.GET("/products/:id", AdminGetProduct(s.Admin, log))
		admin.PUT("/products/:id", AdminUpdateProduct(s.Admin, log))
		admin.PATCH("/products/:id/status", AdminSetProductStatus(s.Admin, log))
		admin.DELETE("/products/:id", AdminDeleteProduct(s.Admin, log))

		admin.POST("/categories", AdminCreateCategory(s.Admin, log))
		admin.PUT("/categories/:id", AdminUpdateCategory(s.Admin, log))
		admin.DELETE("/categories/:id", AdminDeleteCategory(s.Admin, log))
	}
}
