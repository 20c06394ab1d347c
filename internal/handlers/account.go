package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/service"
)

type wishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

func GetUserAddresses(account *service.AccountService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/users/addresses"
		defer handlePanic(c, log, route)

		userID, ok := requireUserID(c, log, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		addresses, err := account.ListAddresses(ctx, userID)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": addresses})
	}
}

func CreateUserAddress(account *service.AccountService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/users/addresses"
		defer handlePanic(c, log, route)

		userID, ok := requireUserID(c, log, route)
		if !ok {
			return
		}

		var req service.AddressInput
		if err := bindValidated(c, &req); err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		address, err := account.AddAddress(ctx, userID, req)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Address added", "data": address})
	}
}

func UpdateUserAddress(account *service.AccountService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/users/addresses/:id"
		defer handlePanic(c, log, route)

		userID, ok := requireUserID(c, log, route)
		if !ok {
			return
		}

		var req service.AddressInput
		if err := bindValidated(c, &req); err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		address, err := account.UpdateAddress(ctx, userID, c.Param("id"), req)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Address updated", "data": address})
	}
}

func DeleteUserAddress(account *service.AccountService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/users/addresses/:id"
		defer handlePanic(c, log, route)

		userID, ok := requireUserID(c, log, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := account.DeleteAddress(ctx, userID, c.Param("id")); err != nil {
			respondWithError(c, log, route, err)
			return
		}
		addresses, err := account.ListAddresses(ctx, userID)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Address deleted", "data": addresses})
	}
}

func GetWishlist(account *service.AccountService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/users/wishlist"
		defer handlePanic(c, log, route)

		userID, ok := requireUserID(c, log, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		products, err := account.Wishlist(ctx, userID)
		if err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(products), "data": products})
	}
}

func AddToWishlist(account *service.AccountService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/users/wishlist"
		defer handlePanic(c, log, route)

		userID, ok := requireUserID(c, log, route)
		if !ok {
			return
		}

		var req wishlistRequest
		if err := bindValidated(c, &req); err != nil {
			respondWithError(c, log, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := account.AddToWishlist(ctx, userID, req.ProductID); err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Added to wishlist"})
	}
}

func RemoveFromWishlist(account *service.AccountService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/users/wishlist/:productId"
		defer handlePanic(c, log, route)

		userID, ok := requireUserID(c, log, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := account.RemoveFromWishlist(ctx, userID, c.Param("productId")); err != nil {
			respondWithError(c, log, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Removed from wishlist"})
	}
}
