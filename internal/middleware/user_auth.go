package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/token"
)

const (
	userIDKey = "userId"
	userKey   = "user"
)

// Authenticator resolves a bearer token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*models.User, error)
}

// UserAuth validates the bearer token and injects the user and its id into
// the context.
func UserAuth(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := token.FromHeader(c.GetHeader("Authorization"))
		if !ok {
			log.Debug("missing bearer token", zap.String("path", c.FullPath()))
			abortUnauthorized(c, "No token provided, access denied")
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), raw)
		if err != nil {
			if apperr.KindOf(err) != apperr.KindUnauthorized {
				log.Error("token authentication failed", zap.Error(err))
				c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"success": false, "message": apperr.Message(err)})
				return
			}
			log.Debug("token rejected", zap.Error(err))
			abortUnauthorized(c, apperr.Message(err))
			return
		}

		c.Set(userIDKey, user.ID)
		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUserID returns the id UserAuth stored on the context.
func CurrentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}

// CurrentUser returns the user UserAuth stored on the context.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": message})
}
