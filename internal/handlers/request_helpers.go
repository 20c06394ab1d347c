package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/middleware"
)

const requestTimeout = 5 * time.Second

func handlePanic(c *gin.Context, log *zap.Logger, route string) {
	if r := recover(); r != nil {
		log.Error("panic recovered",
			zap.String("route", route),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Any("panic", r),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal server error"})
	}
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// respondWithError writes the {success:false, message} body for err. Internal
// causes are logged and never shown to the client.
func respondWithError(c *gin.Context, log *zap.Logger, route string, err error) {
	status := apperr.HTTPStatus(err)
	fields := []zap.Field{
		zap.String("route", route),
		zap.Int("status", status),
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Debug("request rejected", fields...)
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": apperr.Message(err)})
}

// bindJSON decodes the body into req. An empty body leaves req zeroed so the
// service reports the missing fields.
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Validation("invalid body")
	}
	return nil
}

// bindValidated decodes the body into req and enforces its binding tags,
// reporting the first failing field.
func bindValidated(c *gin.Context, req any) error {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fieldError := validationErrors[0]
		field := lowerCamel(fieldError.Field())
		switch fieldError.Tag() {
		case "required":
			return apperr.Validation(fmt.Sprintf("%s is required", field))
		default:
			return apperr.Validation(fmt.Sprintf("%s is invalid", field))
		}
	}
	return apperr.Validation("invalid body")
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// requireUserID reads the id set by middleware.UserAuth and answers 401 when
// it is missing.
func requireUserID(c *gin.Context, log *zap.Logger, route string) (primitive.ObjectID, bool) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		respondWithError(c, log, route, apperr.Unauthorized("No token provided, access denied"))
		return primitive.NilObjectID, false
	}
	return id, true
}
