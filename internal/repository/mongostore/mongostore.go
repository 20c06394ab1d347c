// Package mongostore implements the service repositories on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/apperr"
)

const (
	UsersCollection      = "users"
	CartsCollection      = "carts"
	ProductsCollection   = "products"
	CategoriesCollection = "categories"

	opTimeout = 5 * time.Second
)

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

// translate maps driver errors onto the apperr taxonomy.
func translate(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound(notFound)
	case mongo.IsDuplicateKeyError(err):
		return &apperr.Error{Kind: apperr.KindConflict, Message: "already exists", Err: err}
	default:
		return apperr.Internal("db error", err)
	}
}
