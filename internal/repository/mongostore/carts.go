package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/service"
)

const (
	cartNotFound = "Cart not found"
	// a unique index on carts.user turns a racing first insert into a
	// duplicate key error; the retry then lands on the increment branch
	maxAddRetries = 3
)

type CartRepository struct {
	coll *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{coll: db.Collection(CartsCollection)}
}

func (r *CartRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var cart models.Cart
	if err := r.coll.FindOne(ctx, bson.M{"user": userID}).Decode(&cart); err != nil {
		return nil, translate(err, cartNotFound)
	}
	return normalizeCart(&cart), nil
}

func (r *CartRepository) AddQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	after := options.FindOneAndUpdate().SetReturnDocument(options.After)
	for attempt := 0; attempt < maxAddRetries; attempt++ {
		now := time.Now()

		var cart models.Cart
		err := r.coll.FindOneAndUpdate(ctx,
			bson.M{"user": userID, "products.product": productID},
			bson.M{
				"$inc": bson.M{"products.$.quantity": quantity},
				"$set": bson.M{"updatedAt": now},
			},
			after,
		).Decode(&cart)
		if err == nil {
			return normalizeCart(&cart), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Internal("db error", err)
		}

		err = r.coll.FindOneAndUpdate(ctx,
			bson.M{"user": userID, "products.product": bson.M{"$ne": productID}},
			bson.M{
				"$push":        bson.M{"products": models.CartLine{Product: productID, Quantity: quantity}},
				"$set":         bson.M{"updatedAt": now},
				"$setOnInsert": bson.M{"createdAt": now},
			},
			options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(true),
		).Decode(&cart)
		if err == nil {
			return normalizeCart(&cart), nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Internal("db error", err)
		}
	}
	return nil, apperr.Internal("cart update contended", nil)
}

func (r *CartRepository) SetQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error) {
	cart, err := r.findOneAndUpdate(ctx,
		bson.M{"user": userID, "products.product": productID},
		bson.M{"$set": bson.M{"products.$.quantity": quantity, "updatedAt": time.Now()}},
	)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("Product not in cart")
	}
	return cart, err
}

func (r *CartRepository) RemoveLine(ctx context.Context, userID, productID primitive.ObjectID) (*models.Cart, error) {
	return r.findOneAndUpdate(ctx,
		bson.M{"user": userID},
		bson.M{
			"$pull": bson.M{"products": bson.M{"product": productID}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
}

func (r *CartRepository) Clear(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	return r.findOneAndUpdate(ctx,
		bson.M{"user": userID},
		bson.M{"$set": bson.M{"products": bson.A{}, "updatedAt": time.Now()}},
	)
}

func (r *CartRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Cart, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var cart models.Cart
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&cart)
	if err != nil {
		return nil, translate(err, cartNotFound)
	}
	return normalizeCart(&cart), nil
}

func normalizeCart(c *models.Cart) *models.Cart {
	if c.Products == nil {
		c.Products = []models.CartLine{}
	}
	return c
}

var _ service.CartRepository = (*CartRepository)(nil)
