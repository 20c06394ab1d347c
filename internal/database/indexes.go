package database

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const indexTimeout = 5 * time.Second

// EnsureIndexes creates every index the repositories rely on. It stops at
// the first failure.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	for _, ensure := range []func(context.Context, *mongo.Database, *zap.Logger) error{
		EnsureUserIndexes,
		EnsureCartIndexes,
		EnsureCategoryIndexes,
		EnsureProductIndexes,
	} {
		if err := ensure(ctx, db, log); err != nil {
			return err
		}
	}
	return nil
}

func EnsureUserIndexes(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	return createIndexes(ctx, db, "users", log,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetName("phone_unique").SetUnique(true),
		},
		mongo.IndexModel{
			Keys: bson.D{{Key: "email", Value: 1}},
			// stub users have no email yet
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"email": bson.M{"$type": "string", "$gt": ""},
				}),
		},
	)
}

func EnsureCartIndexes(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	return createIndexes(ctx, db, "carts", log,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "user", Value: 1}},
			Options: options.Index().SetName("user_unique").SetUnique(true),
		},
	)
}

func EnsureCategoryIndexes(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	return createIndexes(ctx, db, "categories", log,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("name_unique").SetUnique(true),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetName("slug_unique").SetUnique(true),
		},
	)
}

func EnsureProductIndexes(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	return createIndexes(ctx, db, "products", log,
		mongo.IndexModel{
			Keys: bson.D{
				{Key: "name", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "tags", Value: "text"},
			},
			Options: options.Index().SetName("product_text"),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}},
			Options: options.Index().SetName("category_price"),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "featured", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("featured_recent"),
		},
	)
}

func createIndexes(ctx context.Context, db *mongo.Database, collection string, log *zap.Logger, models ...mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		log.Error("index creation failed", zap.String("collection", collection), zap.Error(err))
		return err
	}
	log.Info("indexes ensured", zap.String("collection", collection), zap.Strings("indexes", names))
	return nil
}
