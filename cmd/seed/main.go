// Command seed replaces the catalog collections with a YAML fixture and
// grants the admin role to the fixture's admin phones.
package main

import (
	"context"
	"flag"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/repository/mongostore"
	"storefront/internal/seed"
	"storefront/internal/service"
)

func main() {
	file := flag.String("file", "cmd/seed/catalog.yaml", "catalog fixture")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(context.Background(), cfg, *file, log); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, file string, log *zap.Logger) error {
	fixture, err := seed.LoadFile(file)
	if err != nil {
		return err
	}
	categories, products, err := fixture.Build(time.Now())
	if err != nil {
		return err
	}

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())
	db := client.Database(cfg.DBName)

	if err := database.EnsureIndexes(ctx, db, log); err != nil {
		return err
	}

	catDocs := make([]interface{}, 0, len(categories))
	for _, c := range categories {
		catDocs = append(catDocs, c)
	}
	if err := replaceAll(ctx, db.Collection(mongostore.CategoriesCollection), catDocs); err != nil {
		return err
	}

	productDocs := make([]interface{}, 0, len(products))
	for _, p := range products {
		productDocs = append(productDocs, p)
	}
	if err := replaceAll(ctx, db.Collection(mongostore.ProductsCollection), productDocs); err != nil {
		return err
	}

	users := mongostore.NewUserRepository(db)
	for _, phone := range fixture.Admins {
		u, err := service.GrantAdmin(ctx, users, phone)
		if err != nil {
			return err
		}
		log.Info("admin granted", zap.String("user_id", u.ID.Hex()))
	}

	log.Info("catalog seeded",
		zap.String("db", db.Name()),
		zap.Int("categories", len(categories)),
		zap.Int("products", len(products)),
		zap.Int("admins", len(fixture.Admins)),
	)
	return nil
}

func replaceAll(ctx context.Context, coll *mongo.Collection, docs []interface{}) error {
	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	_, err := coll.InsertMany(ctx, docs)
	return err
}
