package mongostore

import (
	"context"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/service"
)

const productNotFound = "Product not found"

type ProductRepository struct {
	coll *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(ProductsCollection)}
}

func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := visibleFilter()
	filter["_id"] = id

	var raw bson.M
	if err := r.coll.FindOne(ctx, filter).Decode(&raw); err != nil {
		return nil, translate(err, productNotFound)
	}
	p, err := normalizeProductDocument(raw)
	if err != nil {
		return nil, apperr.Internal("product decode failed", err)
	}
	return &p, nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := visibleFilter()
	filter["_id"] = bson.M{"$in": ids}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("db error", err)
	}
	defer cursor.Close(ctx)

	products, err := decodeProducts(ctx, cursor)
	if err != nil {
		return nil, apperr.Internal("product decode failed", err)
	}
	return products, nil
}

func (r *ProductRepository) List(ctx context.Context, q service.ProductQuery) ([]models.Product, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := buildProductFilter(q)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Internal("db error", err)
	}

	opts := options.Find().SetSort(sortFor(q.Sort))
	if c := collationFor(q.Sort); c != nil {
		opts.SetCollation(c)
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperr.Internal("db error", err)
	}
	defer cursor.Close(ctx)

	products, err := decodeProducts(ctx, cursor)
	if err != nil {
		return nil, 0, apperr.Internal("product decode failed", err)
	}
	return products, total, nil
}

func (r *ProductRepository) FindAny(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var raw bson.M
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&raw); err != nil {
		return nil, translate(err, productNotFound)
	}
	p, err := normalizeProductDocument(raw)
	if err != nil {
		return nil, apperr.Internal("product decode failed", err)
	}
	return &p, nil
}

func (r *ProductRepository) ListAll(ctx context.Context, q service.AdminProductQuery) ([]models.Product, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := buildAdminFilter(q)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Internal("db error", err)
	}

	opts := options.Find().SetSort(sortFor(service.SortNewest))
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, apperr.Internal("db error", err)
	}
	defer cursor.Close(ctx)

	products, err := decodeProducts(ctx, cursor)
	if err != nil {
		return nil, 0, apperr.Internal("product decode failed", err)
	}
	return products, total, nil
}

func (r *ProductRepository) Insert(ctx context.Context, p *models.Product) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return translate(err, productNotFound)
	}
	return nil
}

// Replace writes the whole document, which also drops the legacy isActive
// flag once the product carries an explicit status.
func (r *ProductRepository) Replace(ctx context.Context, p *models.Product) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return translate(err, productNotFound)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound(productNotFound)
	}
	return nil
}

func (r *ProductRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status models.ProductStatus, at time.Time) (*models.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var raw bson.M
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set":   bson.M{"status": status, "updatedAt": at},
			"$unset": bson.M{"isActive": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&raw)
	if err != nil {
		return nil, translate(err, productNotFound)
	}
	p, err := normalizeProductDocument(raw)
	if err != nil {
		return nil, apperr.Internal("product decode failed", err)
	}
	return &p, nil
}

// visibleFilter excludes draft and archived products and the legacy
// soft-deleted documents that carry isActive=false instead of a status.
func visibleFilter() bson.M {
	return bson.M{
		"status":   bson.M{"$nin": bson.A{models.ProductDraft, models.ProductArchived}},
		"isActive": bson.M{"$ne": false},
	}
}

func buildProductFilter(q service.ProductQuery) bson.M {
	filter := visibleFilter()

	if q.CategoryID != nil {
		// older documents reference the category by its hex string
		filter["category"] = bson.M{"$in": bson.A{*q.CategoryID, q.CategoryID.Hex()}}
	}
	if q.Featured {
		filter["featured"] = true
	}
	if q.Trending {
		filter["trending"] = true
	}
	if q.InStock {
		filter["inventory"] = bson.M{"$gt": 0}
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		price := bson.M{}
		if q.MinPrice != nil {
			price["$gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			price["$lte"] = *q.MaxPrice
		}
		filter["price"] = price
	}
	if q.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
			bson.M{"tags": pattern},
		}
	}
	return filter
}

// statusFilter matches one lifecycle state, counting legacy isActive=false
// documents as archived and status-less ones as active.
func statusFilter(status models.ProductStatus) bson.M {
	switch status {
	case models.ProductActive:
		return visibleFilter()
	case models.ProductArchived:
		return bson.M{"$or": bson.A{
			bson.M{"status": models.ProductArchived},
			bson.M{"status": bson.M{"$exists": false}, "isActive": false},
		}}
	default:
		return bson.M{"status": status}
	}
}

func buildAdminFilter(q service.AdminProductQuery) bson.M {
	clauses := bson.A{}
	if q.Status != "" {
		clauses = append(clauses, statusFilter(q.Status))
	}
	if q.CategoryID != nil {
		clauses = append(clauses, bson.M{"category": bson.M{"$in": bson.A{*q.CategoryID, q.CategoryID.Hex()}}})
	}
	if q.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		clauses = append(clauses, bson.M{"$or": bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
			bson.M{"tags": pattern},
		}})
	}
	if len(clauses) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": clauses}
}

func sortFor(key service.SortKey) bson.D {
	switch key {
	case service.SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}
	case service.SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}
	case service.SortPopular:
		return bson.D{{Key: "ratings", Value: -1}, {Key: "_id", Value: 1}}
	case service.SortNameAsc:
		return bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	case service.SortNameDesc:
		return bson.D{{Key: "name", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
}

// collationFor orders names the way category names are ordered. Other sort
// keys compare numbers and dates and need none.
func collationFor(key service.SortKey) *options.Collation {
	switch key {
	case service.SortNameAsc, service.SortNameDesc:
		return byName
	default:
		return nil
	}
}

// normalizeProductDocument decodes a raw product, tolerating the shapes
// older writers left behind: numeric fields stored as other number types, a
// category stored as a hex string, and isActive=false instead of a status.
func normalizeProductDocument(raw bson.M) (models.Product, error) {
	if cat, ok := raw["category"].(string); ok {
		if id, err := primitive.ObjectIDFromHex(cat); err == nil {
			raw["category"] = id
		} else {
			delete(raw, "category")
		}
	}

	if val, ok := raw["inventory"]; ok {
		switch typed := val.(type) {
		case int32:
			raw["inventory"] = int(typed)
		case int64:
			raw["inventory"] = int(typed)
		case float64:
			raw["inventory"] = int(typed)
		case int:
			// already int
		default:
			raw["inventory"] = 0
		}
	} else {
		raw["inventory"] = 0
	}

	for _, field := range []string{"price", "originalPrice", "discount", "ratings"} {
		switch typed := raw[field].(type) {
		case int32:
			raw[field] = float64(typed)
		case int64:
			raw[field] = float64(typed)
		case primitive.Decimal128:
			if f, err := decimalToFloat(typed); err == nil {
				raw[field] = f
			}
		}
	}

	if active, ok := raw["isActive"].(bool); ok && !active {
		if _, has := raw["status"]; !has {
			raw["status"] = string(models.ProductArchived)
		}
	}

	data, err := bson.Marshal(raw)
	if err != nil {
		return models.Product{}, err
	}

	var p models.Product
	if err := bson.Unmarshal(data, &p); err != nil {
		return models.Product{}, err
	}

	p.Derive()
	return p, nil
}

func decimalToFloat(d primitive.Decimal128) (float64, error) {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return 0, err
	}
	return v.InexactFloat64(), nil
}

func decodeProducts(ctx context.Context, cursor *mongo.Cursor) ([]models.Product, error) {
	products := make([]models.Product, 0)

	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}

		product, err := normalizeProductDocument(raw)
		if err != nil {
			return nil, err
		}

		products = append(products, product)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

var _ service.ProductStore = (*ProductRepository)(nil)
