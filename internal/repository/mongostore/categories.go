package mongostore

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/service"
)

const (
	categoryNotFound = "Category not found"
	maxNameMatches   = 20
)

// byName sorts case-insensitively, the way shoppers read the list.
var byName = &options.Collation{Locale: "en", Strength: 2}

type CategoryRepository struct {
	coll *mongo.Collection
}

func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{coll: db.Collection(CategoriesCollection)}
}

func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	return r.find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetCollation(byName))
}

func (r *CategoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *CategoryRepository) MatchName(ctx context.Context, fragment string) ([]models.Category, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(fragment), Options: "i"}
	return r.find(ctx, bson.M{"name": pattern}, options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetCollation(byName).
		SetLimit(maxNameMatches))
}

func (r *CategoryRepository) Insert(ctx context.Context, c *models.Category) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, c); err != nil {
		return categoryWriteError(err)
	}
	return nil
}

func (r *CategoryRepository) Replace(ctx context.Context, c *models.Category) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return categoryWriteError(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound(categoryNotFound)
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperr.Internal("db error", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound(categoryNotFound)
	}
	return nil
}

// categoryWriteError reports a unique index hit on name or slug as a
// conflict the admin can act on.
func categoryWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return &apperr.Error{Kind: apperr.KindConflict, Message: "category already exists", Err: err}
	}
	return translate(err, categoryNotFound)
}

func (r *CategoryRepository) findOne(ctx context.Context, filter bson.M) (*models.Category, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var cat models.Category
	if err := r.coll.FindOne(ctx, filter).Decode(&cat); err != nil {
		return nil, translate(err, categoryNotFound)
	}
	return &cat, nil
}

func (r *CategoryRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Category, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Internal("db error", err)
	}
	defer cursor.Close(ctx)

	categories := make([]models.Category, 0)
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, apperr.Internal("db error", err)
	}
	return categories, nil
}

var _ service.CategoryStore = (*CategoryRepository)(nil)
