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

const userNotFound = "User not found"

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"phone": phone})
}

func (r *UserRepository) EnsureByPhone(ctx context.Context, phone, defaultName string) (*models.User, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"phone": phone},
		bson.M{"$setOnInsert": bson.M{
			"phone":            phone,
			"name":             defaultName,
			"addresses":        bson.A{},
			"otpAttempts":      0,
			"isPhoneVerified":  false,
			"profileCompleted": false,
			"createdAt":        now,
			"updatedAt":        now,
		}},
		options.Update().SetUpsert(true),
	)
	// a concurrent first send for the same phone loses the upsert race on
	// the unique index; the user exists either way
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, false, apperr.Internal("db error", err)
	}
	created := err == nil && res.UpsertedCount > 0

	user, err := r.findOne(ctx, bson.M{"phone": phone})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

func (r *UserRepository) SetOTP(ctx context.Context, id primitive.ObjectID, hash string, expires time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"otpHash":     hash,
			"otpExpires":  expires,
			"otpAttempts": 0,
			"updatedAt":   time.Now(),
		},
	})
}

func (r *UserRepository) IncrOTPAttempts(ctx context.Context, id primitive.ObjectID) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var out struct {
		OTPAttempts int `bson:"otpAttempts"`
	}
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"otpAttempts": 1}},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"otpAttempts": 1}),
	).Decode(&out)
	if err != nil {
		return 0, translate(err, userNotFound)
	}
	return out.OTPAttempts, nil
}

func (r *UserRepository) LockOTP(ctx context.Context, id primitive.ObjectID, attempts int) error {
	return r.updateByID(ctx, id, bson.M{
		"$unset": bson.M{"otpHash": ""},
		"$set":   bson.M{"otpAttempts": attempts, "updatedAt": time.Now()},
	})
}

func (r *UserRepository) ClearOTP(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$unset": bson.M{"otpHash": "", "otpExpires": ""},
		"$set":   bson.M{"otpAttempts": 0, "updatedAt": time.Now()},
	})
}

func (r *UserRepository) MarkPhoneVerified(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{
		"$unset": bson.M{"otpHash": "", "otpExpires": ""},
		"$set": bson.M{
			"otpAttempts":     0,
			"isPhoneVerified": true,
			"updatedAt":       time.Now(),
		},
	})
}

func (r *UserRepository) CompleteProfile(ctx context.Context, id primitive.ObjectID, name, email string) (*models.User, error) {
	user, err := r.findOneAndUpdate(ctx, id, bson.M{
		"$set": bson.M{
			"name":             name,
			"email":            email,
			"profileCompleted": true,
			"updatedAt":        time.Now(),
		},
	})
	if errors.Is(err, apperr.ErrConflict) {
		return nil, apperr.Conflict("email already registered")
	}
	return user, err
}

func (r *UserRepository) SetAddresses(ctx context.Context, id primitive.ObjectID, addresses []models.Address) error {
	if addresses == nil {
		addresses = []models.Address{}
	}
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"addresses": addresses, "updatedAt": time.Now()},
	})
}

func (r *UserRepository) AddToWishlist(ctx context.Context, id, productID primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$addToSet": bson.M{"wishlist": productID},
		"$set":      bson.M{"updatedAt": time.Now()},
	})
}

func (r *UserRepository) RemoveFromWishlist(ctx context.Context, id, productID primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{
		"$pull": bson.M{"wishlist": productID},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translate(err, userNotFound)
	}
	return &user, nil
}

func (r *UserRepository) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	update := bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now()}}
	if role == "" {
		update = bson.M{
			"$unset": bson.M{"role": ""},
			"$set":   bson.M{"updatedAt": time.Now()},
		}
	}
	return r.updateByID(ctx, id, update)
}

func (r *UserRepository) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user models.User
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return nil, translate(err, userNotFound)
	}
	return &user, nil
}

func (r *UserRepository) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, id, update)
	if err != nil {
		return translate(err, userNotFound)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound(userNotFound)
	}
	return nil
}

var _ service.UserRepository = (*UserRepository)(nil)
