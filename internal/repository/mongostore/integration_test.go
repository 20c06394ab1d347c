package mongostore

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/database"
	"storefront/internal/models"
	"storefront/internal/service"
)

// openTestDB runs against a real server when MONGO_URI is set. Each test
// gets its own database, dropped on cleanup.
func openTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := database.Connect(ctx, uri)
	require.NoError(t, err)

	db := client.Database("storefront_test_" + strconv.FormatInt(time.Now().UnixNano(), 36))
	require.NoError(t, database.EnsureIndexes(ctx, db, zap.NewNop()))
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestCartAddQuantityConcurrent(t *testing.T) {
	db := openTestDB(t)
	carts := NewCartRepository(db)
	ctx := context.Background()
	user, product := primitive.NewObjectID(), primitive.NewObjectID()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := carts.AddQuantity(ctx, user, product, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	cart, err := carts.FindByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Products, 1)
	assert.Equal(t, 10, cart.Products[0].Quantity)
}

func TestCartLineOperations(t *testing.T) {
	db := openTestDB(t)
	carts := NewCartRepository(db)
	ctx := context.Background()
	user := primitive.NewObjectID()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	_, err := carts.RemoveLine(ctx, user, a)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = carts.AddQuantity(ctx, user, a, 2)
	require.NoError(t, err)
	cart, err := carts.AddQuantity(ctx, user, b, 1)
	require.NoError(t, err)
	require.Len(t, cart.Products, 2)

	_, err = carts.SetQuantity(ctx, user, primitive.NewObjectID(), 3)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	cart, err = carts.SetQuantity(ctx, user, a, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Products[0].Quantity)

	cart, err = carts.RemoveLine(ctx, user, a)
	require.NoError(t, err)
	require.Len(t, cart.Products, 1)
	assert.Equal(t, b, cart.Products[0].Product)

	cart, err = carts.Clear(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, cart.Products)
}

func TestUserRepositoryOTPAndProfile(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	u, created, err := users.EnsureByPhone(ctx, "9876543210", "User3210")
	require.NoError(t, err)
	assert.True(t, created)
	again, created, err := users.EnsureByPhone(ctx, "9876543210", "ignored")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "User3210", again.Name)

	expires := time.Now().Add(10 * time.Minute)
	require.NoError(t, users.SetOTP(ctx, u.ID, "hash", expires))
	n, err := users.IncrOTPAttempts(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, users.LockOTP(ctx, u.ID, 3))
	locked, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, locked.OTPHash)
	assert.Equal(t, 3, locked.OTPAttempts)
	require.NotNil(t, locked.OTPExpires)

	verified, err := users.MarkPhoneVerified(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsPhoneVerified)
	assert.Nil(t, verified.OTPExpires)

	other, _, err := users.EnsureByPhone(ctx, "9123456789", "User6789")
	require.NoError(t, err)
	_, err = users.CompleteProfile(ctx, u.ID, "Asha", "asha@example.com")
	require.NoError(t, err)
	_, err = users.CompleteProfile(ctx, other.ID, "Ravi", "asha@example.com")
	require.ErrorIs(t, err, apperr.ErrConflict)

	p := primitive.NewObjectID()
	require.NoError(t, users.AddToWishlist(ctx, u.ID, p))
	require.NoError(t, users.AddToWishlist(ctx, u.ID, p))
	withList, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{p}, withList.Wishlist)
}

func TestProductRepositoryList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	catID := primitive.NewObjectID()

	now := time.Now()
	docs := []interface{}{
		models.Product{ID: primitive.NewObjectID(), Name: "A", Price: 400, Category: &catID, Inventory: 1, CreatedAt: now},
		models.Product{ID: primitive.NewObjectID(), Name: "B", Price: 600, Category: &catID, Inventory: 1, CreatedAt: now.Add(-time.Hour)},
		models.Product{ID: primitive.NewObjectID(), Name: "C", Price: 900, Status: models.ProductArchived, CreatedAt: now},
	}
	_, err := db.Collection(ProductsCollection).InsertMany(ctx, docs)
	require.NoError(t, err)

	products := NewProductRepository(db)
	lo := 500.0
	items, total, err := products.List(ctx, service.ProductQuery{CategoryID: &catID, MinPrice: &lo, Sort: service.SortPriceAsc})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Name)

	items, total, err = products.List(ctx, service.ProductQuery{Sort: service.SortNewest})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "A", items[0].Name)
}
