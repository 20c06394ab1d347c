// Package memory implements the service repositories in process memory. It
// backs local development without MongoDB and the service and handler tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/service"
)

type UserRepository struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
	now   func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[primitive.ObjectID]*models.User), now: time.Now}
}

// Put stores a copy of u, assigning an id when it has none.
func (r *UserRepository) Put(u models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.users[u.ID] = &u
	return cloneUser(&u)
}

func (r *UserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.byPhone(phone)
	if u == nil {
		return nil, apperr.NotFound("User not found")
	}
	return cloneUser(u), nil
}

func (r *UserRepository) EnsureByPhone(_ context.Context, phone, defaultName string) (*models.User, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u := r.byPhone(phone); u != nil {
		return cloneUser(u), false, nil
	}
	now := r.now()
	u := &models.User{
		ID:        primitive.NewObjectID(),
		Phone:     phone,
		Name:      defaultName,
		Addresses: []models.Address{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.users[u.ID] = u
	return cloneUser(u), true, nil
}

func (r *UserRepository) SetOTP(_ context.Context, id primitive.ObjectID, hash string, expires time.Time) error {
	return r.update(id, func(u *models.User) {
		u.OTPHash = hash
		u.OTPExpires = &expires
		u.OTPAttempts = 0
	})
}

func (r *UserRepository) IncrOTPAttempts(_ context.Context, id primitive.ObjectID) (int, error) {
	var n int
	err := r.update(id, func(u *models.User) {
		u.OTPAttempts++
		n = u.OTPAttempts
	})
	return n, err
}

func (r *UserRepository) LockOTP(_ context.Context, id primitive.ObjectID, attempts int) error {
	return r.update(id, func(u *models.User) {
		u.OTPHash = ""
		u.OTPAttempts = attempts
	})
}

func (r *UserRepository) ClearOTP(_ context.Context, id primitive.ObjectID) error {
	return r.update(id, func(u *models.User) {
		u.OTPHash = ""
		u.OTPExpires = nil
		u.OTPAttempts = 0
	})
}

func (r *UserRepository) MarkPhoneVerified(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	var out *models.User
	err := r.update(id, func(u *models.User) {
		u.OTPHash = ""
		u.OTPExpires = nil
		u.OTPAttempts = 0
		u.IsPhoneVerified = true
		out = cloneUser(u)
	})
	return out, err
}

func (r *UserRepository) CompleteProfile(_ context.Context, id primitive.ObjectID, name, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	for _, other := range r.users {
		if other.ID != id && other.Email != "" && strings.EqualFold(other.Email, email) {
			return nil, apperr.Conflict("email already registered")
		}
	}
	u.Name = name
	u.Email = email
	u.ProfileCompleted = true
	u.UpdatedAt = r.now()
	return cloneUser(u), nil
}

func (r *UserRepository) SetAddresses(_ context.Context, id primitive.ObjectID, addresses []models.Address) error {
	return r.update(id, func(u *models.User) {
		u.Addresses = append([]models.Address{}, addresses...)
	})
}

func (r *UserRepository) AddToWishlist(_ context.Context, id, productID primitive.ObjectID) error {
	return r.update(id, func(u *models.User) {
		for _, p := range u.Wishlist {
			if p == productID {
				return
			}
		}
		u.Wishlist = append(u.Wishlist, productID)
	})
}

func (r *UserRepository) RemoveFromWishlist(_ context.Context, id, productID primitive.ObjectID) error {
	return r.update(id, func(u *models.User) {
		kept := u.Wishlist[:0]
		for _, p := range u.Wishlist {
			if p != productID {
				kept = append(kept, p)
			}
		}
		u.Wishlist = kept
	})
}

func (r *UserRepository) SetRole(_ context.Context, id primitive.ObjectID, role string) error {
	return r.update(id, func(u *models.User) {
		u.Role = role
	})
}

func (r *UserRepository) update(id primitive.ObjectID, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return apperr.NotFound("User not found")
	}
	fn(u)
	u.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) byPhone(phone string) *models.User {
	for _, u := range r.users {
		if u.Phone == phone {
			return u
		}
	}
	return nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Addresses = append([]models.Address(nil), u.Addresses...)
	c.Wishlist = append([]primitive.ObjectID(nil), u.Wishlist...)
	if u.OTPExpires != nil {
		t := *u.OTPExpires
		c.OTPExpires = &t
	}
	return &c
}

var _ service.UserRepository = (*UserRepository)(nil)
