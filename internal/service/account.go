package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// AddressInput is a new or replacement address.
type AddressInput struct {
	Title     string `json:"title" binding:"required"`
	Detail    string `json:"detail" binding:"required"`
	Note      string `json:"note"`
	IsDefault bool   `json:"isDefault"`
}

// AccountService serves the signed-in user's profile, addresses and wishlist.
type AccountService struct {
	users    UserRepository
	products ProductRepository
	log      *zap.Logger
}

func NewAccountService(users UserRepository, products ProductRepository, log *zap.Logger) *AccountService {
	return &AccountService{users: users, products: products, log: log}
}

func (s *AccountService) Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AccountService) ListAddresses(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Addresses == nil {
		return []models.Address{}, nil
	}
	return user.Addresses, nil
}

func (s *AccountService) AddAddress(ctx context.Context, userID primitive.ObjectID, in AddressInput) (*models.Address, error) {
	address, err := normalizeAddress(in)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	address.ID = uuid.NewString()

	addresses := append([]models.Address{}, user.Addresses...)
	if address.IsDefault || len(addresses) == 0 {
		clearDefault(addresses)
		address.IsDefault = true
	}
	addresses = append(addresses, address)

	if err := s.users.SetAddresses(ctx, userID, addresses); err != nil {
		return nil, err
	}
	s.log.Info("address created", zap.String("user_id", userID.Hex()), zap.String("address_id", address.ID))
	return &address, nil
}

func (s *AccountService) UpdateAddress(ctx context.Context, userID primitive.ObjectID, addressID string, in AddressInput) (*models.Address, error) {
	address, err := normalizeAddress(in)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	addresses := append([]models.Address{}, user.Addresses...)
	idx := indexOfAddress(addresses, addressID)
	if idx < 0 {
		return nil, apperr.NotFound("address not found")
	}
	address.ID = addresses[idx].ID
	if address.IsDefault {
		clearDefault(addresses)
	} else if addresses[idx].IsDefault {
		// the only way to move the default is to mark another address
		address.IsDefault = true
	}
	addresses[idx] = address

	if err := s.users.SetAddresses(ctx, userID, addresses); err != nil {
		return nil, err
	}
	return &address, nil
}

func (s *AccountService) DeleteAddress(ctx context.Context, userID primitive.ObjectID, addressID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	idx := indexOfAddress(user.Addresses, addressID)
	if idx < 0 {
		return apperr.NotFound("address not found")
	}

	wasDefault := user.Addresses[idx].IsDefault
	addresses := make([]models.Address, 0, len(user.Addresses)-1)
	addresses = append(addresses, user.Addresses[:idx]...)
	addresses = append(addresses, user.Addresses[idx+1:]...)
	if wasDefault && len(addresses) > 0 {
		addresses[0].IsDefault = true
	}
	return s.users.SetAddresses(ctx, userID, addresses)
}

// Wishlist returns the wishlisted products in the order they were added.
// Products that left the catalog are skipped.
func (s *AccountService) Wishlist(ctx context.Context, userID primitive.ObjectID) ([]models.Product, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(user.Wishlist) == 0 {
		return []models.Product{}, nil
	}

	products, err := s.products.FindByIDs(ctx, user.Wishlist)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	ordered := make([]models.Product, 0, len(products))
	for _, id := range user.Wishlist {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func (s *AccountService) AddToWishlist(ctx context.Context, userID primitive.ObjectID, productID string) error {
	pid, err := parseProductID(productID)
	if err != nil {
		return err
	}
	if _, err := s.products.FindByID(ctx, pid); err != nil {
		return err
	}
	return s.users.AddToWishlist(ctx, userID, pid)
}

// RemoveFromWishlist is idempotent.
func (s *AccountService) RemoveFromWishlist(ctx context.Context, userID primitive.ObjectID, productID string) error {
	pid, err := parseProductID(productID)
	if err != nil {
		return err
	}
	return s.users.RemoveFromWishlist(ctx, userID, pid)
}

func normalizeAddress(in AddressInput) (models.Address, error) {
	a := models.Address{
		Title:     strings.TrimSpace(in.Title),
		Detail:    strings.TrimSpace(in.Detail),
		Note:      strings.TrimSpace(in.Note),
		IsDefault: in.IsDefault,
	}
	if a.Title == "" || a.Detail == "" {
		return models.Address{}, apperr.Validation("title and detail are required")
	}
	return a, nil
}

func clearDefault(addresses []models.Address) {
	for i := range addresses {
		addresses[i].IsDefault = false
	}
}

func indexOfAddress(addresses []models.Address, id string) int {
	id = strings.TrimSpace(id)
	for i := range addresses {
		if addresses[i].ID == id {
			return i
		}
	}
	return -1
}
