package service_test

import (
	"storefront/internal/models"
)

func usersFixture(phone, email string) models.User {
	return models.User{Phone: phone, Name: models.DefaultUserName(phone), Email: email, Addresses: []models.Address{}}
}

func ptr[T any](v T) *T { return &v }
