package models

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address represents a single address entry for a user.
type Address struct {
	ID        string `bson:"id" json:"id"`
	Title     string `bson:"title" json:"title"`
	Detail    string `bson:"detail" json:"detail"`
	Note      string `bson:"note,omitempty" json:"note,omitempty"`
	IsDefault bool   `bson:"isDefault" json:"isDefault"`
}

var phonePattern = regexp.MustCompile(`^(\+91)?([6-9]\d{9})$`)

// NormalizePhone validates an Indian mobile number and returns its ten digit
// form, so "+919876543210" and "9876543210" name the same user.
func NormalizePhone(raw string) (string, bool) {
	m := phonePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", false
	}
	return m[2], true
}

// RoleAdmin grants access to the catalog admin endpoints. Shoppers carry
// no role.
const RoleAdmin = "admin"

// User represents a phone-authenticated shopper. The OTP fields are the
// persisted copy of the outstanding login code and never leave the server.
type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Phone            string               `bson:"phone" json:"phone"`
	Name             string               `bson:"name" json:"name"`
	Email            string               `bson:"email,omitempty" json:"email"`
	OTPHash          string               `bson:"otpHash,omitempty" json:"-"`
	OTPExpires       *time.Time           `bson:"otpExpires,omitempty" json:"-"`
	OTPAttempts      int                  `bson:"otpAttempts" json:"-"`
	IsPhoneVerified  bool                 `bson:"isPhoneVerified" json:"isPhoneVerified"`
	ProfileCompleted bool                 `bson:"profileCompleted" json:"profileCompleted"`
	Role             string               `bson:"role,omitempty" json:"role,omitempty"`
	Addresses        []Address            `bson:"addresses" json:"addresses"`
	Wishlist         []primitive.ObjectID `bson:"wishlist,omitempty" json:"-"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// DefaultUserName is the placeholder name given to a user created from a
// phone number before the profile is completed.
func DefaultUserName(phone string) string {
	if len(phone) <= 4 {
		return "User" + phone
	}
	return "User" + phone[len(phone)-4:]
}
