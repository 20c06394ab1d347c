package models

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"storefront/internal/apperr"
)

func TestStringListDecodesSingleString(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"images": " front.jpg "})
	require.NoError(t, err)

	var doc struct {
		Images StringList `bson:"images"`
	}
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, StringList{"front.jpg"}, doc.Images)
}

func TestStringListSplitsCommaSeparatedString(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"tags": "linen, summer,,"})
	require.NoError(t, err)

	var doc struct {
		Tags StringList `bson:"tags"`
	}
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, StringList{"linen", "summer"}, doc.Tags)
}

func TestStringListDropsBlankArrayEntries(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"tags": bson.A{"denim", " ", "slim"}})
	require.NoError(t, err)

	var doc struct {
		Tags StringList `bson:"tags"`
	}
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, StringList{"denim", "slim"}, doc.Tags)
}

func TestStringListJSONNeverNull(t *testing.T) {
	body, err := json.Marshal(struct {
		Sizes StringList `json:"sizes"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sizes":[]}`, string(body))
}

func TestProductDerive(t *testing.T) {
	p := Product{Price: 750, OriginalPrice: 1000, Inventory: 2}
	p.Derive()

	assert.True(t, p.InStock)
	assert.Equal(t, 25, p.DiscountPercentage)
	assert.Equal(t, ProductActive, p.Status)

	p = Product{Price: 500}
	p.Derive()
	assert.False(t, p.InStock)
	assert.Zero(t, p.DiscountPercentage)
}

func TestProductSyncDiscountStoresPercent(t *testing.T) {
	p := Product{Price: 1199, OriginalPrice: 1299}
	p.SyncDiscount()
	assert.Equal(t, 8.0, p.Discount)

	p = Product{Price: 800, OriginalPrice: 1000}
	p.SyncDiscount()
	assert.Equal(t, 20.0, p.Discount)

	p = Product{Price: 900, OriginalPrice: 500, Discount: 40}
	p.SyncDiscount()
	assert.Zero(t, p.Discount)
}

func TestProductValidate(t *testing.T) {
	valid := Product{Name: "Linen Shirt", Price: 800, OriginalPrice: 1000, Inventory: 3, Discount: 20, Ratings: 4.5}
	require.NoError(t, valid.Validate())

	zero := Product{Name: "Sample", Price: 0}
	require.NoError(t, zero.Validate())

	cases := map[string]func(p *Product){
		"blank name":          func(p *Product) { p.Name = "  " },
		"long name":           func(p *Product) { p.Name = strings.Repeat("x", MaxProductNameLength+1) },
		"long description":    func(p *Product) { p.Description = strings.Repeat("x", MaxProductDescriptionLength+1) },
		"negative price":      func(p *Product) { p.Price = -1 },
		"nan price":           func(p *Product) { p.Price = math.NaN() },
		"negative original":   func(p *Product) { p.OriginalPrice = -50 },
		"negative inventory":  func(p *Product) { p.Inventory = -5 },
		"discount above 100":  func(p *Product) { p.Discount = 101 },
		"negative discount":   func(p *Product) { p.Discount = -1 },
		"rating above 5":      func(p *Product) { p.Ratings = 42 },
		"negative rating":     func(p *Product) { p.Ratings = -0.5 },
		"unknown status":      func(p *Product) { p.Status = "deleted" },
	}
	for name, mutate := range cases {
		p := valid
		mutate(&p)
		err := p.Validate()
		require.Error(t, err, name)
		assert.ErrorIs(t, err, apperr.ErrValidation, name)
	}
}

func TestParseProductStatus(t *testing.T) {
	s, err := ParseProductStatus(" Draft ")
	require.NoError(t, err)
	assert.Equal(t, ProductDraft, s)

	s, err = ParseProductStatus("")
	require.NoError(t, err)
	assert.Equal(t, ProductActive, s)

	_, err = ParseProductStatus("gone")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestProductStatusVisible(t *testing.T) {
	assert.True(t, ProductStatus("").Visible())
	assert.True(t, ProductActive.Visible())
	assert.False(t, ProductDraft.Visible())
	assert.False(t, ProductArchived.Visible())
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "shirts", Slugify("Shirts"))
	assert.Equal(t, "cargo-pants", Slugify("  Cargo   Pants! "))
	assert.Equal(t, "t-shirts-2024", Slugify("T-Shirts (2024)"))
}

func TestDefaultUserName(t *testing.T) {
	assert.Equal(t, "User3210", DefaultUserName("9876543210"))
	assert.Equal(t, "User3210", DefaultUserName("+919876543210"))
}

func TestNormalizePhone(t *testing.T) {
	for _, raw := range []string{"9876543210", "+919876543210", " 9876543210 "} {
		got, ok := NormalizePhone(raw)
		require.True(t, ok, raw)
		assert.Equal(t, "9876543210", got, raw)
	}
	for _, raw := range []string{"", "12345", "5876543210", "919876543210", "+9198765432100"} {
		_, ok := NormalizePhone(raw)
		assert.False(t, ok, raw)
	}
}
