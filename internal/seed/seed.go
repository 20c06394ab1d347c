// Package seed loads catalog fixtures from YAML.
package seed

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"

	"storefront/internal/models"
)

type Fixture struct {
	Categories []CategoryFixture `yaml:"categories"`
	Products   []ProductFixture  `yaml:"products"`
	// Admins lists the phone numbers granted the admin role.
	Admins []string `yaml:"admins"`
}

type CategoryFixture struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	Parent      string `yaml:"parent"`
	Featured    bool   `yaml:"featured"`
}

type ProductFixture struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Price         float64  `yaml:"price"`
	OriginalPrice float64  `yaml:"originalPrice"`
	Images        []string `yaml:"images"`
	Category      string   `yaml:"category"`
	Brand         string   `yaml:"brand"`
	Sizes         []string `yaml:"sizes"`
	Colors        []string `yaml:"colors"`
	Tags          []string `yaml:"tags"`
	Inventory     int      `yaml:"inventory"`
	Featured      bool     `yaml:"featured"`
	Trending      bool     `yaml:"trending"`
	Ratings       float64  `yaml:"ratings"`
	Status        string   `yaml:"status"`
}

func Load(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

func LoadFile(path string) (*Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Load(file)
}

// Build turns the fixture into documents with fresh ids. Products reference
// categories by name or slug; parents must be listed before their children.
// Products get strictly decreasing creation times in file order, so the
// first listed product is the newest.
func (f *Fixture) Build(now time.Time) ([]models.Category, []models.Product, error) {
	categories := make([]models.Category, 0, len(f.Categories))
	byRef := make(map[string]primitive.ObjectID, 2*len(f.Categories))

	for i, cf := range f.Categories {
		name := strings.TrimSpace(cf.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("category %d: name is required", i)
		}
		slug := strings.TrimSpace(cf.Slug)
		if slug == "" {
			slug = models.Slugify(name)
		}
		if _, dup := byRef[strings.ToLower(name)]; dup {
			return nil, nil, fmt.Errorf("category %q: duplicate name", name)
		}

		cat := models.Category{
			ID:          primitive.NewObjectID(),
			Name:        name,
			Slug:        slug,
			Description: cf.Description,
			Image:       cf.Image,
			Featured:    cf.Featured,
			CreatedAt:   now,
		}
		if parent := strings.ToLower(strings.TrimSpace(cf.Parent)); parent != "" {
			id, ok := byRef[parent]
			if !ok {
				return nil, nil, fmt.Errorf("category %q: unknown parent %q", name, cf.Parent)
			}
			cat.ParentCategory = &id
		}

		byRef[strings.ToLower(name)] = cat.ID
		byRef[strings.ToLower(slug)] = cat.ID
		categories = append(categories, cat)
	}

	for _, phone := range f.Admins {
		if _, ok := models.NormalizePhone(phone); !ok {
			return nil, nil, fmt.Errorf("admin %q: invalid phone number", phone)
		}
	}

	products := make([]models.Product, 0, len(f.Products))
	for i, pf := range f.Products {
		name := strings.TrimSpace(pf.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("product %d: name is required", i)
		}
		if pf.Price <= 0 {
			return nil, nil, fmt.Errorf("product %q: price must be positive", name)
		}
		status, err := models.ParseProductStatus(pf.Status)
		if err != nil {
			return nil, nil, fmt.Errorf("product %q: %w", name, err)
		}

		created := now.Add(-time.Duration(i) * time.Second)
		p := models.Product{
			ID:            primitive.NewObjectID(),
			Name:          name,
			Description:   pf.Description,
			Price:         pf.Price,
			OriginalPrice: pf.OriginalPrice,
			Images:        models.StringList(pf.Images),
			Brand:         pf.Brand,
			Sizes:         models.StringList(pf.Sizes),
			Colors:        models.StringList(pf.Colors),
			Tags:          models.StringList(pf.Tags),
			Inventory:     pf.Inventory,
			Featured:      pf.Featured,
			Trending:      pf.Trending,
			Ratings:       pf.Ratings,
			Status:        status,
			CreatedAt:     created,
			UpdatedAt:     created,
		}
		p.SyncDiscount()
		if err := p.Validate(); err != nil {
			return nil, nil, fmt.Errorf("product %q: %w", name, err)
		}
		if ref := strings.ToLower(strings.TrimSpace(pf.Category)); ref != "" {
			id, ok := byRef[ref]
			if !ok {
				return nil, nil, fmt.Errorf("product %q: unknown category %q", name, pf.Category)
			}
			p.Category = &id
		}
		products = append(products, p)
	}

	return categories, products, nil
}
