package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the closed set of catalog categories
type Category string

const (
	CategoryElectronics Category = "Electronics"
	CategoryClothing    Category = "Clothing"
	CategoryBooks       Category = "Books"
	CategoryHomeKitchen Category = "Home & Kitchen"
	CategorySports      Category = "Sports"
	CategoryToys        Category = "Toys"
	CategoryOther       Category = "Other"
)

// DefaultProductImage is used when a product is created without an image
const DefaultProductImage = "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=300&h=300&fit=crop"

// Categories lists every valid category in display order
func Categories() []Category {
	return []Category{
		CategoryElectronics,
		CategoryClothing,
		CategoryBooks,
		CategoryHomeKitchen,
		CategorySports,
		CategoryToys,
		CategoryOther,
	}
}

// Valid reports whether c belongs to the closed category set
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Product represents a product in the catalog
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Category    Category        `json:"category" db:"category"`
	Image       string          `json:"image" db:"image"`
	Stock       int             `json:"stock" db:"stock"`
	Rating      decimal.Decimal `json:"rating" db:"rating"`
	Reviews     int             `json:"reviews" db:"reviews"`
	Featured    bool            `json:"featured" db:"featured"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// Summary returns the reduced projection embedded in order items
func (p *Product) Summary() *ProductSummary {
	return &ProductSummary{ID: p.ID, Name: p.Name, Image: p.Image}
}

// ProductSummary is the product projection attached to order items
type ProductSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}
