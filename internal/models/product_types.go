package models

import "time"

// ProductCategory is the discriminant for the product variant.
// Instead of one table per category, every product lives in a single
// 'products' table with a category column and a category-specific
// JSON attributes payload.
type ProductCategory string

const (
	CategoryFertilizer ProductCategory = "fertilizer"
	CategoryPesticide  ProductCategory = "pesticide"
	CategorySeed       ProductCategory = "seed"
	CategoryEquipment  ProductCategory = "equipment"
)

// IsValid reports whether the category is one of the known variants.
func (c ProductCategory) IsValid() bool {
	switch c {
	case CategoryFertilizer, CategoryPesticide, CategorySeed, CategoryEquipment:
		return true
	}
	return false
}

// Product is the model for the 'products' table.
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Slug        string          `json:"slug" db:"slug"`
	Brand       string          `json:"brand" db:"brand"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description" db:"description"`
	Category    ProductCategory `json:"category" db:"category"`

	// --- Pricing & Stock ---
	Price         float64 `json:"price" db:"price"`
	StockQuantity int     `json:"stock" db:"stock_quantity"`

	// --- Media & Social Proof ---
	ImageURL    *string `json:"imageUrl,omitempty" db:"image_url"`
	Rating      float64 `json:"rating" db:"rating"`
	ReviewCount int     `json:"reviewCount" db:"review_count"`

	// Category-specific payload, e.g. npk_ratio/organic for fertilizer,
	// active_ingredient/toxicity_level for pesticide, variety/germination_rate
	// for seed, power_source/warranty_period for equipment.
	// Stored as a JSON column.
	Attributes map[string]interface{} `json:"attributes,omitempty" db:"attributes"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
