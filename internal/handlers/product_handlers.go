package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/agromart/agromart-golang/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

//
// --- Catalog Handlers ---
//

// scanProducts turns a product result set into models.
func scanProducts(rows *sql.Rows) ([]models.Product, error) {
	var products []models.Product
	for rows.Next() {
		var p models.Product
		var imageURL sql.NullString
		var attributes []byte

		err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.Brand, &p.Title, &p.Description, &p.Category,
			&p.Price, &p.StockQuantity, &imageURL, &p.Rating, &p.ReviewCount, &attributes,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if imageURL.Valid {
			p.ImageURL = &imageURL.String
		}
		if len(attributes) > 0 {
			if err := json.Unmarshal(attributes, &p.Attributes); err != nil {
				return nil, err
			}
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const productColumns = `
	id, name, slug, brand, title, description, category,
	price, stock_quantity, image_url, rating, review_count, attributes,
	created_at, updated_at`

// ListProducts is the handler for GET /v1/products.
// Supports ?category= and ?search= filters.
func (h *Handlers) ListProducts(c *gin.Context) {
	// 1. --- Build the Query ---
	query := "SELECT" + productColumns + " FROM products WHERE 1=1"
	var args []interface{}

	if category := c.Query("category"); category != "" {
		if !models.ProductCategory(category).IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category: " + category})
			return
		}
		query += " AND category = ?"
		args = append(args, category)
	}

	if search := c.Query("search"); search != "" {
		query += " AND (name LIKE ? OR brand LIKE ? OR description LIKE ?)"
		like := "%" + search + "%"
		args = append(args, like, like, like)
	}

	query += " ORDER BY created_at DESC"

	// 2. --- Run It ---
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read products"})
		return
	}

	// Empty list, not null, when nothing matches.
	if products == nil {
		products = []models.Product{}
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// GetProduct is the handler for GET /v1/products/:id.
func (h *Handlers) GetProduct(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	rows, err := h.DB.Query("SELECT"+productColumns+" FROM products WHERE id = ?", productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read product"})
		return
	}
	if len(products) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, products[0])
}

// CreateProductInput defines the JSON for the admin create endpoint.
type CreateProductInput struct {
	Name        string                 `json:"name" binding:"required"`
	Brand       string                 `json:"brand" binding:"required"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Category    string                 `json:"category" binding:"required"`
	Price       float64                `json:"price" binding:"required,gt=0"`
	Stock       int                    `json:"stock" binding:"gte=0"`
	ImageURL    *string                `json:"imageUrl"`
	Attributes  map[string]interface{} `json:"attributes"`
}

// CreateProduct is the admin-only handler for POST /v1/admin/products.
func (h *Handlers) CreateProduct(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := models.ProductCategory(input.Category)
	if !category.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown category: " + input.Category})
		return
	}

	// 2. --- Encode the Category Attributes ---
	var attributes []byte
	if input.Attributes != nil {
		var err error
		if attributes, err = json.Marshal(input.Attributes); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attributes payload"})
			return
		}
	}

	// 3. --- Insert ---
	now := time.Now()
	productSlug := slug.Make(input.Brand + " " + input.Name)

	result, err := h.DB.Exec(`
		INSERT INTO products
			(name, slug, brand, title, description, category,
			 price, stock_quantity, image_url, attributes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Name, productSlug, input.Brand, input.Title, input.Description, category,
		input.Price, input.Stock, input.ImageURL, attributes, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}

	productID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Product created",
		"productId": productID,
		"slug":      productSlug,
	})
}
