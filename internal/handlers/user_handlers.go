package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/agromart/agromart-golang/internal/auth"
	"github.com/agromart/agromart-golang/internal/models"
	"github.com/gin-gonic/gin"
)

// --- User Registration ---

// RegisterUserInput holds the *input* from the user. Separate from
// 'models.User' because we never accept an 'id' or 'role' from the
// request body.
type RegisterUserInput struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates a new customer account.
func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RegisterUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	// 3. --- Create User Model ---
	user := &models.User{
		Role:         "customer", // self-registration is always a customer
		FullName:     input.FullName,
		Email:        input.Email,
		PasswordHash: password.Hash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	// 4. --- Save to Database ---
	query := `
		INSERT INTO users (role, full_name, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := h.DB.Exec(query,
		user.Role, user.FullName, user.Email, user.PasswordHash,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		// The unique index on email turns duplicates into a driver error.
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	user.ID, _ = result.LastInsertId()

	// 5. --- Send Success Response ---
	// Gin respects the 'json:"-"' tag on the password hash.
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"user":    user,
	})
}

// --- Login ---

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and issues a JWT.
func (h *Handlers) Login(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Find User By Email ---
	var user models.User
	query := "SELECT id, role, full_name, email, password_hash FROM users WHERE email = ?"

	err := h.DB.QueryRow(query, input.Email).Scan(
		&user.ID,
		&user.Role,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			// Same message as a wrong password, so the response does not
			// reveal which emails exist.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// 3. --- Check Password ---
	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check password"})
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	// 4. --- Generate JWT ---
	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	// 5. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user": gin.H{
			"id":       user.ID,
			"fullName": user.FullName,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

// GetMyProfile returns the authenticated user's account details.
func (h *Handlers) GetMyProfile(c *gin.Context) {
	userID := currentUserID(c)

	var user models.User
	query := `
		SELECT id, role, full_name, email, phone_number, address, city, state, pincode,
		       created_at, updated_at
		FROM users WHERE id = ?`

	err := h.DB.QueryRow(query, userID).Scan(
		&user.ID, &user.Role, &user.FullName, &user.Email,
		&user.PhoneNumber, &user.Address, &user.City, &user.State, &user.Pincode,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfileInput holds the editable profile fields. Pointers so a
// missing field means "leave unchanged".
type UpdateProfileInput struct {
	FullName    *string `json:"fullName"`
	PhoneNumber *string `json:"phoneNumber"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	State       *string `json:"state"`
	Pincode     *string `json:"pincode"`
}

// UpdateMyProfile patches the authenticated user's profile fields.
func (h *Handlers) UpdateMyProfile(c *gin.Context) {
	userID := currentUserID(c)

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := `
		UPDATE users SET
			full_name    = COALESCE(?, full_name),
			phone_number = COALESCE(?, phone_number),
			address      = COALESCE(?, address),
			city         = COALESCE(?, city),
			state        = COALESCE(?, state),
			pincode      = COALESCE(?, pincode),
			updated_at   = ?
		WHERE id = ?`

	_, err := h.DB.Exec(query,
		input.FullName, input.PhoneNumber, input.Address,
		input.City, input.State, input.Pincode,
		time.Now(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	h.GetMyProfile(c)
}
