// internal/handlers/auth.go
package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"flare-backend/internal/apperr"
	"flare-backend/internal/auth"
	"flare-backend/internal/middleware"
	"flare-backend/internal/models"
)

// bcryptCost matches the slow-hash work factor used for stored
// passwords.
const bcryptCost = 12

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name"`
	TrialUploadsCount int        `json:"trialUploadsCount"`
	TrialUploadsLimit int        `json:"trialUploadsLimit"`
	JoinedAt          time.Time  `json:"joinedAt"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
}

func toUserPayload(u *models.User) userPayload {
	return userPayload{
		ID:                u.ID.String(),
		Email:             u.Email,
		Name:              u.Name,
		TrialUploadsCount: u.TrialUploadsCount,
		TrialUploadsLimit: u.TrialUploadsLimit,
		JoinedAt:          u.CreatedAt,
		LastLogin:         u.LastLogin,
	}
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return apperr.Validation("Email and password are required")
	}
	if len(password) < 6 {
		return apperr.Validation("Password must be at least 6 characters")
	}
	if !emailPattern.MatchString(email) {
		return apperr.Validation("Invalid email format")
	}
	return nil
}

// normalizeEmail lowercases the address so lookups and the unique index
// are case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func Register(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, apperr.Validation("Invalid request body"))
			return
		}

		if err := validateCredentials(req.Email, req.Password); err != nil {
			writeError(c, err)
			return
		}

		email := normalizeEmail(req.Email)

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			writeError(c, apperr.Internal("Registration failed. Please try again.", err))
			return
		}

		now := time.Now()
		user := models.User{
			Email:        email,
			PasswordHash: string(hash),
			Name:         req.Name,
			LastLogin:    &now,
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			var existing models.User
			lookupErr := tx.Where("email = ?", email).First(&existing).Error
			if lookupErr == nil {
				return apperr.Conflict("User already exists")
			}
			if !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
				return apperr.Internal("Registration failed. Please try again.", lookupErr)
			}
			if createErr := tx.Create(&user).Error; createErr != nil {
				return apperr.Internal("Registration failed. Please try again.", createErr)
			}
			return nil
		})
		if err != nil {
			writeError(c, err)
			return
		}

		token, err := auth.GenerateToken(user.ID, user.Email, jwtSecret)
		if err != nil {
			writeError(c, apperr.Internal("Registration failed. Please try again.", err))
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "User registered successfully",
			"token":   token,
			"user":    toUserPayload(&user),
		})
	}
}

func Login(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, apperr.Validation("Invalid request body"))
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(c, apperr.Validation("Email and password are required"))
			return
		}

		// Unknown email and wrong password produce the same message so
		// account existence is not leaked.
		var user models.User
		if err := db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
			writeError(c, apperr.Auth("Invalid email or password"))
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			writeError(c, apperr.Auth("Invalid email or password"))
			return
		}

		now := time.Now()
		if err := db.Model(&user).UpdateColumn("last_login", now).Error; err != nil {
			writeError(c, apperr.Internal("Login failed. Please try again.", err))
			return
		}
		user.LastLogin = &now

		token, err := auth.GenerateToken(user.ID, user.Email, jwtSecret)
		if err != nil {
			writeError(c, apperr.Internal("Login failed. Please try again.", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Login successful",
			"token":   token,
			"user":    toUserPayload(&user),
		})
	}
}

func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			writeError(c, apperr.Auth("Access token required"))
			return
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			writeError(c, apperr.NotFound("User not found"))
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": toUserPayload(&user)})
	}
}
