package handlers

import (
	"net/http"

	"graminstore-backend/internal/auth"
	"graminstore-backend/internal/database"
	"graminstore-backend/internal/ledger"
	"graminstore-backend/internal/logger"
	"graminstore-backend/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type MerchantRegisterRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone" binding:"required"`
	Password     string `json:"password" binding:"required,min=8"`
	AadharNumber string `json:"aadhar_number" binding:"required,len=12"`
	BusinessName string `json:"business_name"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	Country      string `json:"country"`
	BusinessType string `json:"business_type"`
}

type UserRegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func tokenResponse(c *gin.Context, id uint, userType, email string) {
	token, err := auth.GenerateToken(id, userType, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user_type":    userType,
		"user_id":      id,
		"expires_in":   int(auth.TokenExpiry().Seconds()),
	})
}

// RegisterMerchant creates a merchant account and provisions its ledger
// table right away, so the first transaction never pays the DDL cost.
func RegisterMerchant(reg *ledger.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input MerchantRegisterRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		var existing models.Merchant
		err := database.DB.
			Where("email = ? OR phone = ? OR aadhar_number = ?", input.Email, input.Phone, input.AadharNumber).
			First(&existing).Error
		if err == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Merchant with this email, phone or aadhar already exists"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		merchant := models.Merchant{
			Name:         input.Name,
			Email:        input.Email,
			Phone:        input.Phone,
			PasswordHash: string(hash),
			AadharNumber: input.AadharNumber,
			BusinessName: input.BusinessName,
			City:         input.City,
			State:        input.State,
			ZipCode:      input.ZipCode,
			Country:      input.Country,
			BusinessType: input.BusinessType,
		}

		if err := database.DB.Create(&merchant).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Merchant likely already exists"})
			return
		}

		if _, err := reg.EnsureTable(merchant.ID); err != nil {
			logger.Get().WithError(err).WithField("merchant_id", merchant.ID).
				Error("failed to provision ledger table at registration")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		tokenResponse(c, merchant.ID, auth.UserTypeMerchant, merchant.Email)
	}
}

// RegisterUser creates a consumer account.
func RegisterUser(c *gin.Context) {
	var input UserRegisterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var existing models.User
	err := database.DB.Where("email = ? OR phone = ?", input.Email, input.Phone).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email or phone already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: string(hash),
	}

	if err := database.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User likely already exists"})
		return
	}

	tokenResponse(c, user.ID, auth.UserTypeUser, user.Email)
}

// LoginMerchant authenticates a merchant by email and password.
func LoginMerchant(c *gin.Context) {
	var input LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var merchant models.Merchant
	if err := database.DB.Where("email = ?", input.Email).First(&merchant).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(merchant.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect email or password"})
		return
	}

	tokenResponse(c, merchant.ID, auth.UserTypeMerchant, merchant.Email)
}

// LoginUser authenticates a consumer by email and password.
func LoginUser(c *gin.Context) {
	var input LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var user models.User
	if err := database.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect email or password"})
		return
	}

	tokenResponse(c, user.ID, auth.UserTypeUser, user.Email)
}

// MerchantProfile returns the authenticated merchant's profile.
func MerchantProfile(c *gin.Context) {
	merchant, ok := currentMerchant(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, merchant)
}

// UserProfile returns the authenticated consumer's profile.
func UserProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}
