package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserTypeMerchant and UserTypeUser are the two identity roles a token
// can carry. Merchants own ledgers; users are consumers.
const (
	UserTypeMerchant = "merchant"
	UserTypeUser     = "user"
)

const defaultExpiry = 30 * time.Minute

func jwtKey() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("graminstore-dev-secret-change-in-production")
}

// Claims defines what is inside the token.
type Claims struct {
	UserID   uint   `json:"user_id"`
	UserType string `json:"user_type"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TokenExpiry returns the configured token lifetime.
func TokenExpiry() time.Duration {
	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		if d, err := time.ParseDuration(v + "m"); err == nil {
			return d
		}
	}
	return defaultExpiry
}

// GenerateToken creates a signed JWT for a merchant or user.
func GenerateToken(userID uint, userType string, email string) (string, error) {
	claims := &Claims{
		UserID:   userID,
		UserType: userType,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenExpiry())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey())
}

// ValidateToken checks if a token is fake or expired.
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtKey(), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
