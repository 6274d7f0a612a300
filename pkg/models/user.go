package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole 用户角色
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User represents a user in the system
type User struct {
	ID           string    `json:"id" db:"id" bson:"_id"`
	FirstName    string    `json:"first_name" db:"first_name" bson:"first_name"`
	LastName     string    `json:"last_name" db:"last_name" bson:"last_name"`
	MobileNumber string    `json:"mobile_number,omitempty" db:"mobile_number" bson:"mobile_number,omitempty"`
	Email        string    `json:"email" db:"email" bson:"email"`
	Password     string    `json:"-" db:"password_hash" bson:"password_hash"` // Never return password in JSON
	GoogleID     string    `json:"-" db:"google_id" bson:"google_id,omitempty"`
	Address      string    `json:"address,omitempty" db:"address" bson:"address"`
	Role         UserRole  `json:"role" db:"role" bson:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at" bson:"updated_at"`

	// 反向引用：由存储层按需填充
	CreatedIdeas   []string `json:"created_ideas" db:"-" bson:"-"`
	Collaborations []string `json:"collaborations" db:"-" bson:"-"`
}

// Provider returns how the account authenticates.
func (u *User) Provider() string {
	if u.GoogleID != "" && u.Password == "" {
		return "google"
	}
	return "email"
}

// UserSignupRequest represents the request payload for user registration
type UserSignupRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	MobileNumber string `json:"mobileNumber"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Address      string `json:"address"`
}

// UserLoginRequest represents the request payload for user login
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserLoginResponse represents the response payload for user login.
// Token mirrors AccessToken for clients that only read `token`.
type UserLoginResponse struct {
	User         User   `json:"user"`
	Token        string `json:"token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshTokenRequest represents the request payload for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenClaims represents the JWT token claims
type TokenClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role,omitempty"`
	Type   string   `json:"type"` // "access" or "refresh"
	Exp    int64    `json:"exp"`
	Iat    int64    `json:"iat"`
}

// GetExpirationTime implements jwt.Claims interface
func (c *TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

// GetIssuedAt implements jwt.Claims interface
func (c *TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

// GetNotBefore implements jwt.Claims interface
func (c *TokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims interface
func (c *TokenClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims interface
func (c *TokenClaims) GetSubject() (string, error) {
	return c.UserID, nil
}

// GetAudience implements jwt.Claims interface
func (c *TokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
