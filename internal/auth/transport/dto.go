// Package transport defines the wire DTOs for the auth module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type SignInRequest struct {
	Email    string `json:"email" binding:"required" validate:"required,email"`
	Password string `json:"password" binding:"required" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type SignOutRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// TokenPairResponse carries a short-lived access token and the opaque
// refresh token that replaces the one just used.
type TokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Total int            `json:"total"`
}
