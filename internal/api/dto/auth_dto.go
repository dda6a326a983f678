package dto

import "time"

// UserRegisterRequest payload for new users. Email or phone is required.
type UserRegisterRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Email       *string `json:"email" validate:"required_without=Phone,omitempty,email"`
	Phone       *string `json:"phone" validate:"required_without=Email,omitempty,min=6,max=20"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	FranchiseID *string `json:"franchise_id" validate:"omitempty,uuid"`
}

// UserLoginRequest payload for end-user login. Email wins when both are set.
type UserLoginRequest struct {
	Email    *string `json:"email" validate:"required_without=Phone,omitempty,email"`
	Phone    *string `json:"phone" validate:"required_without=Email,omitempty,min=6,max=20"`
	Password string  `json:"password" validate:"required"`
}

// LoginRequest payload for admin login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
