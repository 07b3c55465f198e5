package types

import "github.com/golang-jwt/jwt/v5"

// Claims is the JWT payload: {userId, email, iat, exp}. Tokens expire after
// seven days.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OnboardingRequest struct {
	OnboardingCompleted *bool `json:"onboardingCompleted"`
}

// AuthPayload is the data object returned by register and login.
type AuthPayload struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
