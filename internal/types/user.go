package types

import (
	"time"

	"github.com/google/uuid"
)

// UserPreferences holds per-user client settings. Language is one of
// es, en, fr, de, pt; theme is light, dark or system.
type UserPreferences struct {
	Language string `json:"language"`
	Theme    string `json:"theme"`
}

type User struct {
	ID                  uuid.UUID       `json:"id"`
	Email               string          `json:"email"`
	PasswordHash        string          `json:"-"`
	Name                string          `json:"name"`
	Avatar              *string         `json:"avatar,omitempty"`
	Preferences         UserPreferences `json:"preferences"`
	OnboardingCompleted bool            `json:"onboardingCompleted"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	LastLogin           *time.Time      `json:"lastLogin,omitempty"`
}

const (
	DefaultLanguage = "es"
	DefaultTheme    = "system"
)
