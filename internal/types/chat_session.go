package types

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is a bounded guide conversation scoped to one country/city pair
// for one user. Title is set lazily by the message pipeline when the first
// landmark is identified.
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	Title     *string   `json:"title,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type MessageType string

const (
	MessageTypeText           MessageType = "text"
	MessageTypeImage          MessageType = "image"
	MessageTypeRecommendation MessageType = "recommendation"
	MessageTypeSystem         MessageType = "system"
)

type MessageSender string

const (
	SenderUser      MessageSender = "user"
	SenderAssistant MessageSender = "assistant"
)

// ChatMessage is one turn in a session. Content is always present, even for
// image and recommendation messages. Processing is true only while an image
// is mid-analysis; the request that sets it is responsible for clearing it.
type ChatMessage struct {
	ID              uuid.UUID             `json:"id"`
	SessionID       uuid.UUID             `json:"chatSessionId"`
	Type            MessageType           `json:"type"`
	Content         string                `json:"content"`
	Sender          MessageSender         `json:"sender"`
	LandmarkInfo    *LandmarkDetection    `json:"landmarkInfo,omitempty"`
	Recommendations []PlaceRecommendation `json:"recommendations,omitempty"`
	Processing      *bool                 `json:"processing,omitempty"`
	Timestamp       time.Time             `json:"timestamp"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlaceRecommendation is embedded in a recommendation message; it has no
// independent lifecycle.
type PlaceRecommendation struct {
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	Distance     *float64     `json:"distance,omitempty"` // meters
	Description  string       `json:"description"`
	Rating       *float64     `json:"rating,omitempty"` // 0-5
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	ImageURL     *string      `json:"imageUrl,omitempty"`
	OpeningHours *string      `json:"openingHours,omitempty"`
}

// ChatSessionPreview is a session list entry with its latest message attached.
type ChatSessionPreview struct {
	ID          uuid.UUID           `json:"id"`
	Country     string              `json:"country"`
	City        string              `json:"city"`
	Title       *string             `json:"title,omitempty"`
	IsActive    bool                `json:"isActive"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	LastMessage *ChatMessagePreview `json:"lastMessage,omitempty"`
}

type ChatMessagePreview struct {
	ID        uuid.UUID     `json:"id"`
	Content   string        `json:"content"`
	Type      MessageType   `json:"type"`
	Sender    MessageSender `json:"sender"`
	Timestamp time.Time     `json:"timestamp"`
}

// SessionUpdate is a partial update for PATCH /sessions/{id}. Nil fields are
// left untouched.
type SessionUpdate struct {
	IsActive *bool   `json:"isActive,omitempty"`
	Title    *string `json:"title,omitempty"`
}
