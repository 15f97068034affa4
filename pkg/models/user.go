package models

import (
	"time"
)

// User represents an account
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Profile is the public view of a user with their history
type Profile struct {
	Username        string   `json:"username"`
	Email           string   `json:"email"`
	SearchHistory   []string `json:"search_history"`
	DownloadHistory []string `json:"download_history"`
}

// Feedback is a message a user sends to the operators
type Feedback struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sent_at"`
}
