package models

import "time"

// Identity providers a user row can originate from.
const (
	ProviderAnonymous   = "anonymous"
	ProviderCustomToken = "custom_token"
)

type User struct {
	ID         string     `json:"id"`
	Provider   string     `json:"provider"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at"`
}

type CustomTokenRequest struct {
	Token string `json:"token"`
}

type SignInResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Provider  string `json:"provider"`
	ExpiresIn int    `json:"expires_in"`
}
