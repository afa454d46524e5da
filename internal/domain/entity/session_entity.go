package entity

import "time"

// Account is the identity known to the provider.
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Token is an issued email one-time passcode challenge. The passcode itself
// never leaves the provider.
type Token struct {
	ID     string    `json:"id"`
	UserID string    `json:"userId"`
	Expire time.Time `json:"expire"`
}

// Session is an authenticated session. Secret is what the caller keeps in its cookie.
type Session struct {
	ID     string    `json:"id"`
	UserID string    `json:"userId"`
	Secret string    `json:"-"`
	Expire time.Time `json:"expire"`
}
