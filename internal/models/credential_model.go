package models

import "time"

// OAuthCredential holds the encrypted LinkedIn token pair for a user.
// Token columns store AES-GCM ciphertext, never plaintext.
type OAuthCredential struct {
	UserID       int64     `db:"user_id" json:"user_id"`
	AccountURN   string    `db:"account_urn" json:"account_urn"`
	AccountName  string    `db:"account_name" json:"account_name"`
	AccessToken  string    `db:"access_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	Scopes       string    `db:"scopes" json:"scopes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type OAuthState struct {
	State     string    `db:"state"`
	UserID    int64     `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}
