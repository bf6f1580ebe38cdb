// Package model defines database models and the shapes shared between
// the connectors, the chat store and the API
package model

import "time"

type User struct {
	ID           string  `gorm:"primaryKey" json:"id"`
	Email        string  `gorm:"unique;not null" json:"email"`
	Name         string  `json:"name"`
	PasswordHash *string `json:"-"` // nil for accounts created through OAuth

	// Only the SHA-256 of the reset token is kept, the plain token only
	// ever exists in the mail that was sent out
	ResetTokenHash   *string    `gorm:"index" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`

	OAuthAccounts []OAuthAccount `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type OAuthAccount struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	UserID         string `gorm:"index;not null"`
	Provider       string `gorm:"uniqueIndex:idx_provider_account;not null"`
	ProviderUserID string `gorm:"uniqueIndex:idx_provider_account;not null"`
	CreatedAt      time.Time
}
