package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"bitwise74/labyrinth-api/util"
)

const (
	resetTokenSize = 32
	ResetTokenTTL  = time.Hour
)

var ErrTokenExpired = errors.New("reset token expired")

// ResetToken is a freshly minted password reset token. Only Hash and
// ExpiresAt are persisted, Plain goes out in the email.
type ResetToken struct {
	Plain     string
	Hash      string
	ExpiresAt time.Time
}

func MakeResetToken(now time.Time) (*ResetToken, error) {
	plain, err := util.GenerateToken(resetTokenSize)
	if err != nil {
		return nil, err
	}

	return &ResetToken{
		Plain:     plain,
		Hash:      HashResetToken(plain),
		ExpiresAt: now.Add(ResetTokenTTL),
	}, nil
}

// HashResetToken is what gets stored and looked up in the database
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// CheckResetExpiry returns ErrTokenExpired once now is at or past expiry
func CheckResetExpiry(expiry *time.Time, now time.Time) error {
	if expiry == nil || !now.Before(*expiry) {
		return ErrTokenExpired
	}

	return nil
}
