package service

import (
	"time"

	"bitwise74/labyrinth-api/model"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClearExpiredResetTokens drops reset tokens whose expiry has passed and
// returns how many accounts were touched
func ClearExpiredResetTokens(db *gorm.DB, now time.Time) (int64, error) {
	res := db.
		Model(&model.User{}).
		Where("reset_token_expiry IS NOT NULL AND reset_token_expiry <= ?", now).
		Updates(map[string]any{
			"reset_token_hash":   nil,
			"reset_token_expiry": nil,
		})

	return res.RowsAffected, res.Error
}

// StartTokenCleanup schedules ClearExpiredResetTokens. Stop the returned
// scheduler on shutdown.
func StartTokenCleanup(db *gorm.DB, spec string) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		n, err := ClearExpiredResetTokens(db, time.Now())
		if err != nil {
			zap.L().Error("Failed to clear expired reset tokens", zap.Error(err))
			return
		}

		if n > 0 {
			zap.L().Debug("Cleared expired reset tokens", zap.Int64("count", n))
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	zap.L().Debug("Token cleanup attached", zap.String("schedule", spec))

	return c, nil
}
