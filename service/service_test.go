package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitwise74/labyrinth-api/config"
	"bitwise74/labyrinth-api/db"
	"bitwise74/labyrinth-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestResetLink(t *testing.T) {
	assert.Equal(t, "https://app.example.com/reset-password?token=abc123", ResetLink("https://app.example.com/", "abc123"))
}

func TestSendResetMail(t *testing.T) {
	m := NewSMTPMailer(config.Mail{Host: "smtp.example.com", Port: 587, Sender: "noreply@example.com"}, "https://app.example.com")

	var sent *gomail.Message
	m.send = func(msg *gomail.Message) error {
		sent = msg
		return nil
	}

	require.NoError(t, m.SendResetMail(context.Background(), "user@example.com", "tok"))
	require.NotNil(t, sent)
	assert.Equal(t, []string{"user@example.com"}, sent.GetHeader("To"))
	assert.Equal(t, []string{"noreply@example.com"}, sent.GetHeader("From"))

	m.send = func(*gomail.Message) error { return errors.New("connection refused") }
	assert.ErrorContains(t, m.SendResetMail(context.Background(), "user@example.com", "tok"), "connection refused")

	assert.Error(t, m.SendResetMail(context.Background(), "NoReply@example.com", "tok"))
}

func TestSendResetMail_Disabled(t *testing.T) {
	m := NewSMTPMailer(config.Mail{}, "http://localhost:3000")
	assert.ErrorIs(t, m.SendResetMail(context.Background(), "user@example.com", "tok"), ErrMailDisabled)
}

func TestClearExpiredResetTokens(t *testing.T) {
	d, err := db.New(&config.Config{DBDriver: "sqlite", DBDSN: "file:token_cleanup?mode=memory&cache=shared"})
	require.NoError(t, err)

	now := time.Now()
	past, future := now.Add(-time.Minute), now.Add(time.Hour)
	h1, h2 := "h1", "h2"

	require.NoError(t, d.Create(&model.User{ID: "expired", Email: "a@example.com", ResetTokenHash: &h1, ResetTokenExpiry: &past}).Error)
	require.NoError(t, d.Create(&model.User{ID: "valid", Email: "b@example.com", ResetTokenHash: &h2, ResetTokenExpiry: &future}).Error)
	require.NoError(t, d.Create(&model.User{ID: "none", Email: "c@example.com"}).Error)

	n, err := ClearExpiredResetTokens(d, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var u model.User
	require.NoError(t, d.First(&u, "id = ?", "expired").Error)
	assert.Nil(t, u.ResetTokenHash)
	assert.Nil(t, u.ResetTokenExpiry)

	var v model.User
	require.NoError(t, d.First(&v, "id = ?", "valid").Error)
	assert.NotNil(t, v.ResetTokenHash)
}

func TestStartTokenCleanup_BadSchedule(t *testing.T) {
	_, err := StartTokenCleanup(nil, "not a schedule")
	assert.Error(t, err)
}
