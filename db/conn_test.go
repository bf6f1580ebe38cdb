package db

import (
	"testing"

	"bitwise74/labyrinth-api/config"
	"bitwise74/labyrinth-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SQLiteMemory(t *testing.T) {
	d, err := New(&config.Config{DBDriver: "sqlite", DBDSN: "file::memory:?cache=shared", LogLevel: "info"})
	require.NoError(t, err)

	hash := "hash"
	require.NoError(t, d.Create(&model.User{ID: "u1", Email: "a@b.co", PasswordHash: &hash}).Error)

	var u model.User
	require.NoError(t, d.First(&u, "email = ?", "a@b.co").Error)
	assert.Equal(t, "u1", u.ID)

	assert.Error(t, d.Create(&model.User{ID: "u2", Email: "a@b.co"}).Error, "email is unique")
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(&config.Config{DBDriver: "mysql", DBDSN: "x"})
	assert.Error(t, err)
}
