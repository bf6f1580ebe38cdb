package store

import (
	"context"
	"testing"
	"time"

	"bitwise74/labyrinth-api/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*ChatStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	s := NewChatStore(rdb)

	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	return s, mr
}

func testChat(id string) *model.Chat {
	return &model.Chat{
		ID:    id,
		Title: "what is go?",
		Path:  "/search/" + id,
		Messages: []model.Message{
			{ID: "m1", Role: model.RoleUser, Content: "what is go?"},
			{ID: "m2", Role: model.RoleAssistant, Content: "A language."},
		},
	}
}

func TestSaveChat_NoDuplicateIndexEntries(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveChat(ctx, testChat("c1"), "u1"))
	require.NoError(t, s.SaveChat(ctx, testChat("c1"), "u1"))

	members, err := mr.ZMembers(userChatKey("u1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"chat:c1"}, members)

	raw := mr.HGet("chat:c1", "messages")
	assert.JSONEq(t, `[{"id":"m1","role":"user","content":"what is go?"},{"id":"m2","role":"assistant","content":"A language."}]`, raw)
	assert.Equal(t, "u1", mr.HGet("chat:c1", "userId"))
}

func TestSaveChat_RefusesForeignChat(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveChat(ctx, testChat("c1"), "u1"))
	assert.ErrorIs(t, s.SaveChat(ctx, testChat("c1"), "u2"), ErrNotOwner)

	chats, err := s.GetChats(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestGetChats_NewestFirstAndSkipsMissing(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveChat(ctx, testChat("old"), "u1"))
	require.NoError(t, s.SaveChat(ctx, testChat("gone"), "u1"))
	require.NoError(t, s.SaveChat(ctx, testChat("new"), "u1"))

	mr.Del("chat:gone")

	chats, err := s.GetChats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "new", chats[0].ID)
	assert.Equal(t, "old", chats[1].ID)
	assert.Len(t, chats[0].Messages, 2)
}

func TestGetChat(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveChat(ctx, testChat("c1"), "u1"))

	c, err := s.GetChat(ctx, "c1", "u1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "/search/c1", c.Path)

	c, err = s.GetChat(ctx, "c1", "u2")
	require.NoError(t, err)
	assert.Nil(t, c, "chats of other users are invisible")

	c, err = s.GetChat(ctx, "missing", "u1")
	require.NoError(t, err)
	assert.Nil(t, c)

	mr.HSet("chat:c1", "messages", "{not json")
	c, err = s.GetChat(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.NotNil(t, c.Messages)
	assert.Empty(t, c.Messages)
}

func TestClearChats(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	t.Run("nothing to clear", func(t *testing.T) {
		mr.Set("unrelated", "keep")

		assert.ErrorIs(t, s.ClearChats(ctx, "u1"), ErrNoChats)
		assert.Equal(t, []string{"unrelated"}, mr.Keys())
	})

	t.Run("clears chats and index", func(t *testing.T) {
		require.NoError(t, s.SaveChat(ctx, testChat("c1"), "u1"))
		require.NoError(t, s.SaveChat(ctx, testChat("c2"), "u1"))
		require.NoError(t, s.SaveChat(ctx, testChat("c3"), "u2"))

		require.NoError(t, s.ClearChats(ctx, "u1"))

		assert.False(t, mr.Exists("chat:c1"))
		assert.False(t, mr.Exists("chat:c2"))
		assert.False(t, mr.Exists(userChatKey("u1")))
		assert.True(t, mr.Exists("chat:c3"))
	})
}

func TestShareChat(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveChat(ctx, testChat("c1"), "u1"))

	shared, err := s.GetSharedChat(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, shared, "unshared chats are not readable")

	c, err := s.ShareChat(ctx, "c1", "u2")
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = s.ShareChat(ctx, "c1", "u1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "/share/c1", c.SharePath)

	shared, err = s.GetSharedChat(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, shared)
	assert.Equal(t, "u1", shared.UserID)

	// saving again keeps the chat shared
	require.NoError(t, s.SaveChat(ctx, testChat("c1"), "u1"))
	shared, err = s.GetSharedChat(ctx, "c1")
	require.NoError(t, err)
	assert.NotNil(t, shared)
}
