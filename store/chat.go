package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bitwise74/labyrinth-api/model"

	"github.com/redis/go-redis/v9"
)

const (
	chatVersion   = "v2"
	maxTxAttempts = 5
)

var (
	ErrNoChats  = errors.New("no chats to clear")
	ErrNotOwner = errors.New("chat belongs to another user")
	ErrConflict = errors.New("chat was modified concurrently")
)

func chatKey(id string) string {
	return "chat:" + id
}

func userChatKey(userID string) string {
	return "user:" + chatVersion + ":chat:" + userID
}

// ChatStore persists chats as hashes plus a per user sorted set of chat
// keys scored by the time they were first saved
type ChatStore struct {
	rdb redis.UniversalClient
	now func() time.Time
}

func NewChatStore(rdb redis.UniversalClient) *ChatStore {
	return &ChatStore{rdb: rdb, now: time.Now}
}

// GetChats returns the chats of a user, newest first. Index entries whose
// hash is gone are skipped.
func (s *ChatStore) GetChats(ctx context.Context, userID string) ([]model.Chat, error) {
	if userID == "" {
		return []model.Chat{}, nil
	}

	keys, err := s.rdb.ZRevRange(ctx, userChatKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat index, %w", err)
	}

	chats := make([]model.Chat, 0, len(keys))
	if len(keys) == 0 {
		return chats, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.HGetAll(ctx, k)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chats, %w", err)
	}

	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}

		chats = append(chats, *decodeChat(fields))
	}

	return chats, nil
}

// GetChat returns nil when the chat doesn't exist or isn't owned by userID
func (s *ChatStore) GetChat(ctx context.Context, id, userID string) (*model.Chat, error) {
	if userID == "" {
		return nil, nil
	}

	chat, err := s.load(ctx, id)
	if err != nil || chat == nil {
		return nil, err
	}

	if chat.UserID != userID {
		return nil, nil
	}

	return chat, nil
}

// GetSharedChat returns a chat regardless of owner, but only once it was shared
func (s *ChatStore) GetSharedChat(ctx context.Context, id string) (*model.Chat, error) {
	chat, err := s.load(ctx, id)
	if err != nil || chat == nil || chat.SharePath == "" {
		return nil, err
	}

	return chat, nil
}

// ShareChat publishes an owned chat under /share/{id}. A nil chat means it
// wasn't found for this user.
func (s *ChatStore) ShareChat(ctx context.Context, id, userID string) (*model.Chat, error) {
	chat, err := s.GetChat(ctx, id, userID)
	if err != nil || chat == nil {
		return nil, err
	}

	chat.SharePath = "/share/" + id
	if err := s.rdb.HSet(ctx, chatKey(id), "sharePath", chat.SharePath).Err(); err != nil {
		return nil, fmt.Errorf("failed to share chat, %w", err)
	}

	return chat, nil
}

// SaveChat writes chat for userID. The index entry is only added when the
// chat hash didn't exist yet and both writes go out in one MULTI so repeated
// saves never duplicate index entries.
func (s *ChatStore) SaveChat(ctx context.Context, chat *model.Chat, userID string) error {
	if chat == nil || chat.ID == "" || userID == "" {
		return errors.New("chat id and user id are required")
	}

	now := s.now()
	key := chatKey(chat.ID)

	chat.UserID = userID
	chat.UpdatedAt = now
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}

	fields, err := encodeChat(chat)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}

		isNew := n == 0
		if !isNew {
			owner, err := tx.HGet(ctx, key, "userId").Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}

			if owner != "" && owner != userID {
				return ErrNotOwner
			}
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if isNew {
				p.ZAdd(ctx, userChatKey(userID), redis.Z{
					Score:  float64(now.UnixMilli()),
					Member: key,
				})
			}

			p.HSet(ctx, key, fields)
			return nil
		})

		return err
	}

	for range maxTxAttempts {
		err = s.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}

	return ErrConflict
}

// ClearChats deletes every chat of the user together with the index. When
// there's nothing to delete ErrNoChats is returned and nothing is touched.
func (s *ChatStore) ClearChats(ctx context.Context, userID string) error {
	idx := userChatKey(userID)

	keys, err := s.rdb.ZRange(ctx, idx, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to read chat index, %w", err)
	}

	if len(keys) == 0 {
		return ErrNoChats
	}

	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Del(ctx, k)
		}
		p.Del(ctx, idx)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear chats, %w", err)
	}

	return nil
}

func (s *ChatStore) load(ctx context.Context, id string) (*model.Chat, error) {
	fields, err := s.rdb.HGetAll(ctx, chatKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat, %w", err)
	}

	if len(fields) == 0 {
		return nil, nil
	}

	return decodeChat(fields), nil
}

func encodeChat(c *model.Chat) (map[string]any, error) {
	msgs := c.Messages
	if msgs == nil {
		msgs = []model.Message{}
	}

	raw, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode messages, %w", err)
	}

	fields := map[string]any{
		"id":        c.ID,
		"title":     c.Title,
		"userId":    c.UserID,
		"path":      c.Path,
		"createdAt": c.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updatedAt": c.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"messages":  string(raw),
	}

	if c.SharePath != "" {
		fields["sharePath"] = c.SharePath
	}

	return fields, nil
}

func decodeChat(f map[string]string) *model.Chat {
	c := &model.Chat{
		ID:        f["id"],
		Title:     f["title"],
		UserID:    f["userId"],
		Path:      f["path"],
		SharePath: f["sharePath"],
		Messages:  model.DecodeMessages(f["messages"]),
	}

	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, f["createdAt"])
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, f["updatedAt"])

	return c
}
