package redis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smoozies-monitor/common/config"
)

func setupTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = Close(client) })
	return client
}

func TestPing(t *testing.T) {
	client := setupTestRedis(t)
	require.NoError(t, Ping(context.Background(), client))
}

func TestPublishToStream_StringifiesValues(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	id, err := PublishToStream(ctx, client, "test:stream", map[string]interface{}{
		"name":    "Emma",
		"battery": 78,
		"temp":    36.5,
		"online":  true,
		"tags":    []string{"calm"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs, err := client.XRange(ctx, "test:stream", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	values := msgs[0].Values
	assert.Equal(t, "Emma", values["name"])
	assert.Equal(t, "78", values["battery"])
	assert.Equal(t, "36.5", values["temp"])
	assert.Equal(t, "true", values["online"])
	assert.Equal(t, `["calm"]`, values["tags"])
}

func TestStreamPublisher_PublishJSON(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()

	pub := NewStreamPublisher(client)
	_, err := pub.PublishJSON(ctx, "test:json", map[string]any{"title": "Daily report"})
	require.NoError(t, err)

	msgs, err := client.XRange(ctx, "test:json", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &decoded))
	assert.Equal(t, "Daily report", decoded["title"])
	assert.NotEmpty(t, msgs[0].Values["timestamp"])
}
