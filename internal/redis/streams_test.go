package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStreamClient(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func TestCreateConsumerGroup_MissingStream(t *testing.T) {
	client := setupStreamClient(t)
	ctx := context.Background()

	// stream 尚不存在：MKSTREAM 应一并创建，组随后可直接读取
	err := CreateConsumerGroup(ctx, client, "resq:test:stream", "resq-notify")
	require.NoError(t, err)

	_, err = PublishJSONToStream(ctx, client, "resq:test:stream", map[string]string{"request_id": "req-1"})
	require.NoError(t, err)

	messages, err := ReadFromStream(ctx, client, "resq:test:stream", "resq-notify", "consumer-1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Values["data"], "req-1")
}

func TestCreateConsumerGroup_Idempotent(t *testing.T) {
	client := setupStreamClient(t)
	ctx := context.Background()

	require.NoError(t, CreateConsumerGroup(ctx, client, "resq:test:stream", "resq-notify"))

	// 组已存在：BUSYGROUP 被吸收，不报错
	assert.NoError(t, CreateConsumerGroup(ctx, client, "resq:test:stream", "resq-notify"))
}

func TestAckMessage(t *testing.T) {
	client := setupStreamClient(t)
	ctx := context.Background()

	require.NoError(t, CreateConsumerGroup(ctx, client, "resq:test:stream", "resq-notify"))
	id, err := PublishJSONToStream(ctx, client, "resq:test:stream", map[string]string{"request_id": "req-1"})
	require.NoError(t, err)

	_, err = ReadFromStream(ctx, client, "resq:test:stream", "resq-notify", "consumer-1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, AckMessage(ctx, client, "resq:test:stream", "resq-notify", id))

	pending, err := client.XPending(ctx, "resq:test:stream", "resq-notify").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}
