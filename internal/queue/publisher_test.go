package queue

import (
	"context"
	"encoding/json"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestAsynqPublisher_Publish(t *testing.T) {
	s := startMiniRedis(t)
	redisOpt := asynq.RedisClientOpt{Addr: s.Addr()}

	publisher := NewAsynqPublisher(redisOpt, nil)
	defer func() {
		_ = publisher.Close()
	}()

	item := WorkItem{TaskID: "b2cfa24e-4f0a-4a36-bb11-81dcdcf8a8a8", Topic: "serverless architecture"}
	require.NoError(t, publisher.Publish(context.Background(), item))

	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		_ = inspector.Close()
	}()

	pending, err := inspector.ListPendingTasks(QueueName)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	got := pending[0]
	assert.Equal(t, TaskTypeResearch, got.Type)
	assert.Equal(t, QueueName, got.Queue)
	assert.Equal(t, MaxDeliveryAttempts, got.MaxRetry)

	var decoded WorkItem
	require.NoError(t, json.Unmarshal(got.Payload, &decoded))
	assert.Equal(t, item, decoded)
}

func TestAsynqPublisher_PublishBrokerDown(t *testing.T) {
	s := startMiniRedis(t)
	addr := s.Addr()
	s.Close()

	publisher := NewAsynqPublisher(asynq.RedisClientOpt{Addr: addr}, nil)
	defer func() {
		_ = publisher.Close()
	}()

	err := publisher.Publish(context.Background(), WorkItem{TaskID: "t", Topic: "x"})
	assert.Error(t, err)
}
