package fedbus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/lockstep/pkg/rti"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.Equal(t, "test-instance", client.Instance())
		assert.NoError(t, client.Ping(context.Background()))
	})

	t.Run("rejects empty instance name", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.ErrorContains(t, err, "instance name cannot be empty")
	})

	t.Run("parses URLs", func(t *testing.T) {
		c, err := NewClientFromURL("redis://localhost:6379/2", "x")
		require.NoError(t, err)
		c.Close()
		_, err = NewClientFromURL("http://nope", "x")
		assert.Error(t, err)
	})
}

func TestRequestReplyRoundTrip(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	req := NewRequest(OpUpdateAttributeValues, uuid.New().String())
	req.Object = 7
	req.Values = rti.AttributeValues{{Handle: 3, Value: []byte{1, 2, 3, 4}}}
	req.Time = 1_000_000
	req.Tag = "pub.0"
	require.NoError(t, client.PushRequest(ctx, req))
	assert.True(t, mr.Exists(RequestsKey("test-instance")))

	got, err := client.PopRequest(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, req, got)

	rep := ReplyTo(got, nil)
	rep.Retraction = rti.EventRetractionHandle{Serial: 4, SendingFed: 2}
	require.NoError(t, client.PushReply(ctx, rep))
	assert.Greater(t, mr.TTL(ReplyKey("test-instance", req.ID)), time.Duration(0), "replies expire")

	back, err := client.AwaitReply(ctx, req.ID, time.Second)
	require.NoError(t, err)
	assert.NoError(t, back.Err())
	assert.Equal(t, uint32(4), back.Retraction.Serial)
}

func TestReplyCarriesServiceErrors(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	req := NewRequest(OpCreateFederationExecution, "")
	req.Federation = "f"
	rep := ReplyTo(req, rti.ErrFederationExecutionAlreadyExists)
	require.NoError(t, client.PushReply(ctx, rep))

	back, err := client.AwaitReply(ctx, req.ID, time.Second)
	require.NoError(t, err)
	assert.ErrorIs(t, back.Err(), rti.ErrFederationExecutionAlreadyExists)
}

func TestPopRequestTimesOutEmpty(t *testing.T) {
	client, _ := setupTestClient(t)
	req, err := client.PopRequest(context.Background(), time.Second)
	assert.NoError(t, err)
	assert.Nil(t, req)

	_, err = client.AwaitReply(context.Background(), uuid.New().String(), time.Second)
	assert.True(t, IsReplyTimeout(err))
}

func TestPushRequestValidates(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	assert.Error(t, client.PushRequest(ctx, &Request{ID: "not-a-uuid", Op: Op("tick")}))
	assert.Error(t, client.PushRequest(ctx, NewRequest(OpTimeAdvanceRequest, "")), "session required")
	assert.Error(t, client.PushRequest(ctx, NewRequest(OpCreateFederationExecution, "")), "federation required")
	join := NewRequest(OpJoinFederationExecution, "s")
	join.Federation = "f"
	assert.Error(t, client.PushRequest(ctx, join), "federate required")
	assert.False(t, mr.Exists(RequestsKey("test-instance")))
}

func TestCallbackQueue(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	session := uuid.New().String()

	cbs := []rti.Callback{
		{Kind: rti.CallbackDiscoverObjectInstance, Object: 1, Class: 2, Name: "Plane"},
		{Kind: rti.CallbackReflectTimestampedAttributeValues, Object: 1,
			Values: rti.AttributeValues{{Handle: 5, Value: []byte{0, 0, 0, 0, 0, 0, 0x59, 0x40}}},
			Time:   2_000_000, Tag: "pub.1"},
		{Kind: rti.CallbackTimeAdvanceGrant, Time: 2_000_000},
	}
	require.NoError(t, client.PushCallbacks(ctx, session, cbs[:2]))
	require.NoError(t, client.PushCallbacks(ctx, session, cbs[2:]))
	require.NoError(t, client.PushCallbacks(ctx, session, nil))

	got, err := client.PopCallbacks(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, cbs, got, "order is preserved")

	got, err = client.PopCallbacks(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, got, "pop drains the queue")

	require.NoError(t, client.PushCallbacks(ctx, session, cbs))
	require.NoError(t, client.DropCallbacks(ctx, session))
	got, err = client.PopCallbacks(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMonitorEvents(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeMonitorEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	assert.Error(t, client.PublishMonitorEvent(ctx, &MonitorEvent{Federation: "f"}), "type required")
	require.NoError(t, client.PublishMonitorEvent(ctx, &MonitorEvent{Type: "federate_joined", Federation: "f", Federate: "pub"}))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "federate_joined", ev.Type)
		assert.Equal(t, "pub", ev.Federate)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for monitor event")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "close is idempotent")
}
