package fedbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/lockstep/pkg/rti"
)

// ErrReplyTimeout is returned by AwaitReply when no reply arrives in time.
var ErrReplyTimeout = errors.New("timed out waiting for reply")

// replyTTL bounds how long an unclaimed reply lingers in Redis.
const replyTTL = time.Minute

// blockFor clamps a blocking-pop timeout to whole seconds. Redis treats a
// zero timeout as "block forever".
func blockFor(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return d.Truncate(time.Second)
}

// Client provides instance-scoped Redis operations for the bus.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb      *redis.Client
	instance string
}

// NewClient creates a bus client for the given instance namespace.
// Returns an error if instance is not a valid instance name.
func NewClient(redisOpts *redis.Options, instance string) (*Client, error) {
	if err := ValidateInstanceName(instance); err != nil {
		return nil, err
	}
	return &Client{
		rdb:      redis.NewClient(redisOpts),
		instance: instance,
	}, nil
}

// NewClientFromURL parses a redis:// URL and creates a client.
func NewClientFromURL(url, instance string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewClient(opts, instance)
}

// Instance returns the namespace the client works in.
func (c *Client) Instance() string { return c.instance }

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PushRequest validates req and appends it to the request list.
func (c *Client) PushRequest(ctx context.Context, req *Request) error {
	data, err := EncodeRequest(req)
	if err != nil {
		return err
	}
	if err := c.rdb.RPush(ctx, RequestsKey(c.instance), data).Err(); err != nil {
		return fmt.Errorf("failed to push request: %w", err)
	}
	return nil
}

// PopRequest blocks up to timeout for the next request.
// It returns (nil, nil) when the timeout expires with nothing queued.
func (c *Client) PopRequest(ctx context.Context, timeout time.Duration) (*Request, error) {
	res, err := c.rdb.BLPop(ctx, blockFor(timeout), RequestsKey(c.instance)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop request: %w", err)
	}
	// BLPOP answers [key, value].
	return DecodeRequest([]byte(res[1]))
}

// PushReply stores a reply for its request. Replies expire if never read.
func (c *Client) PushReply(ctx context.Context, rep *Reply) error {
	data, err := EncodeReply(rep)
	if err != nil {
		return fmt.Errorf("failed to encode reply: %w", err)
	}
	key := ReplyKey(c.instance, rep.ID)
	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, data)
		p.Expire(ctx, key, replyTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push reply: %w", err)
	}
	return nil
}

// AwaitReply blocks up to timeout for the reply to requestID.
func (c *Client) AwaitReply(ctx context.Context, requestID string, timeout time.Duration) (*Reply, error) {
	res, err := c.rdb.BLPop(ctx, blockFor(timeout), ReplyKey(c.instance, requestID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("request %s: %w", requestID, ErrReplyTimeout)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to await reply: %w", err)
	}
	return DecodeReply([]byte(res[1]))
}

// Call pushes req and waits for its reply. Service errors are returned in
// the reply, not as the error result.
func (c *Client) Call(ctx context.Context, req *Request, timeout time.Duration) (*Reply, error) {
	if err := c.PushRequest(ctx, req); err != nil {
		return nil, err
	}
	return c.AwaitReply(ctx, req.ID, timeout)
}

// ListFederations asks the server for a snapshot of its executions.
func (c *Client) ListFederations(ctx context.Context, timeout time.Duration) ([]rti.FederationInfo, error) {
	rep, err := c.Call(ctx, NewRequest(OpListFederations, ""), timeout)
	if err != nil {
		return nil, err
	}
	if err := rep.Err(); err != nil {
		return nil, err
	}
	return rep.Federations, nil
}

// PushCallbacks appends callbacks to a session's list in order.
func (c *Client) PushCallbacks(ctx context.Context, session string, cbs []rti.Callback) error {
	if len(cbs) == 0 {
		return nil
	}
	values := make([]any, len(cbs))
	for i, cb := range cbs {
		data, err := EncodeCallback(cb)
		if err != nil {
			return fmt.Errorf("failed to encode callback %s: %w", cb.Kind, err)
		}
		values[i] = data
	}
	if err := c.rdb.RPush(ctx, CallbacksKey(c.instance, session), values...).Err(); err != nil {
		return fmt.Errorf("failed to push callbacks: %w", err)
	}
	return nil
}

// PopCallbacks atomically takes every queued callback of a session.
func (c *Client) PopCallbacks(ctx context.Context, session string) ([]rti.Callback, error) {
	key := CallbacksKey(c.instance, session)
	var lrange *redis.StringSliceCmd
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		lrange = p.LRange(ctx, key, 0, -1)
		p.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pop callbacks: %w", err)
	}
	raw := lrange.Val()
	out := make([]rti.Callback, 0, len(raw))
	for _, r := range raw {
		cb, err := DecodeCallback([]byte(r))
		if err != nil {
			return out, err
		}
		out = append(out, cb)
	}
	return out, nil
}

// DropCallbacks discards a session's queue.
func (c *Client) DropCallbacks(ctx context.Context, session string) error {
	return c.rdb.Del(ctx, CallbacksKey(c.instance, session)).Err()
}

// PublishMonitorEvent broadcasts ev as JSON on the monitor channel.
func (c *Client) PublishMonitorEvent(ctx context.Context, ev *MonitorEvent) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalid monitor event: %w", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal monitor event: %w", err)
	}
	if err := c.rdb.Publish(ctx, MonitorEventsChannel(c.instance), data).Err(); err != nil {
		return fmt.Errorf("failed to publish monitor event: %w", err)
	}
	return nil
}

// MonitorSubscription is an active subscription to monitor events.
// Caller must call Close() when done to clean up resources.
type MonitorSubscription struct {
	events <-chan *MonitorEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of monitor events. It is closed when the
// subscription is closed or its context is cancelled.
func (s *MonitorSubscription) Events() <-chan *MonitorEvent { return s.events }

// Errors returns non-fatal decode errors. Bad messages are skipped.
func (s *MonitorSubscription) Errors() <-chan error { return s.errors }

// Close stops the subscription. Safe to call multiple times.
func (s *MonitorSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeMonitorEvents subscribes to this instance's monitor channel.
// Delivery is at-most-once: a slow subscriber may miss events.
func (c *Client) SubscribeMonitorEvents(ctx context.Context) (*MonitorSubscription, error) {
	pubsub := c.rdb.Subscribe(ctx, MonitorEventsChannel(c.instance))
	// Wait for the subscription to be confirmed so no event published after
	// this call returns is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to monitor events: %w", err)
	}

	eventsChan := make(chan *MonitorEvent, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev MonitorEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal monitor event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case eventsChan <- &ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &MonitorSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsReplyTimeout reports whether err is a reply timeout.
func IsReplyTimeout(err error) bool {
	return errors.Is(err, ErrReplyTimeout)
}
