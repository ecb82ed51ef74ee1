package rtia_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/lockstep/internal/lp"
	"github.com/dyluth/lockstep/internal/rtia"
	"github.com/dyluth/lockstep/internal/rtig"
	"github.com/dyluth/lockstep/pkg/fedbus"
	"github.com/dyluth/lockstep/pkg/fom"
	"github.com/dyluth/lockstep/pkg/rti"
	"github.com/dyluth/lockstep/pkg/simtime"
)

func quietLog() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

// startServer runs a federation server on a fresh miniredis and returns a
// client for federates.
func startServer(t *testing.T) *fedbus.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	opts := &redis.Options{Addr: mr.Addr()}

	srvClient, err := fedbus.NewClient(opts, "test")
	require.NoError(t, err)
	client, err := fedbus.NewClient(opts, "test")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		rtig.NewServer(srvClient, quietLog(), rtig.Options{}).Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		srvClient.Close()
		client.Close()
	})
	return client
}

func TestCallsBeforeJoinFailLocally(t *testing.T) {
	client := startServer(t)
	amb := rtia.New(client)
	ctx := context.Background()

	assert.ErrorIs(t, amb.Tick(ctx), rti.ErrFederateNotExecutionMember)
	_, err := amb.GetObjectClassHandle(ctx, "Plane")
	assert.ErrorIs(t, err, rti.ErrFederateNotExecutionMember)
	assert.Empty(t, amb.Session())
}

func TestServiceErrorsCrossTheBus(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()
	a, b := rtia.New(client), rtia.New(client)

	require.NoError(t, a.CreateFederationExecution(ctx, "f"))
	assert.ErrorIs(t, b.CreateFederationExecution(ctx, "f"), rti.ErrFederationExecutionAlreadyExists)

	_, err := a.JoinFederationExecution(ctx, "a", "nowhere", nil)
	assert.ErrorIs(t, err, rti.ErrFederationExecutionDoesNotExist)
	assert.Empty(t, a.Session(), "failed join opens no session")

	h, err := a.JoinFederationExecution(ctx, "a", "f", nil)
	require.NoError(t, err)
	assert.NotEqual(t, rti.FederateHandle(rti.InvalidHandle), h)
	_, err = a.JoinFederationExecution(ctx, "a", "f", nil)
	assert.ErrorIs(t, err, rti.ErrFederateAlreadyExecutionMember)

	names, err := a.JoinedFederates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)

	assert.ErrorIs(t, a.DestroyFederationExecution(ctx, "f"), rti.ErrFederatesCurrentlyJoined)
	require.NoError(t, a.ResignFederationExecution(ctx))
	require.NoError(t, a.DestroyFederationExecution(ctx, "f"))
}

func TestReplyTimeoutIsNotConnected(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := fedbus.NewClient(&redis.Options{Addr: mr.Addr()}, "nobody-serves-this")
	require.NoError(t, err)
	defer client.Close()

	amb := rtia.New(client, rtia.WithReplyTimeout(time.Second))
	err = amb.CreateFederationExecution(context.Background(), "f")
	assert.ErrorIs(t, err, rti.ErrNotConnected)
	assert.True(t, fedbus.IsReplyTimeout(err))
}

func TestProcessorsOverTheBus(t *testing.T) {
	client := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	second := simtime.MustMicros(1_000_000)
	build := func(name string, publish bool) (*lp.Processor, *fom.Attribute) {
		m := fom.NewModel()
		alt := m.NewAttribute("altitude")
		class := m.ObjectClass("Plane")
		if publish {
			require.NoError(t, m.NewPublished("Plane", class).AddAttribute(alt))
		} else {
			require.NoError(t, m.NewSubscribed("Plane", class).AddAttribute(alt))
		}
		opts := lp.Options{
			Federation:      "seaplanes",
			Federate:        name,
			TimeLimit:       simtime.MustMicros(2_000_000),
			Timestep:        second,
			Lookahead:       second,
			Regulating:      publish,
			Constrained:     !publish,
			ExpectFederates: 2,
			DestroyRetry:    lp.RetryOptions{Initial: 10 * time.Millisecond, Max: 50 * time.Millisecond},
		}
		if publish {
			opts.Compute = func(context.Context, *lp.Processor) error {
				alt.SetFloat(100.0)
				return nil
			}
		}
		p, err := lp.New(rtia.New(client), m, opts, quietLog())
		require.NoError(t, err)
		return p, alt
	}

	pub, _ := build("pub", true)
	sub, subAlt := build("sub", false)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, p := range []*lp.Processor{pub, sub} {
		wg.Add(1)
		go func(i int, p *lp.Processor) {
			defer wg.Done()
			errs[i] = p.Run(ctx)
		}(i, p)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	assert.Equal(t, uint64(2), pub.StepNumber())
	assert.Equal(t, uint64(2), sub.StepNumber())
	assert.Equal(t, 100.0, subAlt.Float())
	assert.Equal(t, 1, sub.Stats().Discovered)
}
