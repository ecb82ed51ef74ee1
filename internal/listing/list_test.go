package listing

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/lockstep/internal/rtig"
	"github.com/dyluth/lockstep/pkg/fedbus"
	"github.com/dyluth/lockstep/pkg/rti"
)

type staticSource struct {
	federations []rti.FederationInfo
	err         error
}

func (s staticSource) ListFederations(context.Context, time.Duration) ([]rti.FederationInfo, error) {
	return s.federations, s.err
}

func TestListFederations_Filters(t *testing.T) {
	src := staticSource{federations: []rti.FederationInfo{{Name: "airships"}, seaplanes}}

	tests := []struct {
		name    string
		filters *FilterCriteria
		want    int
	}{
		{name: "no filter", filters: nil, want: 2},
		{name: "glob", filters: &FilterCriteria{NameGlob: "sea*"}, want: 1},
		{name: "glob without match", filters: &FilterCriteria{NameGlob: "sub*"}, want: 0},
		{name: "federate", filters: &FilterCriteria{Federate: "tower"}, want: 1},
		{name: "federate without match", filters: &FilterCriteria{Federate: "radar"}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := ListFederations(context.Background(), src, time.Second, "default", OutputFormatJSONL, tt.filters, &buf)
			require.NoError(t, err)
			lines := bytes.Count(buf.Bytes(), []byte("\n"))
			assert.Equal(t, tt.want, lines)
		})
	}
}

func TestListFederations_Errors(t *testing.T) {
	var buf bytes.Buffer
	err := ListFederations(context.Background(), staticSource{err: errors.New("boom")}, time.Second, "default", OutputFormatDefault, nil, &buf)
	assert.ErrorContains(t, err, "failed to list federations: boom")

	err = ListFederations(context.Background(), staticSource{}, time.Second, "default", "yaml", nil, &buf)
	assert.ErrorContains(t, err, "unknown output format: yaml")

	assert.Error(t, ValidateGlob("[sea"))
	assert.NoError(t, ValidateGlob("sea*"))
}

// TestListFederations_FromServer asks a running federation server over
// miniredis.
func TestListFederations_FromServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := fedbus.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	server := rtig.NewServer(client, logrus.NewEntry(log), rtig.Options{Registry: prometheus.NewRegistry()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	create := fedbus.NewRequest(fedbus.OpCreateFederationExecution, "")
	create.Federation = "seaplanes"
	rep, err := client.Call(ctx, create, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, rep.Err())

	join := fedbus.NewRequest(fedbus.OpJoinFederationExecution, uuid.New().String())
	join.Federation, join.Federate = "seaplanes", "plane"
	rep, err = client.Call(ctx, join, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, rep.Err())

	var buf bytes.Buffer
	require.NoError(t, ListFederations(ctx, client, 5*time.Second, "test", OutputFormatDefault, nil, &buf))
	assert.Contains(t, buf.String(), "Federations for instance 'test':")
	assert.Contains(t, buf.String(), "plane")
	assert.Contains(t, buf.String(), "1 federation found")
}
