package scenario

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/lockstep/internal/config"
	"github.com/dyluth/lockstep/internal/federation"
	"github.com/dyluth/lockstep/internal/loopback"
	"github.com/dyluth/lockstep/internal/lp"
	"github.com/dyluth/lockstep/pkg/simtime"
)

func quietLog() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

func second() simtime.Time { return simtime.MustMicros(1_000_000) }

func planeObjects() config.ObjectsSection {
	return config.ObjectsSection{Published: []config.ObjectConfig{{
		Class: "Plane",
		Name:  "Plane",
		Attributes: []config.AttributeConfig{
			{Name: "altitude", Kind: "float", Initial: 100, Rate: 10},
			{Name: "heading", Kind: "int", Initial: 90, Rate: 2.6},
			{Name: "gear", Kind: "bool", Rate: 1},
			{Name: "squawk", Kind: "int", Initial: 7000},
		},
	}}}
}

func towerObjects() config.ObjectsSection {
	return config.ObjectsSection{Subscribed: []config.ObjectConfig{{
		Class:      "Plane",
		Name:       "Plane",
		Attributes: []config.AttributeConfig{{Name: "altitude", Kind: "float", Initial: 5}},
	}}}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func options(federate string) lp.Options {
	return lp.Options{
		Federation:   "seaplanes",
		Federate:     federate,
		TimeLimit:    simtime.MustMicros(3_000_000),
		Timestep:     second(),
		DestroyRetry: lp.RetryOptions{Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond},
	}
}

func TestBuild(t *testing.T) {
	s, err := Build(planeObjects())
	require.NoError(t, err)
	m := s.Model()
	require.Len(t, m.Published(), 1)
	require.Len(t, m.Attributes(), 4)

	alt := m.Attributes()[0]
	assert.Equal(t, 100.0, alt.Float())
	assert.True(t, alt.Fresh(), "published initial values are sent on the first update")

	s, err = Build(towerObjects())
	require.NoError(t, err)
	sub := s.Model().Attributes()[0]
	assert.Equal(t, 5.0, sub.Float())
	assert.False(t, sub.Fresh(), "subscribed initial values are not receptions")

	_, err = Build(config.ObjectsSection{Published: []config.ObjectConfig{{
		Class: "C", Name: "P", Attributes: []config.AttributeConfig{{Name: "a", Kind: "text"}},
	}}})
	assert.ErrorContains(t, err, "unknown attribute kind")
}

func TestComputeAdvancesPublishedValues(t *testing.T) {
	s, err := Build(planeObjects())
	require.NoError(t, err)
	var prod bytes.Buffer
	rec, err := NewRecorder(&prod, nil)
	require.NoError(t, err)
	s.Record(rec)

	opts := options("plane")
	opts.Compute = s.Computation()
	p, err := lp.New(loopback.New(federation.New(federation.WithLogger(quietLog()))), s.Model(), opts, quietLog())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	require.NoError(t, rec.Flush())

	attrs := s.Model().Attributes()
	assert.Equal(t, 130.0, attrs[0].Float(), "three steps at 10 per second")
	assert.Equal(t, int32(99), attrs[1].Int(), "int advances by the rounded increment")
	assert.True(t, attrs[2].Bool(), "bool toggles each step")
	assert.Equal(t, int32(7000), attrs[3].Int(), "zero rate holds the value")

	rows := readCSV(t, prod.Bytes())
	require.Len(t, rows, 1+3*4)
	assert.Equal(t, dumpHeader, rows[0])
	assert.Equal(t, []string{"0", "0s", "Plane", "altitude", "110"}, rows[1])
	assert.Equal(t, []string{"2", "2s", "Plane", "altitude", "130"}, rows[9])
}

func TestComputeConsumesFreshValues(t *testing.T) {
	engine := federation.New(federation.WithLogger(quietLog()))
	plane, err := Build(config.ObjectsSection{Published: []config.ObjectConfig{{
		Class: "Plane", Name: "Plane",
		Attributes: []config.AttributeConfig{{Name: "altitude", Kind: "float", Initial: 100, Rate: 10}},
	}}})
	require.NoError(t, err)
	tower, err := Build(towerObjects())
	require.NoError(t, err)

	dir := t.TempDir()
	consoPath := filepath.Join(dir, "tower-conso.csv")
	rec, err := OpenRecorder("", consoPath)
	require.NoError(t, err)
	tower.Record(rec)

	pubOpts := options("plane")
	pubOpts.Lookahead = second()
	pubOpts.Regulating = true
	pubOpts.ExpectFederates = 2
	pubOpts.Compute = plane.Computation()

	subOpts := options("tower")
	subOpts.Constrained = true
	subOpts.ExpectFederates = 2
	subOpts.Compute = tower.Computation()

	pub, err := lp.New(loopback.New(engine), plane.Model(), pubOpts, quietLog())
	require.NoError(t, err)
	sub, err := lp.New(loopback.New(engine), tower.Model(), subOpts, quietLog())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
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
	require.NoError(t, rec.Close())

	require.NotZero(t, tower.Consumed())
	data, err := os.ReadFile(consoPath)
	require.NoError(t, err)
	rows := readCSV(t, data)
	require.Len(t, rows, 1+int(tower.Consumed()))
	assert.Equal(t, []string{"Plane", "altitude", "110"}, rows[1][2:], "first consumed value is the first produced one")
}

func TestOpenRecorderWithoutPaths(t *testing.T) {
	rec, err := OpenRecorder("", "")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, rec.Close(), "nil recorder is a no-op")
}

func TestOpenRecorderBadPath(t *testing.T) {
	_, err := OpenRecorder(filepath.Join(t.TempDir(), "missing", "prod.csv"), "")
	assert.ErrorContains(t, err, "failed to create produced dump")
}
