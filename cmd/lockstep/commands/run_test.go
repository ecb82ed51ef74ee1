package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/lockstep/internal/config"
	"github.com/dyluth/lockstep/internal/federation"
	"github.com/dyluth/lockstep/internal/loopback"
)

func loadFederate(t *testing.T, content string) *config.FederateConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plane.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestNewFederateRun_SetupFailureReturnsError(t *testing.T) {
	dir := t.TempDir()
	trace := filepath.Join(dir, "plane.log")
	cfg := loadFederate(t, `version: "1.0"
federation:
  name: seaplanes
federate:
  name: plane
  time_limit: 1s
  timestep: 100ms
  trace_file: `+trace+`
  produced_file: `+filepath.Join(dir, "missing", "plane-prod.csv")+`
objects:
  published:
    - class: Plane
      name: Plane
      attributes:
        - name: altitude
          kind: float
`)

	var (
		r   *federateRun
		err error
	)
	assert.NotPanics(t, func() {
		r, err = newFederateRun(cfg, loopback.New(federation.New()), runFlags{})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create produced dump")
	assert.Nil(t, r)
	assert.FileExists(t, trace, "trace opened before the failure")
}

func TestFederateRunCloseIsNilSafe(t *testing.T) {
	var r *federateRun
	assert.NoError(t, r.Close())
	assert.NoError(t, (&federateRun{}).Close())
}
