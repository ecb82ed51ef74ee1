package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/lockstep/pkg/rti"
)

func TestSnapshot(t *testing.T) {
	e := quietEngine()
	assert.Empty(t, e.Snapshot())

	require.NoError(t, e.CreateFederationExecution("seaplanes"))
	require.NoError(t, e.CreateFederationExecution("airships"))
	a := join(t, e, "seaplanes", "plane")
	b := join(t, e, "seaplanes", "tower")

	require.NoError(t, a.EnableTimeRegulation(0, 100))
	require.NoError(t, b.EnableTimeConstrained())
	require.NoError(t, b.TimeAdvanceRequest(500))

	class, err := a.GetObjectClassHandle("Plane")
	require.NoError(t, err)
	alt, err := a.GetAttributeHandle("altitude", class)
	require.NoError(t, err)
	require.NoError(t, a.PublishObjectClass(class, rti.AttributeHandleSet{alt}))
	_, err = a.RegisterObjectInstance(class, "plane-1")
	require.NoError(t, err)
	require.NoError(t, a.RegisterFederationSynchronizationPoint("ready", ""))

	got := e.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, rti.FederationInfo{Name: "airships"}, got[0])

	sp := got[1]
	assert.Equal(t, "seaplanes", sp.Name)
	assert.Equal(t, 1, sp.Objects)
	assert.Equal(t, []string{"ready"}, sp.SyncPoints)
	assert.Equal(t, []rti.FederateInfo{
		{Handle: a.Handle(), Name: "plane", Lookahead: 100, Regulating: true},
		{Handle: b.Handle(), Name: "tower", Constrained: true, Advancing: true},
	}, sp.Federates)
}
