package rti

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFederate struct {
	mock.Mock
}

func (m *mockFederate) DiscoverObjectInstance(obj ObjectHandle, class ObjectClassHandle, name string) {
	m.Called(obj, class, name)
}
func (m *mockFederate) RemoveObjectInstance(obj ObjectHandle, tag string) { m.Called(obj, tag) }
func (m *mockFederate) ReflectAttributeValues(obj ObjectHandle, values AttributeValues, tag string) {
	m.Called(obj, values, tag)
}
func (m *mockFederate) ReflectTimestampedAttributeValues(obj ObjectHandle, values AttributeValues, t FedTime, tag string, rh EventRetractionHandle) {
	m.Called(obj, values, t, tag, rh)
}
func (m *mockFederate) TimeRegulationEnabled(t FedTime)  { m.Called(t) }
func (m *mockFederate) TimeConstrainedEnabled(t FedTime) { m.Called(t) }
func (m *mockFederate) TimeAdvanceGrant(t FedTime)       { m.Called(t) }
func (m *mockFederate) SynchronizationPointRegistrationSucceeded(label string) {
	m.Called(label)
}
func (m *mockFederate) SynchronizationPointRegistrationFailed(label string) { m.Called(label) }
func (m *mockFederate) AnnounceSynchronizationPoint(label, tag string)      { m.Called(label, tag) }
func (m *mockFederate) FederationSynchronized(label string)                 { m.Called(label) }

func TestDispatch(t *testing.T) {
	values := AttributeValues{{Handle: 3, Value: []byte{1}}}
	rh := EventRetractionHandle{Serial: 9, SendingFed: 2}

	fa := new(mockFederate)
	fa.On("DiscoverObjectInstance", ObjectHandle(7), ObjectClassHandle(1), "Plane").Once()
	fa.On("RemoveObjectInstance", ObjectHandle(7), "bye").Once()
	fa.On("ReflectAttributeValues", ObjectHandle(7), values, "t1").Once()
	fa.On("ReflectTimestampedAttributeValues", ObjectHandle(7), values, FedTime(100), "t2", rh).Once()
	fa.On("TimeRegulationEnabled", FedTime(1)).Once()
	fa.On("TimeConstrainedEnabled", FedTime(2)).Once()
	fa.On("TimeAdvanceGrant", FedTime(3)).Once()
	fa.On("SynchronizationPointRegistrationSucceeded", "sync").Once()
	fa.On("SynchronizationPointRegistrationFailed", "sync").Once()
	fa.On("AnnounceSynchronizationPoint", "sync", "tag").Once()
	fa.On("FederationSynchronized", "sync").Once()

	callbacks := []Callback{
		{Kind: CallbackDiscoverObjectInstance, Object: 7, Class: 1, Name: "Plane"},
		{Kind: CallbackRemoveObjectInstance, Object: 7, Tag: "bye"},
		{Kind: CallbackReflectAttributeValues, Object: 7, Values: values, Tag: "t1"},
		{Kind: CallbackReflectTimestampedAttributeValues, Object: 7, Values: values, Time: 100, Tag: "t2", Retraction: rh},
		{Kind: CallbackTimeRegulationEnabled, Time: 1},
		{Kind: CallbackTimeConstrainedEnabled, Time: 2},
		{Kind: CallbackTimeAdvanceGrant, Time: 3},
		{Kind: CallbackSyncPointRegistrationSucceeded, Label: "sync"},
		{Kind: CallbackSyncPointRegistrationFailed, Label: "sync"},
		{Kind: CallbackAnnounceSynchronizationPoint, Label: "sync", Tag: "tag"},
		{Kind: CallbackFederationSynchronized, Label: "sync"},
	}
	for _, cb := range callbacks {
		require.NoError(t, Dispatch(fa, cb), string(cb.Kind))
	}
	fa.AssertExpectations(t)

	err := Dispatch(fa, Callback{Kind: "bogus"})
	assert.ErrorContains(t, err, "unknown callback kind")
}

func TestErrorCodes(t *testing.T) {
	t.Run("sentinel round trip", func(t *testing.T) {
		wrapped := fmt.Errorf("create seaplanes: %w", ErrFederationExecutionAlreadyExists)
		code := Code(wrapped)
		assert.Equal(t, "FederationExecutionAlreadyExists", code)

		back := FromCode(code, wrapped.Error())
		assert.ErrorIs(t, back, ErrFederationExecutionAlreadyExists)
		assert.Equal(t, wrapped.Error(), back.Error())
	})

	t.Run("unknown errors become internal", func(t *testing.T) {
		code := Code(errors.New("boom"))
		assert.Equal(t, "RTIinternalError", code)
		assert.ErrorIs(t, FromCode(code, "boom"), ErrRTIInternal)
		assert.ErrorIs(t, FromCode("NoSuchCode", "x"), ErrRTIInternal)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Equal(t, "", Code(nil))
		assert.NoError(t, FromCode("", "ignored"))
	})
}

func TestAttributeHandleSet(t *testing.T) {
	s := NewAttributeHandleSet(2)
	s.Add(4)
	s.Add(5)
	s.Add(4)
	assert.Equal(t, AttributeHandleSet{4, 5}, s)
	assert.True(t, s.Contains(5))
	assert.False(t, s.Contains(6))
}

func TestAttributeValuesFilterCopies(t *testing.T) {
	v := NewAttributeValues(3)
	v.Add(1, []byte{0xA})
	v.Add(2, []byte{0xB})
	v.Add(3, []byte{0xC})

	got := v.Filter(AttributeHandleSet{1, 3})
	require.Len(t, got, 2)
	assert.Equal(t, AttributeHandle(1), got[0].Handle)
	assert.Equal(t, AttributeHandle(3), got[1].Handle)

	v[0].Value[0] = 0xF
	assert.Equal(t, byte(0xA), got[0].Value[0], "filter must not alias the source buffer")

	v.Reset()
	assert.Empty(t, v)
	assert.Equal(t, 3, cap(v))
}
