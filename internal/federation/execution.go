package federation

import (
	"sort"

	"github.com/dyluth/lockstep/pkg/fom"
	"github.com/dyluth/lockstep/pkg/rti"
)

// execution is one federation. All fields are guarded by Engine.mu.
type execution struct {
	name string
	doc  *fom.Document

	classes    map[string]rti.ObjectClassHandle
	classNames map[rti.ObjectClassHandle]string
	attrs      map[rti.ObjectClassHandle]map[string]rti.AttributeHandle
	nextClass  rti.ObjectClassHandle
	nextAttr   rti.AttributeHandle

	federates map[rti.FederateHandle]*federate
	byName    map[string]rti.FederateHandle
	nextFed   rti.FederateHandle

	objects     map[rti.ObjectHandle]*object
	objectNames map[string]rti.ObjectHandle
	nextObj     rti.ObjectHandle

	syncPoints map[string]*syncPoint
	serial     uint64
}

type object struct {
	handle rti.ObjectHandle
	name   string
	class  rti.ObjectClassHandle
	owner  rti.FederateHandle
}

func newExecution(name string, doc *fom.Document) *execution {
	x := &execution{
		name:        name,
		doc:         doc,
		classes:     make(map[string]rti.ObjectClassHandle),
		classNames:  make(map[rti.ObjectClassHandle]string),
		attrs:       make(map[rti.ObjectClassHandle]map[string]rti.AttributeHandle),
		federates:   make(map[rti.FederateHandle]*federate),
		byName:      make(map[string]rti.FederateHandle),
		objects:     make(map[rti.ObjectHandle]*object),
		objectNames: make(map[string]rti.ObjectHandle),
		syncPoints:  make(map[string]*syncPoint),
	}
	if doc != nil {
		for _, c := range doc.Classes {
			ch := x.allocClass(c.Name)
			for _, a := range c.Attributes {
				x.allocAttr(ch, a)
			}
		}
	}
	return x
}

func (x *execution) allocClass(name string) rti.ObjectClassHandle {
	x.nextClass++
	h := x.nextClass
	x.classes[name] = h
	x.classNames[h] = name
	x.attrs[h] = make(map[string]rti.AttributeHandle)
	return h
}

// Attribute handles are unique across the whole execution, which keeps
// stray values from one class from landing on another class's attribute.
func (x *execution) allocAttr(class rti.ObjectClassHandle, name string) rti.AttributeHandle {
	x.nextAttr++
	x.attrs[class][name] = x.nextAttr
	return x.nextAttr
}

func (x *execution) addFederate(name string) *federate {
	x.nextFed++
	f := newFederate(x.nextFed, name)
	x.federates[f.handle] = f
	x.byName[name] = f.handle
	return f
}

// others returns every joined federate except h, in handle order so
// callback order is deterministic.
func (x *execution) others(h rti.FederateHandle) []*federate {
	out := make([]*federate, 0, len(x.federates))
	for fh, f := range x.federates {
		if fh != h {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].handle < out[j].handle })
	return out
}

func (x *execution) sortedFederates() []*federate {
	return x.others(rti.InvalidHandle)
}

func (x *execution) sortedSyncPoints() []*syncPoint {
	out := make([]*syncPoint, 0, len(x.syncPoints))
	for _, sp := range x.syncPoints {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].label < out[j].label })
	return out
}

func (x *execution) objectsOfClass(class rti.ObjectClassHandle) []*object {
	var out []*object
	for _, o := range x.objects {
		if o.class == class {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].handle < out[j].handle })
	return out
}
