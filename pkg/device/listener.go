package device

import (
	"github.com/NicolasHaas/mutetool/pkg/coreaudio"
	"github.com/NicolasHaas/mutetool/pkg/model"
)

// Listener receives the two hardware notifications the synchronizer
// cares about. Both arrive on a backend-owned goroutine.
type Listener interface {
	OnDeviceChanged()
	OnMuteChanged(device coreaudio.ObjectID)
}

// Observer is told the mute state whenever it is refreshed from hardware
// or optimistically toggled. Calls are never concurrent and arrive in
// event order.
type Observer interface {
	Notify(muted bool)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(muted bool)

func (f ObserverFunc) Notify(muted bool) { f(muted) }

// Recorder receives journal events. Implementations must not block.
type Recorder interface {
	Record(e model.Event)
}

// router turns raw property notifications into Listener calls, keeping
// the gateway free of any knowledge about what the properties mean.
type router struct {
	l Listener
}

func (r router) PropertyChanged(obj coreaudio.ObjectID, addr coreaudio.PropertyAddress) {
	switch addr.Selector {
	case coreaudio.SelectorDefaultInputDevice:
		r.l.OnDeviceChanged()
	case coreaudio.SelectorMute:
		r.l.OnMuteChanged(obj)
	}
}
