//go:build darwin && cgo

package coreaudio

/*
#include <stdint.h>
*/
import "C"

// mutetoolPropertyChanged is called by the C listener proc on a CoreAudio
// thread, once per changed address. It only enqueues.
//
//export mutetoolPropertyChanged
func mutetoolPropertyChanged(obj, selector, scope, element C.uint32_t, token C.uintptr_t) {
	systemBackend.enqueue(Token(token), ObjectID(obj), PropertyAddress{
		Selector: FourCC(selector),
		Scope:    FourCC(scope),
		Element:  uint32(element),
	})
}
