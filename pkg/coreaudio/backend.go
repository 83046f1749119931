package coreaudio

// Token identifies one listener registration made through a Backend.
type Token uint64

// PropertyListener receives property-changed notifications. Calls arrive
// on a goroutine owned by the backend, never on the caller's goroutine.
type PropertyListener interface {
	PropertyChanged(obj ObjectID, addr PropertyAddress)
}

// Backend is the raw OS property surface. It mirrors the AudioObject C API
// one call per method and carries no policy; the Gateway decides how
// absence and failures are reported.
type Backend interface {
	HasProperty(obj ObjectID, addr PropertyAddress) bool
	IsPropertySettable(obj ObjectID, addr PropertyAddress) (bool, error)
	PropertyDataSize(obj ObjectID, addr PropertyAddress) (uint32, error)
	PropertyData(obj ObjectID, addr PropertyAddress, size uint32) ([]byte, error)
	SetPropertyData(obj ObjectID, addr PropertyAddress, data []byte) error

	AddListener(obj ObjectID, addr PropertyAddress, l PropertyListener) (Token, error)
	RemoveListener(obj ObjectID, addr PropertyAddress, tok Token) error
}
