//go:build !darwin || !cgo

package coreaudio

// System returns a backend on which no object exposes any property. The
// synchronizer built on top of it resolves no default input device.
func System() Backend { return unsupportedBackend{} }

type unsupportedBackend struct{}

func (unsupportedBackend) HasProperty(ObjectID, PropertyAddress) bool { return false }

func (unsupportedBackend) IsPropertySettable(ObjectID, PropertyAddress) (bool, error) {
	return false, ErrUnsupported
}

func (unsupportedBackend) PropertyDataSize(ObjectID, PropertyAddress) (uint32, error) {
	return 0, ErrUnsupported
}

func (unsupportedBackend) PropertyData(ObjectID, PropertyAddress, uint32) ([]byte, error) {
	return nil, ErrUnsupported
}

func (unsupportedBackend) SetPropertyData(ObjectID, PropertyAddress, []byte) error {
	return ErrUnsupported
}

func (unsupportedBackend) AddListener(ObjectID, PropertyAddress, PropertyListener) (Token, error) {
	return 0, ErrUnsupported
}

func (unsupportedBackend) RemoveListener(ObjectID, PropertyAddress, Token) error {
	return ErrUnsupported
}
