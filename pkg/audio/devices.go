// Package audio plays the mute and unmute cues and lists audio devices
// through PortAudio.
package audio

import (
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	preInitOnce sync.Once
	preInitDone = make(chan struct{})
	preInitErr  error
)

// PreInitAudio starts PortAudio initialization in the background so the
// first cue does not pay for device enumeration. The matching Terminate
// is Shutdown.
func PreInitAudio() {
	preInitOnce.Do(func() {
		go func() {
			slog.Debug("pre-initializing PortAudio")
			if err := portaudio.Initialize(); err != nil {
				preInitErr = err
				slog.Error("pre-init portaudio failed", "err", err)
			}
			close(preInitDone)
		}()
	})
}

// WaitPreInit blocks until the background PreInitAudio completes and
// returns its error. If PreInitAudio was never called it is started now.
func WaitPreInit() error {
	PreInitAudio()
	<-preInitDone
	return preInitErr
}

// Shutdown terminates PortAudio if PreInitAudio initialized it.
func Shutdown() {
	select {
	case <-preInitDone:
		if preInitErr == nil {
			_ = portaudio.Terminate()
		}
	default:
	}
}

// DeviceEntry holds basic info about an audio device.
type DeviceEntry struct {
	Name       string
	MaxInputs  int
	MaxOutputs int
	IsDefault  bool
}

// ListInputDevices returns all available audio input devices.
func ListInputDevices() ([]DeviceEntry, error) {
	return listDevices(portaudio.DefaultInputDevice, func(d *portaudio.DeviceInfo) bool {
		return d.MaxInputChannels > 0
	})
}

// ListOutputDevices returns all available audio output devices. Cues are
// played on the default one.
func ListOutputDevices() ([]DeviceEntry, error) {
	return listDevices(portaudio.DefaultOutputDevice, func(d *portaudio.DeviceInfo) bool {
		return d.MaxOutputChannels > 0
	})
}

func listDevices(defaultDev func() (*portaudio.DeviceInfo, error), keep func(*portaudio.DeviceInfo) bool) ([]DeviceEntry, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer func() { _ = portaudio.Terminate() }()

	def, _ := defaultDev()
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	var result []DeviceEntry
	for _, d := range devices {
		if !keep(d) {
			continue
		}
		result = append(result, DeviceEntry{
			Name:       d.Name,
			MaxInputs:  d.MaxInputChannels,
			MaxOutputs: d.MaxOutputChannels,
			IsDefault:  def != nil && d.Name == def.Name,
		})
	}
	return result, nil
}

// DefaultInputName returns the name of the default input device, or ""
// if PortAudio cannot tell. PortAudio's device list is a snapshot taken
// at initialization, so after a hot-plug the name may lag behind.
func DefaultInputName() string {
	if err := portaudio.Initialize(); err != nil {
		return ""
	}
	defer func() { _ = portaudio.Terminate() }()

	d, err := portaudio.DefaultInputDevice()
	if err != nil || d == nil {
		return ""
	}
	return d.Name
}

// FindDevice returns the *portaudio.DeviceInfo matching by name, or nil.
func FindDevice(name string) *portaudio.DeviceInfo {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil
	}
	for _, d := range devices {
		if d.Name == name {
			return d
		}
	}
	return nil
}
