package audio

import (
	"github.com/foxseedlab/kikitori/internal/audio"
	"github.com/samber/do/v2"
)

// RegisterDI provides the device manager lazily, so PortAudio is only initialized when a
// command needs a device.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audio.DeviceManager, error) {
		return NewDeviceManager()
	})
}
