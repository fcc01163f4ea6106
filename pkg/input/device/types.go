package device

import (
	"errors"
	"io"
)

// Touch is the state of the touch panel after one report.
type Touch struct {
	X       int
	Y       int
	Pressed bool
}

// Device represents an opened touch panel.
type Device interface {
	io.Closer
	// Path returns the device node.
	Path() string
	// Name returns the name reported by the driver.
	Name() string
	// ReadTouch blocks until the next complete report.
	ReadTouch() (Touch, error)
}

// ErrNotSupported indicates touch devices are not available on the platform.
var ErrNotSupported = errors.New("touch device not supported")
