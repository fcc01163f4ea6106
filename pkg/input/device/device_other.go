//go:build !linux
// +build !linux

package device

// Open opens the device node.
func Open(path string) (Device, error) {
	return nil, ErrNotSupported
}

// DetectAndOpen opens the first device whose name contains match.
func DetectAndOpen(match string) (Device, error) {
	return nil, ErrNotSupported
}
