//go:build linux
// +build linux

package device

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

type device struct {
	file  *os.File
	path  string
	name  string
	touch Touch
}

// Open opens an evdev node, e.g. /dev/input/event0.
func Open(path string) (Device, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	d := &device{file: f, path: path}
	var buf [256]byte
	if err := d.ioctl(iocGNAME(len(buf)), unsafe.Pointer(&buf)); err != nil {
		f.Close()
		return nil, err
	}
	if pos := bytes.IndexByte(buf[:], 0); pos >= 0 {
		d.name = string(buf[:pos])
	} else {
		d.name = string(buf[:])
	}
	return d, nil
}

// DetectAndOpen opens the first evdev node whose name contains match,
// case insensitive. It returns nil if nothing matches.
func DetectAndOpen(match string) (Device, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, err
	}
	match = strings.ToLower(match)
	for _, path := range paths {
		d, err := Open(path)
		if err != nil {
			if os.IsNotExist(err) || os.IsPermission(err) {
				continue
			}
			return nil, err
		}
		if strings.Contains(strings.ToLower(d.Name()), match) {
			return d, nil
		}
		d.Close()
	}
	return nil, nil
}

// Close implements Device.
func (d *device) Close() error {
	return d.file.Close()
}

// Path implements Device.
func (d *device) Path() string {
	return d.path
}

// Name implements Device.
func (d *device) Name() string {
	return d.name
}

// ReadTouch implements Device.
func (d *device) ReadTouch() (Touch, error) {
	buf := make([]byte, inputEventSize)
	for {
		if _, err := d.file.Read(buf); err != nil {
			return Touch{}, err
		}
		typ := binary.LittleEndian.Uint16(buf[timevalSize:])
		code := binary.LittleEndian.Uint16(buf[timevalSize+2:])
		value := int32(binary.LittleEndian.Uint32(buf[timevalSize+4:]))
		switch typ {
		case evKEY:
			if code == btnTOUCH {
				d.touch.Pressed = value != 0
			}
		case evABS:
			switch code {
			case absX, absMTPositionX:
				d.touch.X = int(value)
			case absY, absMTPositionY:
				d.touch.Y = int(value)
			}
		case evSYN:
			if code == synREPORT {
				return d.touch, nil
			}
		}
	}
}

const (
	timevalSize    = int(unsafe.Sizeof(unix.Timeval{}))
	inputEventSize = timevalSize + 8

	evSYN uint16 = 0x00
	evKEY uint16 = 0x01
	evABS uint16 = 0x03

	synREPORT      uint16 = 0x00
	btnTOUCH       uint16 = 0x14a
	absX           uint16 = 0x00
	absY           uint16 = 0x01
	absMTPositionX uint16 = 0x35
	absMTPositionY uint16 = 0x36
)

func iocGNAME(size int) uint {
	return 0x80000000 | uint(size)<<16 | 'E'<<8 | 0x06
}

// ioctl goes through SyscallConn so the file stays in non-blocking mode
// and Close unblocks a pending read.
func (d *device) ioctl(req uint, ptr unsafe.Pointer) error {
	conn, err := d.file.SyscallConn()
	if err != nil {
		return err
	}
	var errno unix.Errno
	if err = conn.Control(func(fd uintptr) {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(ptr))
	}); err != nil {
		return err
	}
	if errno != 0 {
		return errno
	}
	return nil
}
