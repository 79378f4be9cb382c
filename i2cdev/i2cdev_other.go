//go:build !linux
// +build !linux

package i2cdev

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("i2c-dev is only available on Linux, not on " + runtime.GOOS)

type Bus struct {
	Path string
}

func Open(busNumber int) (*Bus, error) {
	return nil, errUnsupported
}

func OpenPath(path string) (*Bus, error) {
	return nil, errUnsupported
}

func (b *Bus) Transfer(addr byte, write []byte, read []byte) error {
	return errUnsupported
}

func (b *Bus) WriteRegister(addr, register, value byte) error {
	return errUnsupported
}

func (b *Bus) ReadRegister(addr, register byte) (byte, error) {
	return 0, errUnsupported
}

func (b *Bus) Close() error {
	return nil
}
