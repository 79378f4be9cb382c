// Package i2cdev accesses I2C buses through the Linux i2c-dev interface (/dev/i2c-N).
package i2cdev

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// From linux/i2c-dev.h and linux/i2c.h
const (
	i2cRdWr      = 0x0707
	i2cFlagsRead = 0x0001
)

type i2cMsg struct {
	Address uint16
	Flags   uint16
	Len     uint16
	Buf     uintptr
}

type rdWrIoctlData struct {
	Messages    uintptr
	NumMessages uint32
}

// Bus is one opened /dev/i2c-N device file.
type Bus struct {
	Path string

	lock sync.Mutex
	fd   int
}

func Open(busNumber int) (*Bus, error) {
	return OpenPath(fmt.Sprintf("/dev/i2c-%d", busNumber))
}

func OpenPath(path string) (*Bus, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0600)
	if err != nil {
		return nil, fmt.Errorf("Failed to open I2C bus %v: %w", path, err)
	}
	log.Printf("Opened I2C bus %v", path)
	return &Bus{Path: path, fd: fd}, nil
}

// Transfer executes a write and/or read as one combined transaction with a repeated start.
func (b *Bus) Transfer(addr byte, write []byte, read []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.fd < 0 {
		return fmt.Errorf("I2C bus %v is closed", b.Path)
	}

	var msgs []i2cMsg
	if len(write) > 0 {
		msgs = append(msgs, i2cMsg{
			Address: uint16(addr),
			Len:     uint16(len(write)),
			Buf:     uintptr(unsafe.Pointer(&write[0])),
		})
	}
	if len(read) > 0 {
		msgs = append(msgs, i2cMsg{
			Address: uint16(addr),
			Flags:   i2cFlagsRead,
			Len:     uint16(len(read)),
			Buf:     uintptr(unsafe.Pointer(&read[0])),
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	param := rdWrIoctlData{
		Messages:    uintptr(unsafe.Pointer(&msgs[0])),
		NumMessages: uint32(len(msgs)),
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(b.fd), i2cRdWr, uintptr(unsafe.Pointer(&param)))
	runtime.KeepAlive(msgs)
	runtime.KeepAlive(write)
	runtime.KeepAlive(read)
	if errno != 0 {
		return fmt.Errorf("I2C transfer with %#02x on %v failed: %w", addr, b.Path, errno)
	}
	return nil
}

func (b *Bus) WriteRegister(addr, register, value byte) error {
	return b.Transfer(addr, []byte{register, value}, nil)
}

func (b *Bus) ReadRegister(addr, register byte) (byte, error) {
	in := make([]byte, 1)
	if err := b.Transfer(addr, []byte{register}, in); err != nil {
		return 0, err
	}
	return in[0], nil
}

func (b *Bus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}
