// Package ft260 drives the I2C master of the FTDI FT260 USB-HID bridge.
// The Ft260 type implements the register transport used by mcp23017.Device.
//
// Opening a real device needs the hidapi build tag and libhidapi-hidraw,
// see hid_enabled.go.
package ft260

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	FTDIVendorId   = 0x0403
	FT260ProductId = 0x6030

	// The I2C master is on the first HID interface, UART on the second
	I2cInterface = 0

	DefaultReadTimeout = 500 * time.Millisecond
	DefaultI2cFreq     = 100 // kHz

	staleReportTimeout = time.Millisecond
)

var ErrClosed = errors.New("ft260: device is closed")

type Ft260Driver struct {
	Vendor  uint16
	Product uint16
	Path    string // Optional, overrides the enumeration of Vendor and Product

	ReadTimeout time.Duration
	I2cFreq     uint16 // kHz, 60..3400. Zero skips the configuration of the chip.
}

func Open() (*Ft260, error) {
	return (&Ft260Driver{I2cFreq: DefaultI2cFreq}).Open()
}

// HidDevice is the part of a hidapi device handle used by Ft260.
// DoRead returns 0 bytes when the timeout expires.
type HidDevice interface {
	DoWrite(b []byte, featureReport bool) (int, error)
	DoRead(b []byte, featureReport bool, timeout time.Duration) (int, error)
	Close() error
}

// Ft260 serializes its own transactions.
type Ft260 struct {
	dev         HidDevice
	readTimeout time.Duration

	lock   sync.Mutex
	closed bool
	stale  bool // An input report may still arrive after a read timed out
}

// New wraps an opened HID device. A zero readTimeout selects DefaultReadTimeout.
func New(dev HidDevice, readTimeout time.Duration) *Ft260 {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Ft260{
		dev:         dev,
		readTimeout: readTimeout,
	}
}

type ReportIn interface {
	Unmarshall(data []byte) error
}

// FeatureIn is requested from the device by its report ID
type FeatureIn interface {
	ReportIn
	ReportID() byte
	ReportLen() int // Excluding the report ID
}

type ReportOut interface {
	Marshall(data []byte) error
	ReportID() byte
	ReportLen() int // Excluding the report ID
}

func (f *Ft260) write(report ReportOut, feature bool) error {
	data := make([]byte, report.ReportLen()+1)
	data[0] = report.ReportID()
	if err := report.Marshall(data[1:]); err != nil {
		return err
	}
	n, err := f.dev.DoWrite(data, feature)
	if err == nil && n != len(data) {
		err = fmt.Errorf("ft260: wrong write len (%v instead of %v)", n, len(data))
	}
	return err
}

func (f *Ft260) readFeature(report FeatureIn) error {
	data := make([]byte, report.ReportLen()+1)
	data[0] = report.ReportID()
	n, err := f.dev.DoRead(data, true, 0)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("ft260: wrong read len of feature report %02x (%v instead of %v)", data[0], n, len(data))
	}
	if data[0] != report.ReportID() {
		return fmt.Errorf("Unexpected report id (expected %02x, received %02x)", report.ReportID(), data[0])
	}
	return report.Unmarshall(data[1:])
}

// read waits for the next I2C input report
func (f *Ft260) read(report ReportIn) error {
	data := make([]byte, maxInputReportLen)
	n, err := f.dev.DoRead(data, false, f.readTimeout)
	if err != nil {
		return err
	}
	if n == 0 {
		f.stale = true
		return fmt.Errorf("ft260: no I2C input report within %v", f.readTimeout)
	}
	if id := data[0]; id < ReportID_I2CInOut || id > ReportID_I2CInOut_Max {
		return fmt.Errorf("Unexpected report id %02x (expected %02x..%02x)", id, ReportID_I2CInOut, ReportID_I2CInOut_Max)
	}
	return report.Unmarshall(data[1:n])
}

// Drop reports that arrived after an earlier read timed out
func (f *Ft260) discardStaleReports() {
	if !f.stale {
		return
	}
	f.stale = false
	data := make([]byte, maxInputReportLen)
	for {
		n, err := f.dev.DoRead(data, false, staleReportTimeout)
		if err != nil || n == 0 {
			return
		}
		log.Warnf("ft260: discarding stale input report (%v byte)", n)
	}
}

func (f *Ft260) lockOpen() error {
	f.lock.Lock()
	if f.closed {
		f.lock.Unlock()
		return ErrClosed
	}
	return nil
}

func (f *Ft260) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.dev.Close()
}
