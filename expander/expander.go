// Package expander sets up an MCP23017 on one of the supported transports and contains
// application level helpers on top of mcp23017.Device: pin policies and interrupt polling.
package expander

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/antongulenko/expander/ft260"
	"github.com/antongulenko/expander/i2cbus"
	"github.com/antongulenko/expander/i2cdev"
	"github.com/antongulenko/expander/mcp23017"
	"github.com/antongulenko/expander/periphbus"
	"github.com/antongulenko/golib"
	log "github.com/sirupsen/logrus"
)

const (
	TransportI2cDev = "i2cdev"
	TransportPeriph = "periph"
	TransportFt260  = "ft260"
	TransportDummy  = "dummy"
)

var DefaultExpander = Expander{
	Transport:   TransportI2cDev,
	I2cDevBus:   1,
	UsbDevice:   "",
	ReadTimeout: ft260.DefaultReadTimeout,
	I2cFreq:     ft260.DefaultI2cFreq,
	Address:     uint(mcp23017.ADDRESS),
	Bank:        mcp23017.Bank0.String(),
	QueueSize:   20,
}

type Expander struct {
	Transport   string
	I2cDevBus   int           // For TransportI2cDev
	PeriphBus   string        // For TransportPeriph, empty for the first bus
	UsbDevice   string        // For TransportFt260, empty for the first FT260
	ReadTimeout time.Duration // For TransportFt260
	I2cFreq     uint          // For TransportFt260, kHz
	Address     uint
	Bank        string
	QueueSize   int
	NoSequencer bool

	// Move a chip in the power-on layout (Bank0) to Bank1 before using it in Bank1
	SwitchBank bool

	transport mcp23017.Bus
	closer    io.Closer
	hidInit   bool
	sequencer *i2cbus.Sequencer
	bus       mcp23017.Bus
	device    *mcp23017.Device
}

func (e *Expander) RegisterFlags() {
	flag.StringVar(&e.Transport, "transport", e.Transport, fmt.Sprintf("I2C transport, one of %v", []string{TransportI2cDev, TransportPeriph, TransportFt260, TransportDummy}))
	flag.IntVar(&e.I2cDevBus, "bus", e.I2cDevBus, "Number of the Linux I2C bus (/dev/i2c-N) for -transport "+TransportI2cDev)
	flag.StringVar(&e.PeriphBus, "periph-bus", e.PeriphBus, "Name of the periph.io I2C bus for -transport "+TransportPeriph)
	flag.StringVar(&e.UsbDevice, "dev", e.UsbDevice, "USB HID path of the FT260 for -transport "+TransportFt260)
	flag.DurationVar(&e.ReadTimeout, "read-timeout", e.ReadTimeout, "Timeout for I2C reads through the FT260")
	flag.UintVar(&e.I2cFreq, "freq", e.I2cFreq, "The I2C bus frequency of the FT260 in kHz (60 - 3400)")
	flag.UintVar(&e.Address, "addr", e.Address, "I2C address of the MCP23017 (0x20..0x27)")
	flag.StringVar(&e.Bank, "bank", e.Bank, "Register layout configured in the chip (bank0 or bank1)")
	flag.IntVar(&e.QueueSize, "i2c-queue", e.QueueSize, "Number of queued I2C requests")
	flag.BoolVar(&e.NoSequencer, "no-i2c-sequencer", e.NoSequencer, "Disable the extra goroutine for sequencing I2C commands")
	flag.BoolVar(&e.SwitchBank, "switch-bank", e.SwitchBank, "Switch a chip in bank0 to bank1 during setup (only with -bank bank1)")
}

// Setup opens the transport and returns the initialized Device.
func (e *Expander) Setup() (*mcp23017.Device, error) {
	if e.Address > uint(mcp23017.MAX_ADDRESS) {
		return nil, fmt.Errorf("Invalid MCP23017 address %#x", e.Address)
	}
	bank, err := mcp23017.ParseBank(e.Bank)
	if err != nil {
		return nil, err
	}
	addr := byte(e.Address)

	if err := e.openTransport(); err != nil {
		e.Cleanup()
		return nil, err
	}
	if e.NoSequencer {
		e.bus = &i2cbus.Locked{Bus: e.transport}
	} else {
		e.sequencer = i2cbus.NewSequencer(e.transport, e.QueueSize)
		e.bus = e.sequencer
	}

	if e.SwitchBank && bank == mcp23017.Bank1 {
		if err := SwitchToBank1(e.bus, addr); err != nil {
			e.Cleanup()
			return nil, err
		}
	}
	dev, err := mcp23017.Open(e.bus, addr, bank)
	if err != nil {
		e.Cleanup()
		return nil, err
	}
	e.device = dev
	log.Printf("Using MCP23017 at %#02x in %v layout via %v", addr, bank, e.Transport)
	return dev, nil
}

func (e *Expander) openTransport() error {
	switch e.Transport {
	case TransportI2cDev:
		bus, err := i2cdev.Open(e.I2cDevBus)
		if err != nil {
			return err
		}
		e.transport, e.closer = bus, bus
	case TransportPeriph:
		bus, err := periphbus.Open(e.PeriphBus)
		if err != nil {
			return err
		}
		e.transport, e.closer = bus, bus
	case TransportFt260:
		if e.I2cFreq < 60 || e.I2cFreq > 3400 {
			return fmt.Errorf("Invalid I2C frequency %v kHz (allowed 60 - 3400)", e.I2cFreq)
		}
		// Prepare Usb HID library, open FT260 device
		if err := ft260.Init(); err != nil {
			return err
		}
		e.hidInit = true
		driver := ft260.Ft260Driver{Path: e.UsbDevice, ReadTimeout: e.ReadTimeout, I2cFreq: uint16(e.I2cFreq)}
		usb, err := driver.Open()
		if err != nil {
			return err
		}
		e.transport, e.closer = usb, usb
	case TransportDummy:
		log.Println("Dummy transport: not using any I2C peripherals")
		e.transport = new(i2cbus.Dummy)
	default:
		return fmt.Errorf("Unknown I2C transport '%v'", e.Transport)
	}
	return nil
}

// Device returns the device created by Setup, nil before.
func (e *Expander) Device() *mcp23017.Device {
	return e.device
}

// Bus returns the serialized bus, which can be shared with other devices.
func (e *Expander) Bus() mcp23017.Bus {
	return e.bus
}

// Cleanup stops the sequencer and closes the transport. The chip registers are left as they are.
func (e *Expander) Cleanup() {
	if e.sequencer != nil {
		e.sequencer.Close()
		e.sequencer = nil
	}
	if e.closer != nil {
		golib.Printerr(e.closer.Close())
		e.closer = nil
	}
	if e.hidInit {
		golib.Printerr(ft260.Shutdown())
		e.hidInit = false
	}
}

// SwitchToBank1 sets IOCON.BANK of a chip that currently uses the Bank0 layout, keeping the other
// IOCON bits. The chip must really be in Bank0: in Bank1 the same address is OLATA.
func SwitchToBank1(bus mcp23017.Bus, addr byte) error {
	reg := mcp23017.Address(mcp23017.Bank0, mcp23017.PortA, mcp23017.IOCON)
	iocon, err := bus.ReadRegister(addr, reg)
	if err != nil {
		return err
	}
	log.Printf("Switching MCP23017 at %#02x to bank1 layout (IOCON %#02x)", addr, iocon)
	return bus.WriteRegister(addr, reg, iocon|mcp23017.IOCON_BIT_BANK)
}
