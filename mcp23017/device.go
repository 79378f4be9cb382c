package mcp23017

import (
	"fmt"
	"sync"
)

// Bus performs single byte register transactions with 7 bit I2C device addresses.
// Implementations shared by several goroutines must serialize the transactions themselves,
// see the i2cbus package.
type Bus interface {
	WriteRegister(deviceAddress, registerAddress, value byte) error
	ReadRegister(deviceAddress, registerAddress byte) (byte, error)
}

// Device is the handle of one MCP23017 chip on a Bus.
// It starts uninitialized. Initialize fixes the device address and register layout once,
// afterwards all Set*/Read* operations resolve their register through Address and
// forward exactly one transaction to the bus.
//
// The chip registers keep whatever values they had before Initialize. Initialize does not
// reset them, callers needing a known state have to write every register they rely on.
type Device struct {
	bus Bus

	mu          sync.RWMutex
	address     byte
	bank        Bank
	initialized bool
}

// New returns an uninitialized Device on the given bus.
func New(bus Bus) *Device {
	return &Device{bus: bus}
}

// Open returns a Device that is already initialized with address and bank.
func Open(bus Bus, address byte, bank Bank) (*Device, error) {
	d := New(bus)
	if err := d.Initialize(address, bank); err != nil {
		return nil, err
	}
	return d, nil
}

// Initialize sets the I2C address (ADDRESS..MAX_ADDRESS) and the register layout the chip is
// currently configured for. No bus transaction is performed. The layout is not written to
// the chip: if IOCON.BANK differs from bank, the register addresses will be wrong.
func (d *Device) Initialize(address byte, bank Bank) error {
	if address < ADDRESS || address > MAX_ADDRESS {
		return fmt.Errorf("mcp23017: invalid device address %#02x (must be %#02x..%#02x)", address, ADDRESS, MAX_ADDRESS)
	}
	if !bank.valid() {
		return fmt.Errorf("mcp23017: invalid register layout %v", bank)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return ErrAlreadyInitialized
	}
	d.address = address
	d.bank = bank
	d.initialized = true
	return nil
}

func (d *Device) Initialized() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.initialized
}

// Address returns the I2C address, zero before Initialize.
func (d *Device) Address() byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.address
}

// Bank returns the register layout, Bank0 before Initialize.
func (d *Device) Bank() Bank {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bank
}

func (d *Device) resolve(port Port, reg Register) (device byte, register byte, err error) {
	d.mu.RLock()
	address, bank, initialized := d.address, d.bank, d.initialized
	d.mu.RUnlock()
	if !initialized {
		return 0, 0, ErrNotInitialized
	}
	if !port.valid() {
		return 0, 0, fmt.Errorf("mcp23017: invalid port %v", port)
	}
	if !reg.valid() {
		return 0, 0, fmt.Errorf("mcp23017: invalid register %v", reg)
	}
	return address, Address(bank, port, reg), nil
}

func (d *Device) write(port Port, reg Register, value byte) error {
	address, register, err := d.resolve(port, reg)
	if err != nil {
		return err
	}
	if err := d.bus.WriteRegister(address, register, value); err != nil {
		return &TransportError{Address: address, Register: register, Write: true, Err: err}
	}
	return nil
}

// Read reads any register, including the read-only INTF and INTCAP.
// Reading GPIO or INTCAP clears a pending interrupt on the chip.
func (d *Device) Read(port Port, reg Register) (byte, error) {
	address, register, err := d.resolve(port, reg)
	if err != nil {
		return 0, err
	}
	val, err := d.bus.ReadRegister(address, register)
	if err != nil {
		return 0, &TransportError{Address: address, Register: register, Err: err}
	}
	return val, nil
}

// SetDirection writes IODIR. 1: input, 0: output.
func (d *Device) SetDirection(port Port, value byte) error {
	return d.write(port, IODIR, value)
}

func (d *Device) ReadDirection(port Port) (byte, error) {
	return d.Read(port, IODIR)
}

// SetPolarity writes IPOL. A set bit makes GPIO read the inverted pin value.
func (d *Device) SetPolarity(port Port, value byte) error {
	return d.write(port, IPOL, value)
}

func (d *Device) ReadPolarity(port Port) (byte, error) {
	return d.Read(port, IPOL)
}

// SetInterruptEnable writes GPINTEN. Set bits enable interrupt-on-change for input pins.
func (d *Device) SetInterruptEnable(port Port, value byte) error {
	return d.write(port, GPINTEN, value)
}

func (d *Device) ReadInterruptEnable(port Port) (byte, error) {
	return d.Read(port, GPINTEN)
}

// SetDefaultCompare writes DEFVAL, the comparison value for pins whose INTCON bit is set.
func (d *Device) SetDefaultCompare(port Port, value byte) error {
	return d.write(port, DEFVAL, value)
}

func (d *Device) ReadDefaultCompare(port Port) (byte, error) {
	return d.Read(port, DEFVAL)
}

// SetInterruptControl writes INTCON. A set bit raises the interrupt when the pin differs
// from its DEFVAL bit, a cleared bit when the pin differs from its previous value.
// Interrupts are only raised for pins enabled in GPINTEN.
func (d *Device) SetInterruptControl(port Port, value byte) error {
	return d.write(port, INTCON, value)
}

func (d *Device) ReadInterruptControl(port Port) (byte, error) {
	return d.Read(port, INTCON)
}

// SetIOConfig writes IOCON. Both ports address the same register.
// Writing IOCON_BIT_BANK changes the layout of the chip, which the Device does not follow:
// keep the bit consistent with Bank().
func (d *Device) SetIOConfig(port Port, value byte) error {
	return d.write(port, IOCON, value)
}

func (d *Device) ReadIOConfig(port Port) (byte, error) {
	return d.Read(port, IOCON)
}

// SetPullUp writes GPPU. Set bits enable the 100 kOhm pull-up of input pins.
func (d *Device) SetPullUp(port Port, value byte) error {
	return d.write(port, GPPU, value)
}

func (d *Device) ReadPullUp(port Port) (byte, error) {
	return d.Read(port, GPPU)
}

// ReadInterruptFlag reads INTF: set bits mark the pins that caused the pending interrupt.
// Reading INTF does not clear the interrupt.
func (d *Device) ReadInterruptFlag(port Port) (byte, error) {
	return d.Read(port, INTF)
}

// ReadInterruptCapture reads INTCAP, the pin values captured when the interrupt occurred.
// The capture is held until INTCAP or GPIO is read, and the read clears the interrupt.
func (d *Device) ReadInterruptCapture(port Port) (byte, error) {
	return d.Read(port, INTCAP)
}

// SetPort writes GPIO. The chip stores the value in the output latch, only output pins follow it.
func (d *Device) SetPort(port Port, value byte) error {
	return d.write(port, GPIO, value)
}

// ReadPort reads the current logic level of all pins of the port.
// This clears a pending interrupt just like ReadInterruptCapture.
func (d *Device) ReadPort(port Port) (byte, error) {
	return d.Read(port, GPIO)
}

// SetOutputLatch writes OLAT. Same effect as SetPort, through the latch address.
func (d *Device) SetOutputLatch(port Port, value byte) error {
	return d.write(port, OLAT, value)
}

// ReadOutputLatch reads the latch, not the pins. It differs from ReadPort for inputs, and for
// outputs that are driven externally.
func (d *Device) ReadOutputLatch(port Port) (byte, error) {
	return d.Read(port, OLAT)
}
