// Package mcp23017 addresses the registers of the MCP23017 16 bit I2C I/O expander.
//
// The chip numbers its registers in one of two layouts, selected by the BANK bit of IOCON.
// In Bank0 (the power-on default) the registers of port A and B are paired and interleaved.
// In Bank1 every port has a contiguous block, the block of port B starting 0x10 after port A.
// A Device hides the active layout: every operation names a logical Port and Register,
// which are resolved through Address.
package mcp23017

import (
	"fmt"
	"strings"
)

// Default bits all zero, except IODIR

// ============== General IO configuration
// IODIR: 0: output, 1: input
// IPOL: 1: GPIO reflects inverted value of the pin
// GPIO: Reading reads pin values. Writing modifies to OLAT.
// OLAT: Output values ("latches")
// GPPU: 1: enable internal pull-up for input pins (100 kOhm)

// ============== Interrupt configuration
// GPINTEN: 1: enable interrupt-on-change. Pins must also be input.
// DEFVAL: opposite value on input pin will cause interrupt (if INTCON is set)
// INTCON: for interrupt: 0: pins compared to previous value 1: pins compared to DEFVAL
// INTF: (read only) interrupt flags. Cleared when INTCAP or GPIO is read.
// INTCAP: (read only) state of pins when interrupt occurs. Remains unchanged until read (or GPIO is read)

// Register addresses when the BANK bit in IOCON is set (it is cleared by default)
const (
	IODIR_A_BANK = byte(iota)
	IPOL_A_BANK
	GPINTEN_A_BANK
	DEFVAL_A_BANK
	INTCON_A_BANK
	IOCON_A_BANK
	GPPU_A_BANK
	INTF_A_BANK
	INTCAP_A_BANK
	GPIO_A_BANK
	OLAT_A_BANK
)

// Port B block, 0x10 after port A. Both IOCON addresses access the same register.
const (
	IODIR_B_BANK = byte(iota) + 0x10
	IPOL_B_BANK
	GPINTEN_B_BANK
	DEFVAL_B_BANK
	INTCON_B_BANK
	IOCON_B_BANK
	GPPU_B_BANK
	INTF_B_BANK
	INTCAP_B_BANK
	GPIO_B_BANK
	OLAT_B_BANK
)

// Register addresses when the BANK bit in IOCON is cleared (power-on default)
const (
	IODIR_A_PAIRED = byte(iota)
	IODIR_B_PAIRED
	IPOL_A_PAIRED
	IPOL_B_PAIRED
	GPINTEN_A_PAIRED
	GPINTEN_B_PAIRED
	DEFVAL_A_PAIRED
	DEFVAL_B_PAIRED
	INTCON_A_PAIRED
	INTCON_B_PAIRED
	IOCON_A_PAIRED
	IOCON_B_PAIRED
	GPPU_A_PAIRED
	GPPU_B_PAIRED
	INTF_A_PAIRED
	INTF_B_PAIRED
	INTCAP_A_PAIRED
	INTCAP_B_PAIRED
	GPIO_A_PAIRED
	GPIO_B_PAIRED
	OLAT_A_PAIRED
	OLAT_B_PAIRED
)

const (
	_                = byte(1 << iota)
	IOCON_BIT_INTPOL // 1: INT pins active-high 0: INT pins active-low
	IOCON_BIT_ODR    // (overrides INTPOL) 1: INT pins are open-drain 0: active output (INTPOL sets polarity)
	IOCON_BIT_HAEN   // Enable hardware address pins (MCP23S17 only, always enabled on the MCP23017)
	IOCON_BIT_DISSLW // 0: slew rate control for SDA output enabled 1: disabled
	IOCON_BIT_SEQOP  // 0: sequential operation enabled 1: disabled (address stays after read/write)
	IOCON_BIT_MIRROR // 0: INT pins not mirrored 1: INT pins mirrored (both high if one is high)
	IOCON_BIT_BANK   // 1: registers grouped in banks 0: registers paired
)

const (
	ADDRESS     = byte(0x20) // 0010 0000
	MAX_ADDRESS = byte(0x27) // 0010 0111

	// Strap pins, added to ADDRESS
	ADDRESS_PIN0 = byte(0x01) // A0
	ADDRESS_PIN1 = byte(0x02) // A1
	ADDRESS_PIN2 = byte(0x04) // A2

	// Values for IODIR registers
	INPUT  = byte(0xFF)
	OUTPUT = byte(0x00)
)

// Bits of all per-pin registers
const (
	PIN0 = byte(1 << iota)
	PIN1
	PIN2
	PIN3
	PIN4
	PIN5
	PIN6
	PIN7
)

// Bank is the register layout selected by IOCON.BANK.
type Bank byte

const (
	Bank0 Bank = iota // Registers of port A and B paired (IOCON.BANK = 0)
	Bank1             // Registers grouped per port (IOCON.BANK = 1)
)

func (b Bank) valid() bool {
	return b == Bank0 || b == Bank1
}

func (b Bank) String() string {
	switch b {
	case Bank0:
		return "bank0"
	case Bank1:
		return "bank1"
	default:
		return fmt.Sprintf("Bank(%d)", byte(b))
	}
}

// ParseBank accepts "bank0"/"bank1", "0"/"1" and "paired"/"banked".
func ParseBank(s string) (Bank, error) {
	switch strings.ToLower(s) {
	case "bank0", "0", "paired":
		return Bank0, nil
	case "bank1", "1", "banked":
		return Bank1, nil
	}
	return 0, fmt.Errorf("Unknown MCP23017 register bank '%v' (expected bank0 or bank1)", s)
}

// Port selects one of the two 8 bit GPIO ports.
type Port byte

const (
	PortA Port = iota
	PortB
)

// Ports lists both ports in address order.
var Ports = []Port{PortA, PortB}

func (p Port) valid() bool {
	return p == PortA || p == PortB
}

func (p Port) String() string {
	switch p {
	case PortA:
		return "A"
	case PortB:
		return "B"
	default:
		return fmt.Sprintf("Port(%d)", byte(p))
	}
}

// ParsePort accepts "a", "b", "porta", "portb" in any case.
func ParsePort(s string) (Port, error) {
	switch strings.ToLower(s) {
	case "a", "porta":
		return PortA, nil
	case "b", "portb":
		return PortB, nil
	}
	return 0, fmt.Errorf("Unknown MCP23017 port '%v' (expected A or B)", s)
}

// Register is a logical register kind, present once per port.
type Register byte

const (
	IODIR   Register = iota // Direction
	IPOL                    // Input polarity
	GPINTEN                 // Interrupt-on-change enable
	DEFVAL                  // Default compare value for interrupt-on-change
	INTCON                  // Interrupt control
	IOCON                   // Configuration, shared by both ports
	GPPU                    // Pull-up resistors
	INTF                    // Interrupt flags (read only)
	INTCAP                  // Interrupt capture (read only)
	GPIO                    // Port
	OLAT                    // Output latch

	numRegisters = int(iota)
)

// Registers lists all register kinds in Bank1 address order.
var Registers = []Register{IODIR, IPOL, GPINTEN, DEFVAL, INTCON, IOCON, GPPU, INTF, INTCAP, GPIO, OLAT}

var registerNames = [numRegisters]string{"IODIR", "IPOL", "GPINTEN", "DEFVAL", "INTCON", "IOCON", "GPPU", "INTF", "INTCAP", "GPIO", "OLAT"}

func (r Register) valid() bool {
	return int(r) < numRegisters
}

func (r Register) String() string {
	if !r.valid() {
		return fmt.Sprintf("Register(%d)", byte(r))
	}
	return registerNames[r]
}

// ReadOnly is true for INTF and INTCAP. Device has no Set operation for them.
func (r Register) ReadOnly() bool {
	return r == INTF || r == INTCAP
}

// Physical addresses, indexed by [register][port]
var (
	pairedAddresses = [numRegisters][2]byte{
		IODIR:   {IODIR_A_PAIRED, IODIR_B_PAIRED},
		IPOL:    {IPOL_A_PAIRED, IPOL_B_PAIRED},
		GPINTEN: {GPINTEN_A_PAIRED, GPINTEN_B_PAIRED},
		DEFVAL:  {DEFVAL_A_PAIRED, DEFVAL_B_PAIRED},
		INTCON:  {INTCON_A_PAIRED, INTCON_B_PAIRED},
		IOCON:   {IOCON_A_PAIRED, IOCON_B_PAIRED},
		GPPU:    {GPPU_A_PAIRED, GPPU_B_PAIRED},
		INTF:    {INTF_A_PAIRED, INTF_B_PAIRED},
		INTCAP:  {INTCAP_A_PAIRED, INTCAP_B_PAIRED},
		GPIO:    {GPIO_A_PAIRED, GPIO_B_PAIRED},
		OLAT:    {OLAT_A_PAIRED, OLAT_B_PAIRED},
	}
	bankAddresses = [numRegisters][2]byte{
		IODIR:   {IODIR_A_BANK, IODIR_B_BANK},
		IPOL:    {IPOL_A_BANK, IPOL_B_BANK},
		GPINTEN: {GPINTEN_A_BANK, GPINTEN_B_BANK},
		DEFVAL:  {DEFVAL_A_BANK, DEFVAL_B_BANK},
		INTCON:  {INTCON_A_BANK, INTCON_B_BANK},
		IOCON:   {IOCON_A_BANK, IOCON_B_BANK},
		GPPU:    {GPPU_A_BANK, GPPU_B_BANK},
		INTF:    {INTF_A_BANK, INTF_B_BANK},
		INTCAP:  {INTCAP_A_BANK, INTCAP_B_BANK},
		GPIO:    {GPIO_A_BANK, GPIO_B_BANK},
		OLAT:    {OLAT_A_BANK, OLAT_B_BANK},
	}
)

// Address returns the physical register address of reg on port in the given layout.
// It depends on nothing but its arguments. Values outside of the declared constants panic.
func Address(bank Bank, port Port, reg Register) byte {
	if !bank.valid() || !port.valid() || !reg.valid() {
		panic(fmt.Sprintf("Invalid MCP23017 register %v, port %v, %v", reg, port, bank))
	}
	if bank == Bank1 {
		return bankAddresses[reg][port]
	}
	return pairedAddresses[reg][port]
}
