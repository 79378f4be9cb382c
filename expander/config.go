package expander

import (
	"github.com/antongulenko/expander/mcp23017"
)

// PortConfig is the pin policy of one port. Every field holds one bit per pin.
type PortConfig struct {
	Port mcp23017.Port

	Inputs            byte // IODIR, other pins are outputs
	InvertPolarity    byte // IPOL
	PullUps           byte // GPPU
	InterruptOnChange byte // GPINTEN
	CompareDefault    byte // INTCON: compare against DefaultValue instead of the previous pin value
	DefaultValue      byte // DEFVAL
}

// PushButtons configures pins with buttons that pull the line low when pressed:
// input with pull-up, interrupt when the level differs from high.
func PushButtons(port mcp23017.Port, pins byte) PortConfig {
	return PortConfig{
		Port:              port,
		Inputs:            pins,
		PullUps:           pins,
		InterruptOnChange: pins,
		CompareDefault:    pins,
		DefaultValue:      pins,
	}
}

// Apply writes all registers of the policy. Interrupts are enabled last, after the
// comparison registers are valid.
func (c PortConfig) Apply(dev *mcp23017.Device) error {
	steps := []struct {
		set   func(mcp23017.Port, byte) error
		value byte
	}{
		{dev.SetDirection, c.Inputs},
		{dev.SetPolarity, c.InvertPolarity},
		{dev.SetPullUp, c.PullUps},
		{dev.SetDefaultCompare, c.DefaultValue},
		{dev.SetInterruptControl, c.CompareDefault},
		{dev.SetInterruptEnable, c.InterruptOnChange},
	}
	for _, step := range steps {
		if err := step.set(c.Port, step.value); err != nil {
			return err
		}
	}
	return nil
}

// InterruptConfig is the behaviour of the INTA/INTB output pins, stored in IOCON.
type InterruptConfig struct {
	ActiveHigh bool // Otherwise active-low
	OpenDrain  bool // Overrides ActiveHigh
	Mirror     bool // INTA and INTB both signal interrupts of both ports
}

// IOConfig returns the IOCON value. The BANK bit follows bank, so writing the value does not
// change the register layout.
func (c InterruptConfig) IOConfig(bank mcp23017.Bank) (iocon byte) {
	if c.ActiveHigh {
		iocon |= mcp23017.IOCON_BIT_INTPOL
	}
	if c.OpenDrain {
		iocon |= mcp23017.IOCON_BIT_ODR
	}
	if c.Mirror {
		iocon |= mcp23017.IOCON_BIT_MIRROR
	}
	if bank == mcp23017.Bank1 {
		iocon |= mcp23017.IOCON_BIT_BANK
	}
	return
}

func (c InterruptConfig) Apply(dev *mcp23017.Device) error {
	return dev.SetIOConfig(mcp23017.PortA, c.IOConfig(dev.Bank()))
}
