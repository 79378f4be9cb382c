// Package periphbus adapts a periph.io I2C bus to the register transport of mcp23017.Device.
package periphbus

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

type Bus struct {
	Bus i2c.Bus
}

// Open initializes the periph host drivers and opens the named bus.
// An empty name selects the first registered bus.
func Open(name string) (*Bus, error) {
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("Failed to initialize periph host drivers: %w", err)
	}
	for _, failure := range state.Failed {
		log.Warnf("periph driver %v failed to load: %v", failure.D, failure.Err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, err
	}
	log.Printf("Opened periph I2C bus %v", bus)
	return &Bus{Bus: bus}, nil
}

func (b *Bus) dev(addr byte) *i2c.Dev {
	return &i2c.Dev{Bus: b.Bus, Addr: uint16(addr)}
}

func (b *Bus) WriteRegister(addr, register, value byte) error {
	return b.dev(addr).Tx([]byte{register, value}, nil)
}

func (b *Bus) ReadRegister(addr, register byte) (byte, error) {
	in := make([]byte, 1)
	if err := b.dev(addr).Tx([]byte{register}, in); err != nil {
		return 0, err
	}
	return in[0], nil
}

func (b *Bus) Close() error {
	if closer, ok := b.Bus.(i2c.BusCloser); ok {
		return closer.Close()
	}
	return nil
}
