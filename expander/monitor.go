package expander

import (
	"context"
	"sync"
	"time"

	"github.com/antongulenko/expander/mcp23017"
	log "github.com/sirupsen/logrus"
)

const DefaultPollInterval = 20 * time.Millisecond

// Handler receives the flagged pins of its mask and the full INTCAP snapshot of the port.
type Handler func(port mcp23017.Port, pins byte, captured byte)

type handlerEntry struct {
	port    mcp23017.Port
	mask    byte
	handler Handler
}

// Monitor polls the interrupt flags instead of watching the INT pins of the chip.
// Reading INTCAP for a flagged port clears the interrupt on the chip.
type Monitor struct {
	Device   *mcp23017.Device
	Interval time.Duration

	lock     sync.Mutex
	handlers []handlerEntry
}

// Handle registers h for interrupts on any of the pins in mask.
func (m *Monitor) Handle(port mcp23017.Port, mask byte, h Handler) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.handlers = append(m.handlers, handlerEntry{port: port, mask: mask, handler: h})
}

// Poll checks both ports once and returns the number of ports with a pending interrupt.
func (m *Monitor) Poll() (int, error) {
	pending := 0
	for _, port := range mcp23017.Ports {
		flags, err := m.Device.ReadInterruptFlag(port)
		if err != nil {
			return pending, err
		}
		if flags == 0 {
			continue
		}
		pending++
		captured, err := m.Device.ReadInterruptCapture(port)
		if err != nil {
			return pending, err
		}
		log.Debugf("Interrupt on port %v: flags %#08b, captured %#08b", port, flags, captured)
		m.dispatch(port, flags, captured)
	}
	return pending, nil
}

func (m *Monitor) dispatch(port mcp23017.Port, flags, captured byte) {
	m.lock.Lock()
	handlers := append([]handlerEntry(nil), m.handlers...)
	m.lock.Unlock()
	for _, entry := range handlers {
		if entry.port == port && entry.mask&flags != 0 {
			entry.handler(port, entry.mask&flags, captured)
		}
	}
}

// Run polls until ctx is done. Failed polls are logged and retried in the next interval.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := m.Poll(); err != nil {
			log.Errorf("Polling MCP23017 interrupts failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
