package i2cbus

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Transaction is one register access recorded by Dummy.
type Transaction struct {
	Write    bool
	Addr     byte
	Register byte
	Value    byte
}

// Dummy is a loopback bus: every device address has 256 registers that return the last written value.
// It replaces real peripherals in dry runs and tests.
type Dummy struct {
	// Err is returned by every transaction while it is non-nil. Failed transactions are recorded, too.
	Err error

	lock         sync.Mutex
	registers    map[byte]*[256]byte
	transactions []Transaction
}

func (d *Dummy) device(addr byte) *[256]byte {
	if d.registers == nil {
		d.registers = make(map[byte]*[256]byte)
	}
	regs, ok := d.registers[addr]
	if !ok {
		regs = new([256]byte)
		d.registers[addr] = regs
	}
	return regs
}

func (d *Dummy) WriteRegister(addr, register, value byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.transactions = append(d.transactions, Transaction{Write: true, Addr: addr, Register: register, Value: value})
	if d.Err != nil {
		return d.Err
	}
	log.Debugf("Dummy I2C: writing %#02x to register %#02x of %#02x", value, register, addr)
	d.device(addr)[register] = value
	return nil
}

func (d *Dummy) ReadRegister(addr, register byte) (byte, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.transactions = append(d.transactions, Transaction{Addr: addr, Register: register})
	if d.Err != nil {
		return 0, d.Err
	}
	value := d.device(addr)[register]
	log.Debugf("Dummy I2C: read %#02x from register %#02x of %#02x", value, register, addr)
	return value, nil
}

// Preset changes a register without recording a transaction, to emulate the chip changing its own state.
func (d *Dummy) Preset(addr, register, value byte) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.device(addr)[register] = value
}

// Register returns the current register value without recording a transaction.
func (d *Dummy) Register(addr, register byte) byte {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.device(addr)[register]
}

// Transactions returns a copy of all recorded transactions, oldest first.
func (d *Dummy) Transactions() []Transaction {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]Transaction(nil), d.transactions...)
}

func (d *Dummy) ResetTransactions() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.transactions = nil
}
