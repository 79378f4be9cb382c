package i2cbus

import "sync"

// Locked serializes transactions with a mutex instead of a goroutine.
type Locked struct {
	Bus Bus

	lock sync.Mutex
}

func (l *Locked) WriteRegister(addr, register, value byte) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.Bus.WriteRegister(addr, register, value)
}

func (l *Locked) ReadRegister(addr, register byte) (byte, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.Bus.ReadRegister(addr, register)
}
