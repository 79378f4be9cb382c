package i2cbus

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDummyLoopback(t *testing.T) {
	a := assert.New(t)
	var bus Dummy

	a.NoError(bus.WriteRegister(0x20, 0x12, 0xAB))
	a.NoError(bus.WriteRegister(0x21, 0x12, 0xCD))
	v, err := bus.ReadRegister(0x20, 0x12)
	a.NoError(err)
	a.Equal(byte(0xAB), v)
	v, err = bus.ReadRegister(0x21, 0x12)
	a.NoError(err)
	a.Equal(byte(0xCD), v)

	a.Equal([]Transaction{
		{Write: true, Addr: 0x20, Register: 0x12, Value: 0xAB},
		{Write: true, Addr: 0x21, Register: 0x12, Value: 0xCD},
		{Addr: 0x20, Register: 0x12},
		{Addr: 0x21, Register: 0x12},
	}, bus.Transactions())

	bus.ResetTransactions()
	bus.Preset(0x20, 0x0E, 0x02)
	a.Equal(byte(0x02), bus.Register(0x20, 0x0E))
	a.Empty(bus.Transactions())
}

func TestDummyError(t *testing.T) {
	a := assert.New(t)
	bus := Dummy{Err: errors.New("no ack")}

	a.EqualError(bus.WriteRegister(0x20, 0, 1), "no ack")
	_, err := bus.ReadRegister(0x20, 0)
	a.EqualError(err, "no ack")
	a.Len(bus.Transactions(), 2)
	a.Equal(byte(0), bus.Register(0x20, 0), "failed write must not change the register")
}

func TestSequencer(t *testing.T) {
	a := assert.New(t)
	var bus Dummy
	seq := NewSequencer(&bus, 4)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(reg byte) {
			defer wg.Done()
			a.NoError(seq.WriteRegister(0x20, reg, reg+1))
		}(byte(i))
	}
	wg.Wait()
	for i := byte(0); i < 16; i++ {
		v, err := seq.ReadRegister(0x20, i)
		a.NoError(err)
		a.Equal(i+1, v)
	}
	a.Len(bus.Transactions(), 32)

	seq.Close()
	seq.Close()
	a.Equal(ErrSequencerClosed, seq.WriteRegister(0x20, 0, 0))
	_, err := seq.ReadRegister(0x20, 0)
	a.Equal(ErrSequencerClosed, err)
	a.Len(bus.Transactions(), 32)
}

func TestSequencerPropagatesErrors(t *testing.T) {
	a := assert.New(t)
	bus := Dummy{Err: errors.New("bus busy")}
	seq := NewSequencer(&bus, 1)
	defer seq.Close()

	a.EqualError(seq.WriteRegister(0x20, 1, 2), "bus busy")
	v, err := seq.ReadRegister(0x20, 1)
	a.EqualError(err, "bus busy")
	a.Equal(byte(0), v)
}

func TestLocked(t *testing.T) {
	a := assert.New(t)
	var bus Dummy
	locked := &Locked{Bus: &bus}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(reg byte) {
			defer wg.Done()
			a.NoError(locked.WriteRegister(0x27, reg, 0xFF))
		}(byte(i))
	}
	wg.Wait()
	for i := byte(0); i < 8; i++ {
		v, err := locked.ReadRegister(0x27, i)
		a.NoError(err)
		a.Equal(byte(0xFF), v)
	}
}
