package ft260

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_i2c_split_transactions(t *testing.T) {
	a := assert.New(t)
	test := func(stop bool, data []byte, expectedPayload [][]byte, expectedConditions []byte) {
		payload, conditions := i2cSplitTransaction(stop, data)
		a.Equal(expectedPayload, payload, "Payload differs")
		a.Equal(expectedConditions, conditions, "Conditions differ")
	}

	test(true, nil, nil, nil)
	test(false, nil, nil, nil)
	test(true, []byte{}, nil, nil)
	test(false, []byte{}, nil, nil)

	test(true, []byte{44}, [][]byte{[]byte{44}}, []byte{I2C_MasterStartStop})
	test(false, []byte{44}, [][]byte{[]byte{44}}, []byte{I2C_MasterStart})

	data := make([]byte, 130)
	for i := byte(0); i < byte(len(data)); i++ {
		data[i] = i + 10
	}

	// 60 byte
	test(true, data[:60], [][]byte{data[:60]}, []byte{I2C_MasterStartStop})
	test(false, data[:60], [][]byte{data[:60]}, []byte{I2C_MasterStart})

	// 61 byte
	test(true, data[:61], [][]byte{data[:60], data[60:61]}, []byte{I2C_MasterStart, I2C_MasterStop})
	test(false, data[:61], [][]byte{data[:60], data[60:61]}, []byte{I2C_MasterStart, I2C_MasterNone})

	// 121 byte
	test(true, data[:121], [][]byte{data[:60], data[60:120], data[120:121]}, []byte{I2C_MasterStart, I2C_MasterNone, I2C_MasterStop})
	test(false, data[:121], [][]byte{data[:60], data[60:120], data[120:121]}, []byte{I2C_MasterStart, I2C_MasterNone, I2C_MasterNone})

	// 130 byte
	test(true, data, [][]byte{data[:60], data[60:120], data[120:]}, []byte{I2C_MasterStart, I2C_MasterNone, I2C_MasterStop})
}

func TestWriteReportSizes(t *testing.T) {
	a := assert.New(t)
	test := func(payloadLen int, expectedID byte, expectedLen int) {
		op := &OperationI2cWrite{Payload: make([]byte, payloadLen)}
		a.Equal(expectedID, op.ReportID(), "report ID for %v byte", payloadLen)
		a.Equal(expectedLen, op.ReportLen(), "report len for %v byte", payloadLen)
	}
	test(1, 0xD0, 7)
	test(4, 0xD0, 7)
	test(5, 0xD1, 11)
	test(60, 0xDE, 63)
}

// fakeBridge answers I2C reads with respond and feature reports with its status.
// Transfers to slaves in absent fail with a missing acknowledge.
type fakeBridge struct {
	lock    sync.Mutex
	written [][]byte // Output reports
	feature [][]byte // Feature reports written
	respond []byte
	silent  bool
	absent  map[byte]bool

	input       [][]byte
	inputReads  int
	status      byte
	busyPolls   int // Status polls that still report a busy controller
	statusPolls int
	speed       uint16
	chipCode    []byte
	closed      bool
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		status:   I2C_StatusControllerIdle,
		speed:    DefaultI2cFreq,
		chipCode: []byte{0x02, 0x60, 0x02, 0x00},
	}
}

func (b *fakeBridge) DoWrite(data []byte, featureReport bool) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	data = append([]byte(nil), data...)
	if featureReport {
		b.feature = append(b.feature, data)
		if data[0] == ReportID_SystemSetting && data[1] == SetSystemSetting_I2CSetClock {
			b.speed = uint16(data[2]) + uint16(data[3])<<8
		}
		return len(data), nil
	}
	b.written = append(b.written, data)
	addr := data[1]
	b.status = I2C_StatusControllerIdle
	if b.absent[addr] {
		b.status |= I2C_StatusError | I2C_StatusNoSlaveAck
	} else if data[0] == ReportID_I2CRead && !b.silent {
		b.input = append(b.input, append([]byte{ReportID_I2CInOut, byte(len(b.respond))}, b.respond...))
	}
	return len(data), nil
}

func (b *fakeBridge) DoRead(data []byte, featureReport bool, timeout time.Duration) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return 0, io.EOF
	}
	if featureReport {
		switch data[0] {
		case ReportID_I2CStatus:
			b.statusPolls++
			status := b.status
			if b.busyPolls != 0 {
				b.busyPolls--
				status = I2C_StatusControllerBusy | I2C_StatusBusBusy
			}
			data[1], data[2], data[3] = status, byte(b.speed), byte(b.speed>>8)
		case ReportID_ChipCode:
			copy(data[1:], b.chipCode)
		case ReportID_SystemSetting:
			copy(data[1:], []byte{0x01, Clock48MHz, 0, 1, 1})
		}
		return len(data), nil
	}
	b.inputReads++
	if len(b.input) == 0 {
		return 0, nil
	}
	report := b.input[0]
	b.input = b.input[1:]
	return copy(data, report), nil
}

func (b *fakeBridge) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBridge) reports() [][]byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.written
}

func TestWriteRegister(t *testing.T) {
	a := assert.New(t)
	bridge := newFakeBridge()
	f := New(bridge, 0)
	defer f.Close()

	a.NoError(f.WriteRegister(0x20, 0x00, 0xFE))
	a.Equal([][]byte{
		{ReportID_I2CInOut, 0x20, I2C_MasterStartStop, 2, 0x00, 0xFE, 0, 0},
	}, bridge.reports())
	a.Equal(1, bridge.statusPolls)
}

func TestReadRegister(t *testing.T) {
	a := assert.New(t)
	bridge := newFakeBridge()
	bridge.respond = []byte{0x5A}
	f := New(bridge, time.Second)
	defer f.Close()

	v, err := f.ReadRegister(0x21, 0x13)
	a.NoError(err)
	a.Equal(byte(0x5A), v)
	a.Equal([][]byte{
		{ReportID_I2CInOut, 0x21, I2C_MasterStart, 1, 0x13, 0, 0, 0},
		{ReportID_I2CRead, 0x21, I2C_MasterRepStartStop, 1, 0},
	}, bridge.reports())
	a.Equal(2, bridge.statusPolls)
}

func TestWriteNotAcknowledged(t *testing.T) {
	a := assert.New(t)
	bridge := newFakeBridge()
	bridge.absent = map[byte]bool{0x27: true}
	f := New(bridge, 0)
	defer f.Close()

	err := f.WriteRegister(0x27, 0x00, 0xFE)
	a.Error(err)
	var i2cErr *I2cError
	if a.True(errors.As(err, &i2cErr)) {
		a.Equal(byte(0x27), i2cErr.SlaveAddr)
		a.Equal(byte(I2C_MasterStartStop), i2cErr.Condition)
		a.NotZero(i2cErr.Status & I2C_StatusNoSlaveAck)
	}
	a.Contains(err.Error(), "slave address not acknowledged")
	a.Contains(err.Error(), "Start + Stop")

	// Other slaves on the same bus still work
	a.NoError(f.WriteRegister(0x20, 0x00, 0xFE))
}

func TestReadNotAcknowledged(t *testing.T) {
	a := assert.New(t)
	bridge := newFakeBridge()
	bridge.absent = map[byte]bool{0x27: true}
	f := New(bridge, 10*time.Millisecond)
	defer f.Close()

	_, err := f.ReadRegister(0x27, 0x12)
	var i2cErr *I2cError
	a.True(errors.As(err, &i2cErr))
	a.Len(bridge.reports(), 1, "the read is not requested after the register address failed")

	err = f.I2cRead(0x27, make([]byte, 1))
	a.True(errors.As(err, &i2cErr))
	a.Equal(byte(I2C_MasterStartStop), i2cErr.Condition)
}

func TestWaitWhileBusy(t *testing.T) {
	a := assert.New(t)
	bridge := newFakeBridge()
	bridge.busyPolls = 3
	f := New(bridge, time.Second)
	defer f.Close()

	a.NoError(f.WriteRegister(0x20, 0x00, 0xFE))
	a.Equal(4, bridge.statusPolls)
}

func TestBusyTimeout(t *testing.T) {
	a := assert.New(t)
	bridge := newFakeBridge()
	bridge.busyPolls = -1
	f := New(bridge, 10*time.Millisecond)
	defer f.Close()

	err := f.WriteRegister(0x20, 0x00, 0xFE)
	a.Error(err)
	a.Contains(err.Error(), "busy")
}

func TestReadTimeout(t *testing.T) {
	a := assert.New(t)
	bridge := newFakeBridge()
	bridge.silent = true
	bridge.respond = []byte{0x5A}
	f := New(bridge, 10*time.Millisecond)
	defer f.Close()

	_, err := f.ReadRegister(0x20, 0x12)
	a.Error(err)

	// The late answer to the failed read is dropped before the next one
	bridge.lock.Lock()
	bridge.silent = false
	bridge.input = append(bridge.input, []byte{ReportID_I2CInOut, 1, 0xEE})
	bridge.lock.Unlock()
	v, err := f.ReadRegister(0x20, 0x12)
	a.NoError(err)
	a.Equal(byte(0x5A), v)
}

func TestConfigure(t *testing.T) {
	a := assert.New(t)
	bridge := newFakeBridge()
	f := New(bridge, 0)
	defer f.Close()

	a.NoError(f.Configure(400))
	a.Equal([][]byte{
		{ReportID_SystemSetting, SetSystemSetting_Clock, Clock48MHz},
		{ReportID_SystemSetting, SetSystemSetting_I2CReset},
		{ReportID_SystemSetting, SetSystemSetting_I2CSetClock, 0x90, 0x01},
	}, bridge.feature)
	status, err := f.I2cStatus()
	a.NoError(err)
	a.Equal(uint16(400), status.BusSpeed)

	a.Error(f.Configure(20))
	a.Error(f.Configure(4000))

	bridge.chipCode = []byte{0x02, 0x22, 0x01, 0x00}
	a.Error(f.Configure(100))
}

func TestCloseWithPendingReports(t *testing.T) {
	a := assert.New(t)
	bridge := newFakeBridge()
	for i := 0; i < 10; i++ {
		bridge.input = append(bridge.input, []byte{ReportID_I2CInOut, 1, byte(i)})
	}
	f := New(bridge, 0)
	a.NoError(f.Close())
	a.True(bridge.closed)
	a.Equal(0, bridge.inputReads, "input reports are only read during a transfer")
	_, err := f.ReadRegister(0x20, 0)
	a.Equal(ErrClosed, err)
}

func TestClosed(t *testing.T) {
	a := assert.New(t)
	f := New(newFakeBridge(), 0)
	a.NoError(f.Close())
	a.NoError(f.Close())
	a.Equal(ErrClosed, f.WriteRegister(0x20, 0, 0))
	_, err := f.ReadRegister(0x20, 0)
	a.Equal(ErrClosed, err)
	_, err = f.I2cStatus()
	a.Equal(ErrClosed, err)
}

func TestInvalidSlaveAddress(t *testing.T) {
	a := assert.New(t)
	f := New(newFakeBridge(), 0)
	defer f.Close()
	a.Error(f.WriteRegister(0x80, 0, 0))
}
