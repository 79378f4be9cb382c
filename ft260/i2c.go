package ft260

import (
	"fmt"
	"strings"
	"time"
)

const (
	ReportID_I2CStatus    = 0xC0 // Feature In
	ReportID_I2CRead      = 0xC2 // Output
	ReportID_I2CInOut     = 0xD0 // 0xD0 - 0xDE, Input, Output
	ReportID_I2CInOut_Max = 0xDE
	// Max size of I2C payload: (1 + Report ID - 0xD0) * 4 byte

	I2CMaxPayload = (1 + ReportID_I2CInOut_Max - ReportID_I2CInOut) * 4

	// Report ID, slave address, condition, length
	i2cWriteHeader = 4
	// Report ID, length
	maxInputReportLen = I2CMaxPayload + 2
)

const (
	I2C_StatusControllerBusy = byte(1 << iota)
	I2C_StatusError
	I2C_StatusNoSlaveAck
	I2C_StatusNoDataAck
	I2C_StatusArbitrationLost
	I2C_StatusControllerIdle
	I2C_StatusBusBusy

	i2cStatusFailed = I2C_StatusError | I2C_StatusNoSlaveAck | I2C_StatusNoDataAck | I2C_StatusArbitrationLost

	i2cStatusPollInterval = time.Millisecond
)

const (
	I2C_MasterNone         = 0x0
	I2C_MasterStart        = 0x2
	I2C_MasterRepStart     = 0x3
	I2C_MasterStop         = 0x4
	I2C_MasterStartStop    = 0x6
	I2C_MasterRepStartStop = 0x7
)

func I2cMasterCodeString(code byte) string {
	switch code {
	case I2C_MasterNone:
		return "Nothing"
	case I2C_MasterStart:
		return "Start"
	case I2C_MasterRepStart:
		return "Repeated Start"
	case I2C_MasterStop:
		return "Stop"
	case I2C_MasterStartStop:
		return "Start + Stop"
	case I2C_MasterRepStartStop:
		return "Repeated Start + Stop"
	default:
		return fmt.Sprintf("Unknown I2C Master code %v", code)
	}
}

// Result of ReportID_I2CStatus Feature In
type ReportI2cStatus struct {
	BusStatus byte   // Bitmask of I2C_Status...
	BusSpeed  uint16 // kHz, 2 byte: LSB+MSB
	// 1 reserved
}

func (r *ReportI2cStatus) ReportID() byte {
	return ReportID_I2CStatus
}

func (r *ReportI2cStatus) ReportLen() int {
	return 4
}

func (r *ReportI2cStatus) Unmarshall(b []byte) error {
	r.BusStatus = b[0]
	r.BusSpeed = uint16(b[1]) + uint16(b[2])<<8
	return nil
}

// I2cError is a transfer that the I2C master of the FT260 reported as failed.
type I2cError struct {
	SlaveAddr byte
	Condition byte // Of the last report of the transfer
	Status    byte // ReportI2cStatus.BusStatus
}

func (e *I2cError) Error() string {
	var reasons []string
	if e.Status&I2C_StatusNoSlaveAck != 0 {
		reasons = append(reasons, "slave address not acknowledged")
	}
	if e.Status&I2C_StatusNoDataAck != 0 {
		reasons = append(reasons, "data not acknowledged")
	}
	if e.Status&I2C_StatusArbitrationLost != 0 {
		reasons = append(reasons, "arbitration lost")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "error")
	}
	return fmt.Sprintf("ft260: I2C transfer with %#02x (%v) failed, status %08b: %v",
		e.SlaveAddr, I2cMasterCodeString(e.Condition), e.Status, strings.Join(reasons, ", "))
}

// Poll the I2C status until the master finished the current transfer
func (f *Ft260) waitI2cIdle() (byte, error) {
	deadline := time.Now().Add(f.readTimeout)
	for {
		var status ReportI2cStatus
		if err := f.readFeature(&status); err != nil {
			return 0, err
		}
		if status.BusStatus&I2C_StatusControllerBusy == 0 {
			return status.BusStatus, nil
		}
		if time.Now().After(deadline) {
			return status.BusStatus, fmt.Errorf("ft260: I2C master still busy after %v (status %08b)", f.readTimeout, status.BusStatus)
		}
		time.Sleep(i2cStatusPollInterval)
	}
}

func (f *Ft260) checkI2cStatus(addr, condition byte) error {
	status, err := f.waitI2cIdle()
	if err != nil {
		return err
	}
	if status&i2cStatusFailed != 0 {
		return &I2cError{SlaveAddr: addr, Condition: condition, Status: status}
	}
	return nil
}

// I2cStatus reads the current status of the I2C master.
func (f *Ft260) I2cStatus() (ReportI2cStatus, error) {
	var status ReportI2cStatus
	if err := f.lockOpen(); err != nil {
		return status, err
	}
	defer f.lock.Unlock()
	err := f.readFeature(&status)
	return status, err
}

func checkSlaveAddr(addr byte) error {
	if addr&0x80 != 0 {
		return fmt.Errorf("Invalid I2C slave address: %02x", addr)
	}
	return nil
}

// Data of ReportID_I2CInOut Interrupt Out
type OperationI2cWrite struct {
	SlaveAddr byte // 0..127
	Condition byte // I2C_Master...
	// 1 byte payload len
	Payload []byte
}

func (r *OperationI2cWrite) ReportID() byte {
	if len(r.Payload) == 0 {
		return ReportID_I2CInOut
	}
	return ReportID_I2CInOut + byte((len(r.Payload)-1)/4)
}

// Every report ID has a fixed size, the unused part of the payload is zero
func (r *OperationI2cWrite) ReportLen() int {
	return i2cWriteHeader - 1 + int(r.ReportID()-ReportID_I2CInOut+1)*4
}

func (r *OperationI2cWrite) Marshall(b []byte) error {
	if len(r.Payload) > I2CMaxPayload {
		return fmt.Errorf("Payload len %v exceeds maximum size of %v", len(r.Payload), I2CMaxPayload)
	}
	if err := checkSlaveAddr(r.SlaveAddr); err != nil {
		return err
	}
	b[0] = r.SlaveAddr
	b[1] = r.Condition
	b[2] = byte(len(r.Payload))
	copy(b[3:], r.Payload)
	return nil
}

// Data of ReportID_I2CRead Interrupt Out
type OperationI2cRead struct {
	SlaveAddr byte   // 0..127
	Condition byte   // I2C_Master...
	Len       uint16 // data length (little endian)
}

func (r *OperationI2cRead) ReportID() byte {
	return ReportID_I2CRead
}

func (r *OperationI2cRead) ReportLen() int {
	return 4
}

func (r *OperationI2cRead) Marshall(b []byte) error {
	if err := checkSlaveAddr(r.SlaveAddr); err != nil {
		return err
	}
	b[0] = r.SlaveAddr
	b[1] = r.Condition
	b[2], b[3] = byte(r.Len), byte(r.Len>>8)
	return nil
}

// Data of ReportID_I2CInOut Interrupt In
type OperationI2cInput struct {
	// 1 byte payload length
	Data []byte
}

func (r *OperationI2cInput) Unmarshall(d []byte) error {
	if len(d) < 1 {
		return fmt.Errorf("Short I2C input report (%v byte)", len(d))
	}
	l := d[0]
	if len(d) < int(l)+1 {
		return fmt.Errorf("Short I2C read (%v, needed at least %v)", len(d), l+1)
	}
	r.Data = append(r.Data[:0], d[1:1+l]...)
	return nil
}

// Split data into reports of at most I2CMaxPayload byte. The first report carries the start
// condition, the last one the stop condition (if requested).
func i2cSplitTransaction(stop bool, data []byte) (payload [][]byte, conditions []byte) {
	for len(data) > 0 {
		n := len(data)
		if n > I2CMaxPayload {
			n = I2CMaxPayload
		}
		payload = append(payload, data[:n])
		data = data[n:]

		condition := byte(I2C_MasterNone)
		if len(conditions) == 0 {
			condition |= I2C_MasterStart
		}
		if stop && len(data) == 0 {
			condition |= I2C_MasterStop
		}
		conditions = append(conditions, condition)
	}
	return
}

func (f *Ft260) i2cWrite(addr byte, stop bool, data []byte) error {
	payload, conditions := i2cSplitTransaction(stop, data)
	for i, chunk := range payload {
		err := f.write(&OperationI2cWrite{
			SlaveAddr: addr,
			Condition: conditions[i],
			Payload:   chunk,
		}, false)
		if err != nil {
			return err
		}
	}
	if len(conditions) == 0 {
		return nil
	}
	return f.checkI2cStatus(addr, conditions[len(conditions)-1])
}

func (f *Ft260) i2cRead(addr byte, condition byte, target []byte) error {
	err := f.write(&OperationI2cRead{
		SlaveAddr: addr,
		Condition: condition,
		Len:       uint16(len(target)),
	}, false)
	if err != nil {
		return err
	}
	for received := 0; received < len(target); {
		var input OperationI2cInput
		if err := f.read(&input); err != nil {
			// A missing acknowledge leaves the read unanswered, prefer the reason from the status
			if statusErr := f.checkI2cStatus(addr, condition); statusErr != nil {
				return statusErr
			}
			return err
		}
		if len(input.Data) == 0 {
			return fmt.Errorf("ft260: empty I2C input report after %v of %v byte", received, len(target))
		}
		received += copy(target[received:], input.Data)
	}
	return f.checkI2cStatus(addr, condition)
}

func (f *Ft260) I2cWrite(addr byte, data ...byte) error {
	if err := f.lockOpen(); err != nil {
		return err
	}
	defer f.lock.Unlock()
	return f.i2cWrite(addr, true, data)
}

func (f *Ft260) I2cRead(addr byte, data []byte) error {
	if err := f.lockOpen(); err != nil {
		return err
	}
	defer f.lock.Unlock()
	f.discardStaleReports()
	return f.i2cRead(addr, I2C_MasterStartStop, data)
}

// Write out without stop condition, then read in after a repeated start
func (f *Ft260) I2cWriteRead(addr byte, out, in []byte) error {
	if err := f.lockOpen(); err != nil {
		return err
	}
	defer f.lock.Unlock()
	f.discardStaleReports()
	if err := f.i2cWrite(addr, false, out); err != nil {
		return err
	}
	return f.i2cRead(addr, I2C_MasterRepStartStop, in)
}

func (f *Ft260) WriteRegister(addr, register, value byte) error {
	return f.I2cWrite(addr, register, value)
}

func (f *Ft260) ReadRegister(addr, register byte) (byte, error) {
	in := make([]byte, 1)
	if err := f.I2cWriteRead(addr, []byte{register}, in); err != nil {
		return 0, err
	}
	return in[0], nil
}
