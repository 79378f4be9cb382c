package ft260

import (
	"errors"
	"fmt"
)

const (
	ReportID_ChipCode      = 0xA0 // Feature In
	ReportID_SystemSetting = 0xA1 // Feature In/Out

	// Part number in the upper half of ReportChipCode.ChipCode
	FT260PartNumber = 0x0260
)

// Requests for ReportID_SystemSetting Feature Out
const (
	SetSystemSetting_Clock       = 0x01 // Clock...
	SetSystemSetting_I2CReset    = 0x20 // <empty>
	SetSystemSetting_I2CSetClock = 0x22 // LSB+MSB of clock speed (60K-3400K bps)
)

const (
	Clock12MHz = byte(0)
	Clock24MHz = byte(1)
	Clock48MHz = byte(2)
)

func _readBool(b []byte, index int, e *error) bool {
	if *e == nil {
		switch b[index] {
		case 0:
			return false
		case 1:
			return true
		default:
			*e = fmt.Errorf("Expected 0 or 1 for byte at index %v, but got %02x", index, b[index])
		}
	}
	return false
}

// Result of ReportID_ChipCode Feature In
type ReportChipCode struct {
	ChipCode uint32 // 02600200
	// 8 reserved byte
}

func (r *ReportChipCode) ReportID() byte {
	return ReportID_ChipCode
}

func (r *ReportChipCode) ReportLen() int {
	return 12
}

func (r *ReportChipCode) Unmarshall(b []byte) error {
	r.ChipCode = uint32(b[0])<<24 + uint32(b[1])<<16 + uint32(b[2])<<8 + uint32(b[3])
	return nil
}

// Result of ReportID_SystemSetting Feature In, only the leading fields
type ReportSystemStatus struct {
	ChipMode    byte // Bit 0: DCNF0, Bit 1: DCNF1
	Clock       byte // 0..2 (Clock...MHz)
	Suspended   bool
	PowerStatus bool // Device Ready?
	I2CEnable   bool
}

func (r *ReportSystemStatus) ReportID() byte {
	return ReportID_SystemSetting
}

func (r *ReportSystemStatus) ReportLen() int {
	// This should be 19 byte, but the device returns an error for less than 25...
	return 24
}

func (r *ReportSystemStatus) Unmarshall(b []byte) (err error) {
	r.ChipMode = b[0]
	r.Clock = b[1]
	r.Suspended = _readBool(b, 2, &err)
	r.PowerStatus = _readBool(b, 3, &err)
	r.I2CEnable = _readBool(b, 4, &err)
	return
}

type SetSystemStatus struct {
	Request byte
	Value   interface{}
}

func (r *SetSystemStatus) ReportID() byte {
	return ReportID_SystemSetting
}

func (r *SetSystemStatus) ReportLen() int {
	switch r.Request {
	case SetSystemSetting_Clock:
		return 2
	case SetSystemSetting_I2CSetClock:
		return 3
	default:
		return 1
	}
}

func (r *SetSystemStatus) Marshall(b []byte) error {
	b[0] = r.Request
	switch r.Request {
	case SetSystemSetting_I2CReset:
		// No payload
	case SetSystemSetting_Clock:
		val, ok := r.Value.(byte)
		if !ok {
			return fmt.Errorf("System Setting Request ID %02x expects type %T, but got value of type %T (%v)", r.Request, byte(0), r.Value, r.Value)
		}
		b[1] = val
	case SetSystemSetting_I2CSetClock:
		val, ok := r.Value.(uint16)
		if !ok {
			return fmt.Errorf("System Setting Request ID %02x expects type %T, but got value of type %T (%v)", r.Request, uint16(0), r.Value, r.Value)
		}
		b[1], b[2] = byte(val), byte(val>>8)
	default:
		return fmt.Errorf("Unknown system setting request ID: %02x", r.Request)
	}
	return nil
}

// Configure validates the chip, resets its I2C master and sets the I2C clock in kHz.
func (f *Ft260) Configure(i2cFreq uint16) error {
	if i2cFreq < 60 || i2cFreq > 3400 {
		return fmt.Errorf("Invalid I2C frequency %v kHz (allowed 60..3400)", i2cFreq)
	}
	if err := f.lockOpen(); err != nil {
		return err
	}
	defer f.lock.Unlock()

	var code ReportChipCode
	if err := f.readFeature(&code); err != nil {
		return err
	}
	if code.ChipCode>>16 != FT260PartNumber {
		return fmt.Errorf("ft260: unexpected chip code %08x (expected part number %04x)", code.ChipCode, FT260PartNumber)
	}

	var err error
	set := func(request byte, val interface{}) {
		if err == nil {
			err = f.write(&SetSystemStatus{Request: request, Value: val}, true)
		}
	}
	set(SetSystemSetting_Clock, Clock48MHz)
	set(SetSystemSetting_I2CReset, nil) // Reset i2c bus in case it was disturbed
	set(SetSystemSetting_I2CSetClock, i2cFreq)
	if err != nil {
		return err
	}

	var status ReportSystemStatus
	if err := f.readFeature(&status); err != nil {
		return err
	}
	if status.Suspended {
		return errors.New("ft260: device is suspended")
	}
	if !status.PowerStatus {
		return errors.New("ft260: device is powered off")
	}
	if !status.I2CEnable {
		return errors.New("ft260: I2C is not enabled on the device")
	}

	var i2cStatus ReportI2cStatus
	if err := f.readFeature(&i2cStatus); err != nil {
		return err
	}
	if i2cStatus.BusSpeed != i2cFreq {
		return fmt.Errorf("ft260: unexpected I2C bus speed %v (expected %v)", i2cStatus.BusSpeed, i2cFreq)
	}
	return nil
}
