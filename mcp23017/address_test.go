package mcp23017

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type testSuite struct {
	t *testing.T
	*require.Assertions
}

func (suite *testSuite) T() *testing.T {
	return suite.t
}

func (suite *testSuite) SetT(t *testing.T) {
	suite.t = t
	suite.Assertions = require.New(t)
}

func TestAll(t *testing.T) {
	suite.Run(t, new(testSuite))
}

// Register map from the MCP23017 datasheet, tables 3-1 and 3-2.
// Columns: Bank0 A, Bank0 B, Bank1 A, Bank1 B
var datasheetAddresses = map[Register][4]byte{
	IODIR:   {0x00, 0x01, 0x00, 0x10},
	IPOL:    {0x02, 0x03, 0x01, 0x11},
	GPINTEN: {0x04, 0x05, 0x02, 0x12},
	DEFVAL:  {0x06, 0x07, 0x03, 0x13},
	INTCON:  {0x08, 0x09, 0x04, 0x14},
	IOCON:   {0x0A, 0x0B, 0x05, 0x15},
	GPPU:    {0x0C, 0x0D, 0x06, 0x16},
	INTF:    {0x0E, 0x0F, 0x07, 0x17},
	INTCAP:  {0x10, 0x11, 0x08, 0x18},
	GPIO:    {0x12, 0x13, 0x09, 0x19},
	OLAT:    {0x14, 0x15, 0x0A, 0x1A},
}

func (s *testSuite) TestDatasheetRegisterMap() {
	s.Len(datasheetAddresses, len(Registers))
	for reg, expected := range datasheetAddresses {
		s.Equal(expected[0], Address(Bank0, PortA, reg), "%v bank0 port A", reg)
		s.Equal(expected[1], Address(Bank0, PortB, reg), "%v bank0 port B", reg)
		s.Equal(expected[2], Address(Bank1, PortA, reg), "%v bank1 port A", reg)
		s.Equal(expected[3], Address(Bank1, PortB, reg), "%v bank1 port B", reg)
	}
}

func (s *testSuite) TestPortOffsets() {
	for _, reg := range Registers {
		s.Equal(byte(0x01), Address(Bank0, PortB, reg)-Address(Bank0, PortA, reg), "paired offset of %v", reg)
		s.Equal(byte(0x10), Address(Bank1, PortB, reg)-Address(Bank1, PortA, reg), "bank offset of %v", reg)
	}
}

func (s *testSuite) TestNoCollisions() {
	for _, bank := range []Bank{Bank0, Bank1} {
		seen := make(map[byte]Register)
		for _, reg := range Registers {
			for _, port := range Ports {
				addr := Address(bank, port, reg)
				other, exists := seen[addr]
				s.False(exists, "%v: %v port %v collides with %v at %#02x", bank, reg, port, other, addr)
				seen[addr] = reg
			}
		}
		s.Len(seen, 2*len(Registers))
	}
}

func (s *testSuite) TestAddressPanicsOutOfDomain() {
	s.Panics(func() { Address(Bank(2), PortA, IODIR) })
	s.Panics(func() { Address(Bank0, Port(2), IODIR) })
	s.Panics(func() { Address(Bank0, PortA, Register(11)) })
}

func (s *testSuite) TestReadOnlyRegisters() {
	for _, reg := range Registers {
		s.Equal(reg == INTF || reg == INTCAP, reg.ReadOnly(), "%v", reg)
	}
}

func (s *testSuite) TestParse() {
	b, err := ParseBank("Bank1")
	s.NoError(err)
	s.Equal(Bank1, b)
	b, err = ParseBank("paired")
	s.NoError(err)
	s.Equal(Bank0, b)
	_, err = ParseBank("bank2")
	s.Error(err)

	p, err := ParsePort("b")
	s.NoError(err)
	s.Equal(PortB, p)
	p, err = ParsePort("PortA")
	s.NoError(err)
	s.Equal(PortA, p)
	_, err = ParsePort("c")
	s.Error(err)

	s.Equal("INTCAP", INTCAP.String())
	s.Equal("Register(42)", Register(42).String())
	s.Equal("bank1", Bank1.String())
	s.Equal("B", PortB.String())
}
