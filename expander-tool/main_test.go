package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPinMask(t *testing.T) {
	a := assert.New(t)
	test := func(pins uint, expected byte) {
		mask, err := pinMask(pins)
		a.NoError(err)
		a.Equal(expected, mask)
	}
	test(0, 0)
	test(0x0F, 0x0F)
	test(0xFF, 0xFF)

	for _, pins := range []uint{0x100, 0x1FF, 0xFFFF} {
		_, err := pinMask(pins)
		a.Error(err, "pin mask %#x", pins)
	}
}
