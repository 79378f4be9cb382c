//go:build hidapi && cgo && (linux || darwin || windows)

package ft260

import (
	"errors"
	"fmt"

	"github.com/antongulenko/hid"
	log "github.com/sirupsen/logrus"
)

// Init prepares the hidapi library. It must be called before opening a device.
func Init() error {
	return hid.Init()
}

func Shutdown() error {
	return hid.Shutdown()
}

// Open enumerates the FT260 I2C interfaces and opens the first match. With a non-zero
// I2cFreq the chip and its I2C master are configured and validated before returning.
func (d *Ft260Driver) Open() (*Ft260, error) {
	if !hid.Supported() {
		return nil, errors.New("This libray github.com/antongulenko/hid is not supported on this platform")
	}
	vendor, product := d.Vendor, d.Product
	if vendor == 0 {
		vendor = FTDIVendorId
	}
	if product == 0 {
		product = FT260ProductId
	}
	var candidates []hid.DeviceInfo
	for _, info := range hid.Enumerate(vendor, product) {
		if (d.Path == "" && info.Interface == I2cInterface) || info.Path == d.Path {
			candidates = append(candidates, info)
		}
	}
	if len(candidates) == 0 {
		if d.Path != "" {
			return nil, fmt.Errorf("No USB HID device found at %v with vendorID=%04x productID=%04x", d.Path, vendor, product)
		}
		return nil, fmt.Errorf("No USB HID device found with vendorID=%04x productID=%04x", vendor, product)
	}
	if len(candidates) > 1 {
		log.Warnf("Multiple devices connected with vendorID=%04x productID=%04x, using first", vendor, product)
	}
	info := candidates[0]
	log.Printf("Opening USB HID device %v (USB %v): %v (%04x) from %v (%04x), Release %v",
		info.Path, info.Interface, info.Product, info.ProductID, info.Manufacturer, info.VendorID, info.Release)
	dev, err := info.Open()
	if err != nil {
		return nil, err
	}
	f := New(dev, d.ReadTimeout)
	if d.I2cFreq != 0 {
		if err := f.Configure(d.I2cFreq); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}
