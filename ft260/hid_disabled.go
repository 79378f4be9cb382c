//go:build !(hidapi && cgo && (linux || darwin || windows))

package ft260

import "errors"

var errNoHid = errors.New("ft260: built without USB HID support (build with -tags hidapi and libhidapi-hidraw installed)")

func Init() error {
	return errNoHid
}

func Shutdown() error {
	return nil
}

func (d *Ft260Driver) Open() (*Ft260, error) {
	return nil, errNoHid
}
