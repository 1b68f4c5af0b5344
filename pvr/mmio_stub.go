//go:build !gccgo

package pvr

// Open returns the hardware device. Only gccgo builds for KallistiOS can
// reach the console's address space; every other build gets ErrNoHardware.
func Open() (Device, error) {
	return nil, ErrNoHardware
}
