package a2dp

import "fmt"

// BDAddr is a Bluetooth device address in display order.
type BDAddr [6]byte

// String returns the address as colon separated hex.
func (a BDAddr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsZero returns true for the all-zero address.
func (a BDAddr) IsZero() bool {
	return a == BDAddr{}
}
