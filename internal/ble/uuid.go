package ble

import (
	"fmt"
	"strconv"
	"strings"

	"tinygo.org/x/bluetooth"
)

// ParseUUID accepts 16- and 32-bit short forms ("FFE0", "0x0000ffe0") as
// well as full 128-bit UUIDs. Short forms are placed on the Bluetooth base
// UUID.
func ParseUUID(s string) (bluetooth.UUID, error) {
	s = strings.TrimSpace(s)
	if t := strings.TrimPrefix(strings.ToLower(s), "0x"); len(t) == 4 || len(t) == 8 {
		v, err := strconv.ParseUint(t, 16, len(t)*4)
		if err != nil {
			return bluetooth.UUID{}, fmt.Errorf("ble: invalid UUID %q: %w", s, err)
		}
		if len(t) == 4 {
			return bluetooth.New16BitUUID(uint16(v)), nil
		}
		return bluetooth.New32BitUUID(uint32(v)), nil
	}
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		return bluetooth.UUID{}, fmt.Errorf("ble: invalid UUID %q: %w", s, err)
	}
	return u, nil
}

// SameUUID reports whether a and b name the same UUID. Unparseable input
// never matches.
func SameUUID(a, b string) bool {
	ua, err := ParseUUID(a)
	if err != nil {
		return false
	}
	ub, err := ParseUUID(b)
	if err != nil {
		return false
	}
	return ua == ub
}
