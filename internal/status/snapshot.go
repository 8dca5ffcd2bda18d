package status

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is the whole mirrored state in one compact record, for
// consumers that would rather decode one value than read the hash.
// Keys are small integers on the wire.
type Snapshot struct {
	Status    string `cbor:"1,keyasint"`
	Ready     bool   `cbor:"2,keyasint"`
	Speed     int8   `cbor:"3,keyasint"`
	Direction string `cbor:"4,keyasint"`
}

// apply sets the hash field to value on s.
func (s *Snapshot) apply(field, value string) {
	switch field {
	case FieldStatus:
		s.Status = value
	case FieldReady:
		s.Ready = value == "1"
	case FieldSpeed:
		var v int8
		if _, err := fmt.Sscan(value, &v); err == nil {
			s.Speed = v
		}
	case FieldDirection:
		s.Direction = value
	}
}

// EncodeSnapshot returns the CBOR encoding of s.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	data, err := cbor.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("status: encoding snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a value written by EncodeSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("status: decoding snapshot: %w", err)
	}
	return s, nil
}
