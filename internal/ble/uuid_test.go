package ble

import (
	"testing"

	"tinygo.org/x/bluetooth"
)

func TestParseUUID(t *testing.T) {
	tests := []struct {
		in   string
		want bluetooth.UUID
	}{
		{"FFE0", bluetooth.New16BitUUID(0xffe0)},
		{"0xFFE1", bluetooth.New16BitUUID(0xffe1)},
		{" ffe0 ", bluetooth.New16BitUUID(0xffe0)},
		{"0000ffe0", bluetooth.New32BitUUID(0xffe0)},
		{"0000FFE1-0000-1000-8000-00805F9B34FB", bluetooth.New16BitUUID(0xffe1)},
	}
	for _, tt := range tests {
		got, err := ParseUUID(tt.in)
		if err != nil {
			t.Errorf("ParseUUID(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseUUID(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseUUIDFullForm(t *testing.T) {
	u, err := ParseUUID("4651FAB4-8C39-6212-40EE-91B6C0696FEC")
	if err != nil {
		t.Fatalf("ParseUUID() error = %v", err)
	}
	if got := u.String(); got != "4651fab4-8c39-6212-40ee-91b6c0696fec" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseUUIDInvalid(t *testing.T) {
	for _, s := range []string{"", "FFE", "ZZZZ", "0xGGGGGGGG", "19b10000-e8f2-537e-4f6c-d104768a12"} {
		if _, err := ParseUUID(s); err == nil {
			t.Errorf("ParseUUID(%q) should fail", s)
		}
	}
}

func TestSameUUID(t *testing.T) {
	if !SameUUID("FFE1", "0000FFE1-0000-1000-8000-00805F9B34FB") {
		t.Error("short and long forms of FFE1 should match")
	}
	if SameUUID("FFE0", "FFE1") {
		t.Error("FFE0 and FFE1 should not match")
	}
	if SameUUID("ZZZZ", "ZZZZ") {
		t.Error("invalid UUIDs should never match")
	}
}
