package encoding

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPackIntEndianness(t *testing.T) {
	le, err := PackInt(true, 4, false, 0x01020304)
	if err != nil {
		t.Fatalf("pack <I: %v", err)
	}
	if diff := cmp.Diff([]byte{0x04, 0x03, 0x02, 0x01}, le); diff != "" {
		t.Fatalf("pack <I 0x01020304 mismatch (-want +got):\n%s", diff)
	}
	be, err := PackInt(false, 4, false, 0x01020304)
	if err != nil {
		t.Fatalf("pack >I: %v", err)
	}
	if diff := cmp.Diff([]byte{0x01, 0x02, 0x03, 0x04}, be); diff != "" {
		t.Fatalf("pack >I 0x01020304 mismatch (-want +got):\n%s", diff)
	}
}

func TestPackIntRanges(t *testing.T) {
	tests := []struct {
		width   int
		signed  bool
		value   int64
		wantErr bool
	}{
		{1, false, 255, false},
		{1, false, 256, true},
		{1, false, -1, true},
		{1, true, -128, false},
		{1, true, -129, true},
		{1, true, 128, true},
		{2, false, 0xffff, false},
		{2, true, -0x8000, false},
		{4, false, 0xffffffff, false},
		{4, true, -0x80000000, false},
		{4, true, 0x80000000, true},
		{8, true, -1 << 62, false},
	}
	for _, tt := range tests {
		_, err := PackInt(true, tt.width, tt.signed, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("PackInt(width=%d signed=%v value=%d): err = %v, wantErr %v",
				tt.width, tt.signed, tt.value, err, tt.wantErr)
		}
	}
}

func TestPackInferredSignedness(t *testing.T) {
	// Negative values use the signed range, non-negative the unsigned.
	if _, err := PackInferred(true, 1, 0xff); err != nil {
		t.Errorf("db 0xff should pack: %v", err)
	}
	if _, err := PackInferred(true, 1, -128); err != nil {
		t.Errorf("db -128 should pack: %v", err)
	}
	if _, err := PackInferred(true, 1, -129); err == nil {
		t.Error("db -129 should fail")
	}
	got, err := PackInferred(true, 2, -1)
	if err != nil {
		t.Fatalf("dh -1: %v", err)
	}
	if !bytes.Equal(got, []byte{0xff, 0xff}) {
		t.Fatalf("dh -1 = % x", got)
	}
}

func TestPackFloat(t *testing.T) {
	// struct.pack('<f', 3.14159) == 0xd00f4940
	got, err := PackFloat(true, 4, 3.14159)
	if err != nil {
		t.Fatalf("pack <f: %v", err)
	}
	if diff := cmp.Diff([]byte{0xd0, 0x0f, 0x49, 0x40}, got); diff != "" {
		t.Fatalf("pack <f 3.14159 mismatch (-want +got):\n%s", diff)
	}
	// struct.pack('<f', 3.141) == 0x2506 4940
	got, err = PackFloat(true, 4, 3.141)
	if err != nil {
		t.Fatalf("pack <f: %v", err)
	}
	if diff := cmp.Diff([]byte{0x25, 0x06, 0x49, 0x40}, got); diff != "" {
		t.Fatalf("pack <f 3.141 mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteIntelHex(t *testing.T) {
	var buf bytes.Buffer
	image := []byte{0x93, 0x00, 0xc0, 0x00}
	if err := WriteIntelHex(&buf, image, 0x08000000); err != nil {
		t.Fatalf("WriteIntelHex: %v", err)
	}
	want := strings.Join([]string{
		":020000040800F2",
		":040000009300C000A9",
		":00000001FF",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("hex output mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteIntelHexZeroOffset(t *testing.T) {
	var buf bytes.Buffer
	image := make([]byte, 20)
	if err := WriteIntelHex(&buf, image, 0); err != nil {
		t.Fatalf("WriteIntelHex: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected ELA + 2 data records + EOF, got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[len(lines)-1] != ":00000001FF" {
		t.Fatalf("missing EOF record: %s", lines[len(lines)-1])
	}
}

func TestWriteLabels(t *testing.T) {
	var buf bytes.Buffer
	labels := map[string]int64{"main": 4, "data": 0, "end": 4}
	if err := WriteLabels(&buf, labels); err != nil {
		t.Fatalf("WriteLabels: %v", err)
	}
	want := "data\t0x00000000\nend\t0x00000004\nmain\t0x00000004\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("labels output mismatch (-want +got):\n%s", diff)
	}
}
