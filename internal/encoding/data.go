package encoding

import (
	"encoding/binary"
	"fmt"
	"math"
)

// packLimits gives the value range of each explicit pack format
// character.
var packLimits = map[byte]struct {
	width  int
	signed bool
	float  bool
}{
	'b': {1, true, false}, 'B': {1, false, false},
	'h': {2, true, false}, 'H': {2, false, false},
	'i': {4, true, false}, 'I': {4, false, false},
	'l': {4, true, false}, 'L': {4, false, false},
	'q': {8, true, false}, 'Q': {8, false, false},
	'f': {4, true, true},
	'd': {8, true, true},
}

// PackFormat reports the width and kind of a pack format character.
func PackFormat(format byte) (width int, signed, float, ok bool) {
	l, ok := packLimits[format]
	return l.width, l.signed, l.float, ok
}

// PackInt emits value at the given width and signedness in the
// requested endianness, range-checking first.
func PackInt(little bool, width int, signed bool, value int64) ([]byte, error) {
	if err := checkPackRange(width, signed, value); err != nil {
		return nil, err
	}
	return packRaw(little, width, uint64(value)), nil
}

// PackInferred emits value at the given width, inferring signedness
// from its sign the way the db/dh/dw/dd shorthands do.
func PackInferred(little bool, width int, value int64) ([]byte, error) {
	return PackInt(little, width, value < 0, value)
}

// PackFloat emits an IEEE-754 binary32 or binary64 value.
func PackFloat(little bool, width int, value float64) ([]byte, error) {
	switch width {
	case 4:
		return packRaw(little, 4, uint64(math.Float32bits(float32(value)))), nil
	case 8:
		return packRaw(little, 8, math.Float64bits(value)), nil
	}
	return nil, fmt.Errorf("invalid float width %d", width)
}

func checkPackRange(width int, signed bool, value int64) error {
	bits := uint(width * 8)
	if signed {
		lo := int64(-1) << (bits - 1)
		hi := int64(1)<<(bits-1) - 1
		if value < lo || value > hi {
			return fmt.Errorf("signed %d-bit value must be between %d and %d: %d", bits, lo, hi, value)
		}
		return nil
	}
	// A 64-bit value above the int64 range (0x8000000000000000 and up)
	// arrives as its two's-complement bit pattern, so at width 8 a
	// negative input is packed as that pattern rather than rejected.
	if value < 0 && width < 8 {
		return fmt.Errorf("unsigned %d-bit value must not be negative: %d", bits, value)
	}
	if width < 8 {
		hi := int64(1)<<bits - 1
		if value > hi {
			return fmt.Errorf("unsigned %d-bit value must be between 0 and %d: %d", bits, hi, value)
		}
	}
	return nil
}

func packRaw(little bool, width int, bits uint64) []byte {
	var buf [8]byte
	if little {
		binary.LittleEndian.PutUint64(buf[:], bits)
		return append([]byte(nil), buf[:width]...)
	}
	binary.BigEndian.PutUint64(buf[:], bits)
	return append([]byte(nil), buf[8-width:]...)
}

// PutWord appends a 32-bit instruction in little-endian order (RISC-V
// instruction streams are always little-endian).
func PutWord(dst []byte, code uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], code)
	return append(dst, buf[:]...)
}

// PutHalf appends a 16-bit compressed instruction in little-endian
// order.
func PutHalf(dst []byte, code uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], code)
	return append(dst, buf[:]...)
}
