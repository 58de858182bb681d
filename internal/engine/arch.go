package engine

import (
	"fmt"
	"strings"
)

// Endian is the byte order a target uses to encode multi-byte literals,
// in particular the discriminant of a tagged union.
type Endian int

const (
	EndianUnknown Endian = iota
	LittleEndian
	BigEndian
)

func (e Endian) String() string {
	switch e {
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	default:
		return "unknown"
	}
}

// ParseEndian parses a target endianness string (as reported by a
// layout oracle's configuration, e.g. "little" for x86_64/aarch64).
func ParseEndian(s string) (Endian, error) {
	switch strings.ToLower(s) {
	case "little", "le", "little-endian":
		return LittleEndian, nil
	case "big", "be", "big-endian":
		return BigEndian, nil
	default:
		return EndianUnknown, fmt.Errorf("unsupported endianness: %s (supported: little, big)", s)
	}
}

// PutUint writes the low-order width bytes of value into dst, in e's
// byte order. dst must have length >= width. This is how a tagged
// union's discriminant literal is widened into the bytes a ByteRange
// instruction stream matches against.
func (e Endian) PutUint(dst []byte, value uint64, width int) {
	switch e {
	case BigEndian:
		for i := 0; i < width; i++ {
			dst[width-1-i] = byte(value >> (8 * i))
		}
	default: // little-endian is the default for every target in this package's scope
		for i := 0; i < width; i++ {
			dst[i] = byte(value >> (8 * i))
		}
	}
}

// Target describes the subset of a compilation target a layout
// automaton needs: its pointer width/alignment and its endianness.
// Everything else (instruction selection, ABI, calling convention) is
// out of scope for a layout checker.
type Target struct {
	Endian        Endian
	PointerSize   int // bytes
	PointerAlign  int // bytes
	MaxFieldAlign int // 0 means unbounded
}

// String returns a human-readable target string.
func (t Target) String() string {
	return fmt.Sprintf("ptr(%d/%d)-%s", t.PointerSize, t.PointerAlign, t.Endian)
}
