// =============================
// File: internal/ixcodec/layout.go
// =============================
package ixcodec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// A Layout is a declarative description of one instruction variant's byte
// format: a one-byte variant discriminator, a sequence of fixed-width
// little-endian unsigned words, and an optional fixed-length raw tail.
// Field order and width are defined once here and drive both the encoder
// and the decoder, so every variant round-trips.
type Layout struct {
	Variant byte
	Words   []Word
	TailLen int
}

// Word is one fixed-width little-endian unsigned field.
type Word struct {
	Name  string
	Width int // 1, 2, 4 or 8 bytes
}

// Size returns the exact encoded length of the variant. The remote
// deserializer has no tolerance for padding or truncation, so every encoded
// buffer must be exactly this long.
func (l *Layout) Size() int {
	n := 1 + l.TailLen
	for _, w := range l.Words {
		n += w.Width
	}
	return n
}

// maxForWidth returns the largest value a word of the given width can hold.
func maxForWidth(width int) uint64 {
	if width >= 8 {
		return math.MaxUint64
	}
	return (uint64(1) << (8 * width)) - 1
}

// Encode serializes the given word values and tail into the layout's exact
// byte format. Values exceeding their field width are clamped to the type
// maximum rather than silently wrapped.
func (l *Layout) Encode(words []uint64, tail []byte) ([]byte, error) {
	if len(words) != len(l.Words) {
		return nil, fmt.Errorf("variant 0x%02x expects %d words, got %d", l.Variant, len(l.Words), len(words))
	}
	if len(tail) != l.TailLen {
		return nil, fmt.Errorf("variant 0x%02x expects %d tail bytes, got %d", l.Variant, l.TailLen, len(tail))
	}

	buf := make([]byte, l.Size())
	buf[0] = l.Variant
	pos := 1

	for i, spec := range l.Words {
		v := words[i]
		if maxVal := maxForWidth(spec.Width); v > maxVal {
			v = maxVal
		}
		switch spec.Width {
		case 1:
			buf[pos] = byte(v)
		case 2:
			binary.LittleEndian.PutUint16(buf[pos:], uint16(v))
		case 4:
			binary.LittleEndian.PutUint32(buf[pos:], uint32(v))
		case 8:
			binary.LittleEndian.PutUint64(buf[pos:], v)
		default:
			return nil, fmt.Errorf("unsupported field width %d for %q", spec.Width, spec.Name)
		}
		pos += spec.Width
	}

	copy(buf[pos:], tail)
	return buf, nil
}

// Decode parses a buffer produced by Encode, returning the word values in
// layout order plus the raw tail. The buffer must match the declared length
// and variant byte exactly.
func (l *Layout) Decode(buf []byte) ([]uint64, []byte, error) {
	if len(buf) != l.Size() {
		return nil, nil, fmt.Errorf("variant 0x%02x expects %d bytes, got %d", l.Variant, l.Size(), len(buf))
	}
	if buf[0] != l.Variant {
		return nil, nil, fmt.Errorf("variant mismatch: expected 0x%02x, got 0x%02x", l.Variant, buf[0])
	}

	words := make([]uint64, len(l.Words))
	pos := 1
	for i, spec := range l.Words {
		switch spec.Width {
		case 1:
			words[i] = uint64(buf[pos])
		case 2:
			words[i] = uint64(binary.LittleEndian.Uint16(buf[pos:]))
		case 4:
			words[i] = uint64(binary.LittleEndian.Uint32(buf[pos:]))
		case 8:
			words[i] = binary.LittleEndian.Uint64(buf[pos:])
		default:
			return nil, nil, fmt.Errorf("unsupported field width %d for %q", spec.Width, spec.Name)
		}
		pos += spec.Width
	}

	var tail []byte
	if l.TailLen > 0 {
		tail = make([]byte, l.TailLen)
		copy(tail, buf[pos:])
	}
	return words, tail, nil
}

// ClampFloatToU64 converts a float in human units scaled to smallest units
// into a uint64, clamping to the type maximum instead of wrapping. Negative
// and NaN inputs clamp to zero.
func ClampFloatToU64(v float64) uint64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(v)
}
