// Package pine implements the kernel virtual machine the compiler targets:
// a homoiconic value model (blobs and lists), a small expression language,
// a self-describing expression codec, and a big-step evaluator.
package pine

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// Value is the sole runtime datum of the kernel VM: either a finite byte
// sequence (blob) or an ordered sequence of values (list).
type Value interface {
	valueNode()
}

// BlobValue is a finite byte sequence. Integers, characters, strings and
// names are all encoded as blobs.
type BlobValue struct {
	Bytes []byte
}

// ListValue is an ordered sequence of values.
type ListValue struct {
	Items []Value
}

func (*BlobValue) valueNode() {}
func (*ListValue) valueNode() {}

// EmptyList is the canonical empty list value, also used as the unit value.
var EmptyList = &ListValue{}

// Kernel booleans. Conditionals compare their condition against TrueValue.
var (
	TrueValue  Value = &BlobValue{Bytes: []byte{4}}
	FalseValue Value = &BlobValue{Bytes: []byte{2}}
)

const (
	intSignPositive = 4
	intSignNegative = 2
)

// Blob builds a blob value from raw bytes.
func Blob(b []byte) Value {
	return &BlobValue{Bytes: b}
}

// List builds a list value from items.
func List(items ...Value) Value {
	return &ListValue{Items: items}
}

// BoolValue maps a Go bool to the kernel boolean blobs.
func BoolValue(b bool) Value {
	if b {
		return TrueValue
	}
	return FalseValue
}

// ValueFromString encodes a name or tag as its UTF-8 bytes.
func ValueFromString(s string) Value {
	return &BlobValue{Bytes: []byte(s)}
}

// StringFromValue decodes a blob back into a string. Lists are rejected.
func StringFromValue(v Value) (string, error) {
	blob, ok := v.(*BlobValue)
	if !ok {
		return "", fmt.Errorf("expected a blob, got a list")
	}
	if !utf8.Valid(blob.Bytes) {
		return "", fmt.Errorf("blob is not valid UTF-8")
	}
	return string(blob.Bytes), nil
}

// ValueFromInt encodes an integer as a blob: a sign byte followed by the
// big-endian magnitude without leading zero bytes.
func ValueFromInt(n int64) Value {
	sign := byte(intSignPositive)
	mag := n
	if n < 0 {
		sign = intSignNegative
		mag = -n
	}
	var digits []byte
	if mag == 0 {
		digits = []byte{0}
	} else {
		for m := mag; m > 0; m >>= 8 {
			digits = append([]byte{byte(m & 0xff)}, digits...)
		}
	}
	return &BlobValue{Bytes: append([]byte{sign}, digits...)}
}

// IntFromValue decodes an integer blob produced by ValueFromInt.
func IntFromValue(v Value) (int64, error) {
	blob, ok := v.(*BlobValue)
	if !ok {
		return 0, fmt.Errorf("expected an integer blob, got a list")
	}
	if len(blob.Bytes) < 2 {
		return 0, fmt.Errorf("integer blob is too short (%d bytes)", len(blob.Bytes))
	}
	var negative bool
	switch blob.Bytes[0] {
	case intSignPositive:
	case intSignNegative:
		negative = true
	default:
		return 0, fmt.Errorf("invalid integer sign byte 0x%02x", blob.Bytes[0])
	}
	if len(blob.Bytes) > 9 {
		return 0, fmt.Errorf("integer blob exceeds 64 bits")
	}
	var mag int64
	for _, b := range blob.Bytes[1:] {
		mag = mag<<8 | int64(b)
	}
	if negative {
		mag = -mag
	}
	return mag, nil
}

// ValueFromChar encodes a character as the UTF-8 bytes of the rune.
func ValueFromChar(r rune) Value {
	buf := make([]byte, utf8.UTFMax)
	n := utf8.EncodeRune(buf, r)
	return &BlobValue{Bytes: buf[:n]}
}

// CharFromValue decodes a single-rune blob.
func CharFromValue(v Value) (rune, error) {
	blob, ok := v.(*BlobValue)
	if !ok {
		return 0, fmt.Errorf("expected a character blob, got a list")
	}
	r, size := utf8.DecodeRune(blob.Bytes)
	if r == utf8.RuneError || size != len(blob.Bytes) {
		return 0, fmt.Errorf("blob is not a single character")
	}
	return r, nil
}

// ValuesEqual reports structural equality of two values.
func ValuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case *BlobValue:
		bv, ok := b.(*BlobValue)
		return ok && bytes.Equal(av.Bytes, bv.Bytes)
	case *ListValue:
		bv, ok := b.(*ListValue)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !ValuesEqual(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// ListItems returns the items of a list value, or nil, false for a blob.
func ListItems(v Value) ([]Value, bool) {
	list, ok := v.(*ListValue)
	if !ok {
		return nil, false
	}
	return list.Items, true
}

// EmptyEvalContext is the environment a standalone program starts with.
func EmptyEvalContext() Value {
	return EmptyList
}

// DescribeValue renders a short structural summary, used in error messages.
func DescribeValue(v Value) string {
	switch val := v.(type) {
	case *BlobValue:
		if len(val.Bytes) <= 8 && utf8.Valid(val.Bytes) && isPrintable(val.Bytes) {
			return fmt.Sprintf("blob %q", string(val.Bytes))
		}
		return fmt.Sprintf("blob of %d bytes", len(val.Bytes))
	case *ListValue:
		return fmt.Sprintf("list of %d items", len(val.Items))
	}
	return "unknown value"
}

func isPrintable(b []byte) bool {
	for _, c := range string(b) {
		if c < 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}
