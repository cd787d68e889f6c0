package pine

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Binary value serialization, used to persist an environment value between
// sessions. The format is length-prefixed and self-delimiting:
//
//	0x01 <uvarint byteCount> <bytes>   blob
//	0x02 <uvarint itemCount> items...  list
const (
	serialBlob = 0x01
	serialList = 0x02
)

// WriteValue serializes a value to w.
func WriteValue(w io.Writer, v Value) error {
	var scratch [binary.MaxVarintLen64]byte
	switch val := v.(type) {
	case *BlobValue:
		if _, err := w.Write([]byte{serialBlob}); err != nil {
			return err
		}
		n := binary.PutUvarint(scratch[:], uint64(len(val.Bytes)))
		if _, err := w.Write(scratch[:n]); err != nil {
			return err
		}
		_, err := w.Write(val.Bytes)
		return err
	case *ListValue:
		if _, err := w.Write([]byte{serialList}); err != nil {
			return err
		}
		n := binary.PutUvarint(scratch[:], uint64(len(val.Items)))
		if _, err := w.Write(scratch[:n]); err != nil {
			return err
		}
		for _, item := range val.Items {
			if err := WriteValue(w, item); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("serialize: unknown value type %T", v)
}

// ReadValue deserializes a value written by WriteValue.
func ReadValue(r io.ByteReader) (Value, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	switch kind {
	case serialBlob:
		b := make([]byte, count)
		for i := range b {
			c, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			b[i] = c
		}
		return &BlobValue{Bytes: b}, nil
	case serialList:
		items := make([]Value, count)
		for i := range items {
			item, err := ReadValue(r)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return &ListValue{Items: items}, nil
	}
	return nil, fmt.Errorf("serialize: unknown value kind 0x%02x", kind)
}
