package ros

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// LEByteDecoder is a little-endian byte decoder, implements the ByteDecoder interface.
type LEByteDecoder struct{}

var _ ByteDecoder = LEByteDecoder{}

// LEByteEncoder is a little-endian byte encoder, implements the ByteEncoder interface.
type LEByteEncoder struct{}

var _ ByteEncoder = LEByteEncoder{}

// Array decoders.

// DecodeUint8Array decodes size raw bytes.
func (d LEByteDecoder) DecodeUint8Array(buf *bytes.Reader, size int) ([]uint8, error) {
	if size < 0 || size > buf.Len() {
		return nil, errors.Errorf("array of %d bytes exceeds the %d remaining in buffer", size, buf.Len())
	}
	slice := make([]uint8, size)
	n, err := buf.Read(slice)
	if size > 0 && (n != size || err != nil) {
		return slice, errors.New("Did not read entire uint8 buffer")
	}
	return slice, nil
}

// DecodeFixedBytes fills dst completely from buf.
func (d LEByteDecoder) DecodeFixedBytes(buf *bytes.Reader, dst []byte) error {
	if n, err := buf.Read(dst); n != len(dst) || err != nil {
		return errors.Errorf("Could not read %d bytes from buffer", len(dst))
	}
	return nil
}

// DecodeArrayLength decodes the uint32 length prefix of a dynamic array.
func (d LEByteDecoder) DecodeArrayLength(buf *bytes.Reader) (int, error) {
	size, err := d.DecodeUint32(buf)
	if err != nil {
		return 0, errors.Wrap(err, "array length")
	}
	return int(size), nil
}

// Singular decoders.

// DecodeBool decodes a boolean.
func (d LEByteDecoder) DecodeBool(buf *bytes.Reader) (bool, error) {
	raw, err := d.DecodeUint8(buf)
	return (raw != 0x00), err
}

// DecodeInt8 decodes a int8.
func (d LEByteDecoder) DecodeInt8(buf *bytes.Reader) (int8, error) {
	raw, err := d.DecodeUint8(buf)
	return int8(raw), err
}

// DecodeUint8 decodes a uint8.
func (d LEByteDecoder) DecodeUint8(buf *bytes.Reader) (uint8, error) {
	var arr [1]byte

	if n, err := buf.Read(arr[:]); n != 1 || err != nil {
		return 0, errors.New("Could not read 1 byte from buffer")
	}

	return arr[0], nil
}

// DecodeInt32 decodes a int32.
func (d LEByteDecoder) DecodeInt32(buf *bytes.Reader) (int32, error) {
	raw, err := d.DecodeUint32(buf)
	return int32(raw), err
}

// DecodeUint32 decodes a uint32.
func (d LEByteDecoder) DecodeUint32(buf *bytes.Reader) (uint32, error) {
	var arr [4]byte

	if n, err := buf.Read(arr[:]); n != 4 || err != nil {
		return 0, errors.New("Could not read 4 bytes from buffer")
	}

	return binary.LittleEndian.Uint32(arr[:]), nil
}

// DecodeInt64 decodes a int64.
func (d LEByteDecoder) DecodeInt64(buf *bytes.Reader) (int64, error) {
	raw, err := d.DecodeUint64(buf)
	return int64(raw), err
}

// DecodeUint64 decodes a uint64.
func (d LEByteDecoder) DecodeUint64(buf *bytes.Reader) (uint64, error) {
	var arr [8]byte

	if n, err := buf.Read(arr[:]); n != 8 || err != nil {
		return 0, errors.New("Could not read 8 bytes from buffer")
	}

	return binary.LittleEndian.Uint64(arr[:]), nil
}

// DecodeString decodes a string.
func (d LEByteDecoder) DecodeString(buf *bytes.Reader) (string, error) {
	// String format is: [size|string] where size is a u32.
	size, err := d.DecodeArrayLength(buf)
	if err != nil {
		return "", err
	}
	value, err := d.DecodeUint8Array(buf, size)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// DecodeTime decodes a Time struct.
func (d LEByteDecoder) DecodeTime(buf *bytes.Reader) (Time, error) {
	var err error
	var value Time

	// Time format is: [sec|nanosec] where sec is an int64 and nanosec a uint32.
	if value.Sec, err = d.DecodeInt64(buf); err != nil {
		return Time{}, err
	}
	if value.NSec, err = d.DecodeUint32(buf); err != nil {
		return Time{}, err
	}

	return value, nil
}

// Encoders.

// EncodeUint8Array writes a length-prefixed byte array.
func (e LEByteEncoder) EncodeUint8Array(buf *bytes.Buffer, value []uint8) {
	e.EncodeArrayLength(buf, len(value))
	buf.Write(value)
}

// EncodeFixedBytes writes value with no length prefix.
func (e LEByteEncoder) EncodeFixedBytes(buf *bytes.Buffer, value []byte) {
	buf.Write(value)
}

func (e LEByteEncoder) EncodeArrayLength(buf *bytes.Buffer, size int) {
	e.EncodeUint32(buf, uint32(size))
}

func (e LEByteEncoder) EncodeBool(buf *bytes.Buffer, value bool) {
	if value {
		buf.WriteByte(0x01)
		return
	}
	buf.WriteByte(0x00)
}

func (e LEByteEncoder) EncodeInt8(buf *bytes.Buffer, value int8) {
	buf.WriteByte(byte(value))
}

func (e LEByteEncoder) EncodeUint8(buf *bytes.Buffer, value uint8) {
	buf.WriteByte(value)
}

func (e LEByteEncoder) EncodeInt32(buf *bytes.Buffer, value int32) {
	e.EncodeUint32(buf, uint32(value))
}

func (e LEByteEncoder) EncodeUint32(buf *bytes.Buffer, value uint32) {
	var arr [4]byte
	binary.LittleEndian.PutUint32(arr[:], value)
	buf.Write(arr[:])
}

func (e LEByteEncoder) EncodeInt64(buf *bytes.Buffer, value int64) {
	e.EncodeUint64(buf, uint64(value))
}

func (e LEByteEncoder) EncodeUint64(buf *bytes.Buffer, value uint64) {
	var arr [8]byte
	binary.LittleEndian.PutUint64(arr[:], value)
	buf.Write(arr[:])
}

func (e LEByteEncoder) EncodeString(buf *bytes.Buffer, value string) {
	e.EncodeArrayLength(buf, len(value))
	buf.WriteString(value)
}

// EncodeTime writes [sec|nanosec].
func (e LEByteEncoder) EncodeTime(buf *bytes.Buffer, value Time) {
	e.EncodeInt64(buf, value.Sec)
	e.EncodeUint32(buf, value.NSec)
}
