package ros

import "bytes"

// ByteDecoder is the interface message deserialization expects for decoding wire data.
type ByteDecoder interface {
	DecodeUint8Array(buf *bytes.Reader, size int) ([]uint8, error)
	DecodeFixedBytes(buf *bytes.Reader, dst []byte) error
	DecodeArrayLength(buf *bytes.Reader) (int, error)

	DecodeBool(buf *bytes.Reader) (bool, error)
	DecodeInt8(buf *bytes.Reader) (int8, error)
	DecodeUint8(buf *bytes.Reader) (uint8, error)
	DecodeInt32(buf *bytes.Reader) (int32, error)
	DecodeUint32(buf *bytes.Reader) (uint32, error)
	DecodeInt64(buf *bytes.Reader) (int64, error)
	DecodeUint64(buf *bytes.Reader) (uint64, error)
	DecodeString(buf *bytes.Reader) (string, error)
	DecodeTime(buf *bytes.Reader) (Time, error)
}

// ByteEncoder is the encoding counterpart of ByteDecoder.
type ByteEncoder interface {
	EncodeUint8Array(buf *bytes.Buffer, value []uint8)
	EncodeFixedBytes(buf *bytes.Buffer, value []byte)
	EncodeArrayLength(buf *bytes.Buffer, size int)

	EncodeBool(buf *bytes.Buffer, value bool)
	EncodeInt8(buf *bytes.Buffer, value int8)
	EncodeUint8(buf *bytes.Buffer, value uint8)
	EncodeInt32(buf *bytes.Buffer, value int32)
	EncodeUint32(buf *bytes.Buffer, value uint32)
	EncodeInt64(buf *bytes.Buffer, value int64)
	EncodeUint64(buf *bytes.Buffer, value uint64)
	EncodeString(buf *bytes.Buffer, value string)
	EncodeTime(buf *bytes.Buffer, value Time)
}
