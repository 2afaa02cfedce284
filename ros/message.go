package ros

import (
	"bytes"
	"encoding/hex"
	"reflect"
	"strconv"
)

// Message is anything that can travel over a service or topic.
type Message interface {
	Serialize(buf *bytes.Buffer) error
	Deserialize(buf *bytes.Reader) error
}

// IsNilMessage reports whether m is nil or an interface holding a nil pointer.
func IsNilMessage(m Message) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// RawMessage is an opaque payload, carried as a length-prefixed byte string.
type RawMessage struct {
	Data []byte
}

var _ Message = &RawMessage{}

func (m *RawMessage) Serialize(buf *bytes.Buffer) error {
	var enc LEByteEncoder
	enc.EncodeUint8Array(buf, m.Data)
	return nil
}

func (m *RawMessage) Deserialize(buf *bytes.Reader) error {
	var dec LEByteDecoder
	size, err := dec.DecodeArrayLength(buf)
	if err != nil {
		return err
	}
	data, err := dec.DecodeUint8Array(buf, size)
	if err != nil {
		return err
	}
	m.Data = data
	return nil
}

// RequestID correlates a service request with its response.
type RequestID struct {
	WriterGUID     [16]byte
	SequenceNumber int64
}

func (id RequestID) String() string {
	return hex.EncodeToString(id.WriterGUID[:]) + "#" + strconv.FormatInt(id.SequenceNumber, 10)
}
