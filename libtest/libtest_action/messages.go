package libtest_action

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/team-rocos/rosgo/actionlib"
	"github.com/team-rocos/rosgo/ros"
)

// Fibonacci action messages, encoded with the little-endian codec.

type sendGoalRequest struct {
	GoalID actionlib.GoalID
	Order  int32
}

type sendGoalResponse struct {
	Accepted bool
	Stamp    ros.Time
}

type getResultRequest struct {
	GoalID actionlib.GoalID
}

type getResultResponse struct {
	Status   actionlib.GoalState
	Sequence []int32
}

type feedbackMessage struct {
	GoalID   actionlib.GoalID
	Sequence []int32
}

var (
	_ ros.Message = &sendGoalRequest{}
	_ ros.Message = &sendGoalResponse{}
	_ ros.Message = &getResultRequest{}
	_ ros.Message = &getResultResponse{}
	_ ros.Message = &feedbackMessage{}
)

func encodeSequence(buf *bytes.Buffer, seq []int32) {
	var enc ros.LEByteEncoder
	enc.EncodeArrayLength(buf, len(seq))
	for _, v := range seq {
		enc.EncodeInt32(buf, v)
	}
}

func decodeSequence(buf *bytes.Reader) ([]int32, error) {
	var dec ros.LEByteDecoder
	size, err := dec.DecodeArrayLength(buf)
	if err != nil {
		return nil, err
	}
	if size*4 > buf.Len() {
		return nil, errors.Errorf("sequence of %d entries exceeds the %d bytes remaining", size, buf.Len())
	}
	seq := make([]int32, size)
	for i := range seq {
		if seq[i], err = dec.DecodeInt32(buf); err != nil {
			return nil, err
		}
	}
	return seq, nil
}

func (m *sendGoalRequest) Serialize(buf *bytes.Buffer) error {
	var enc ros.LEByteEncoder
	enc.EncodeFixedBytes(buf, m.GoalID[:])
	enc.EncodeInt32(buf, m.Order)
	return nil
}

func (m *sendGoalRequest) Deserialize(buf *bytes.Reader) (err error) {
	var dec ros.LEByteDecoder
	if err = dec.DecodeFixedBytes(buf, m.GoalID[:]); err != nil {
		return errors.Wrap(err, "goal_id")
	}
	m.Order, err = dec.DecodeInt32(buf)
	return errors.Wrap(err, "order")
}

func (m *sendGoalResponse) Serialize(buf *bytes.Buffer) error {
	var enc ros.LEByteEncoder
	enc.EncodeBool(buf, m.Accepted)
	enc.EncodeTime(buf, m.Stamp)
	return nil
}

func (m *sendGoalResponse) Deserialize(buf *bytes.Reader) (err error) {
	var dec ros.LEByteDecoder
	if m.Accepted, err = dec.DecodeBool(buf); err != nil {
		return errors.Wrap(err, "accepted")
	}
	m.Stamp, err = dec.DecodeTime(buf)
	return errors.Wrap(err, "stamp")
}

func (m *getResultRequest) Serialize(buf *bytes.Buffer) error {
	var enc ros.LEByteEncoder
	enc.EncodeFixedBytes(buf, m.GoalID[:])
	return nil
}

func (m *getResultRequest) Deserialize(buf *bytes.Reader) error {
	var dec ros.LEByteDecoder
	return errors.Wrap(dec.DecodeFixedBytes(buf, m.GoalID[:]), "goal_id")
}

func (m *getResultResponse) Serialize(buf *bytes.Buffer) error {
	var enc ros.LEByteEncoder
	enc.EncodeUint8(buf, uint8(m.Status))
	encodeSequence(buf, m.Sequence)
	return nil
}

func (m *getResultResponse) Deserialize(buf *bytes.Reader) error {
	var dec ros.LEByteDecoder
	status, err := dec.DecodeUint8(buf)
	if err != nil {
		return errors.Wrap(err, "status")
	}
	m.Status = actionlib.GoalState(status)
	m.Sequence, err = decodeSequence(buf)
	return errors.Wrap(err, "sequence")
}

func (m *feedbackMessage) Serialize(buf *bytes.Buffer) error {
	var enc ros.LEByteEncoder
	enc.EncodeFixedBytes(buf, m.GoalID[:])
	encodeSequence(buf, m.Sequence)
	return nil
}

func (m *feedbackMessage) Deserialize(buf *bytes.Reader) (err error) {
	var dec ros.LEByteDecoder
	if err = dec.DecodeFixedBytes(buf, m.GoalID[:]); err != nil {
		return errors.Wrap(err, "goal_id")
	}
	m.Sequence, err = decodeSequence(buf)
	return errors.Wrap(err, "sequence")
}
