package actionlib

import (
	"bytes"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/team-rocos/rosgo/ros"
)

// GoalIDLen is the size of a goal id on the wire.
const GoalIDLen = 16

// GoalID uniquely identifies a goal for its lifetime.
type GoalID [GoalIDLen]byte

// NewGoalID returns a random (version 4 UUID) goal id.
func NewGoalID() GoalID {
	return GoalID(uuid.New())
}

// GoalIDFromBytes copies a 16 byte slice into a GoalID.
func GoalIDFromBytes(b []byte) (GoalID, error) {
	var id GoalID
	if len(b) != GoalIDLen {
		return id, errors.Wrapf(ErrInvalidArgument, "goal id must be %d bytes, got %d", GoalIDLen, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ParseGoalID parses the hex form produced by String.
func ParseGoalID(s string) (GoalID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return GoalID{}, errors.Wrapf(ErrInvalidArgument, "goal id %q is not hex", s)
	}
	return GoalIDFromBytes(b)
}

func (id GoalID) IsZero() bool {
	return id == GoalID{}
}

func (id GoalID) String() string {
	return hex.EncodeToString(id[:])
}

// GoalInfo is the wire identity of a goal: its id and the time it was accepted.
type GoalInfo struct {
	GoalID GoalID
	Stamp  ros.Time
}

var _ ros.Message = &GoalInfo{}

func (g *GoalInfo) Serialize(buf *bytes.Buffer) error {
	var enc ros.LEByteEncoder
	enc.EncodeFixedBytes(buf, g.GoalID[:])
	enc.EncodeTime(buf, g.Stamp)
	return nil
}

func (g *GoalInfo) Deserialize(buf *bytes.Reader) error {
	var dec ros.LEByteDecoder
	var info GoalInfo
	if err := dec.DecodeFixedBytes(buf, info.GoalID[:]); err != nil {
		return errors.Wrap(err, "goal_id")
	}
	stamp, err := dec.DecodeTime(buf)
	if err != nil {
		return errors.Wrap(err, "stamp")
	}
	info.Stamp = stamp
	*g = info
	return nil
}

// GoalState is the lifecycle stage of a goal. The values are the status codes carried on the
// status topic.
type GoalState uint8

const (
	GoalStateUnknown GoalState = iota
	GoalStateAccepted
	GoalStateExecuting
	GoalStateCanceling
	GoalStateSucceeded
	GoalStateCanceled
	GoalStateAborted
)

func (s GoalState) String() string {
	switch s {
	case GoalStateAccepted:
		return "ACCEPTED"
	case GoalStateExecuting:
		return "EXECUTING"
	case GoalStateCanceling:
		return "CANCELING"
	case GoalStateSucceeded:
		return "SUCCEEDED"
	case GoalStateCanceled:
		return "CANCELED"
	case GoalStateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no transition leaves s.
func (s GoalState) IsTerminal() bool {
	return s == GoalStateSucceeded || s == GoalStateCanceled || s == GoalStateAborted
}

// IsActive reports whether s is ACCEPTED, EXECUTING or CANCELING.
func (s GoalState) IsActive() bool {
	return s == GoalStateAccepted || s == GoalStateExecuting || s == GoalStateCanceling
}

func parseGoalState(name string) GoalState {
	for s := GoalStateAccepted; s <= GoalStateAborted; s++ {
		if s.String() == name {
			return s
		}
	}
	return GoalStateUnknown
}

// GoalEvent drives a goal from one state to the next.
type GoalEvent uint8

const (
	GoalEventExecute GoalEvent = iota + 1
	GoalEventCancelGoal
	GoalEventSucceed
	GoalEventAbort
	GoalEventCanceled
)

func (e GoalEvent) String() string {
	switch e {
	case GoalEventExecute:
		return "EXECUTE"
	case GoalEventCancelGoal:
		return "CANCEL_GOAL"
	case GoalEventSucceed:
		return "SUCCEED"
	case GoalEventAbort:
		return "ABORT"
	case GoalEventCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// GoalStatus pairs a goal with its state at the time a snapshot was taken.
type GoalStatus struct {
	GoalInfo GoalInfo
	Status   GoalState
}

// GoalStatusArray is a snapshot of every goal tracked by a server. It shares no state with the
// server once built.
type GoalStatusArray struct {
	StatusList []GoalStatus
}

var _ ros.Message = &GoalStatusArray{}

// goalStatusWireSize is id + sec + nanosec + status.
const goalStatusWireSize = GoalIDLen + 8 + 4 + 1

func (a *GoalStatusArray) Serialize(buf *bytes.Buffer) error {
	var enc ros.LEByteEncoder
	enc.EncodeArrayLength(buf, len(a.StatusList))
	for i := range a.StatusList {
		if err := a.StatusList[i].GoalInfo.Serialize(buf); err != nil {
			return err
		}
		enc.EncodeUint8(buf, uint8(a.StatusList[i].Status))
	}
	return nil
}

func (a *GoalStatusArray) Deserialize(buf *bytes.Reader) error {
	var dec ros.LEByteDecoder
	size, err := dec.DecodeArrayLength(buf)
	if err != nil {
		return errors.Wrap(err, "status_list")
	}
	if size*goalStatusWireSize > buf.Len() {
		return errors.Errorf("status_list of %d entries exceeds the %d bytes remaining", size, buf.Len())
	}
	list := make([]GoalStatus, size)
	for i := range list {
		if err := list[i].GoalInfo.Deserialize(buf); err != nil {
			return errors.Wrapf(err, "status_list[%d]", i)
		}
		status, err := dec.DecodeUint8(buf)
		if err != nil {
			return errors.Wrapf(err, "status_list[%d].status", i)
		}
		list[i].Status = GoalState(status)
	}
	a.StatusList = list
	return nil
}
