package actionlib

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/team-rocos/rosgo/ros"
)

// CancelRequest asks the server to cancel goals. How GoalInfo is matched:
//   - zero id and zero stamp: every non-terminal goal
//   - non-zero id: only that goal
//   - zero id and non-zero stamp: every non-terminal goal accepted at or before the stamp
type CancelRequest struct {
	GoalInfo GoalInfo
}

var _ ros.Message = &CancelRequest{}

// NewCancelAllRequest cancels every goal the server tracks.
func NewCancelAllRequest() CancelRequest {
	return CancelRequest{}
}

// NewCancelGoalRequest cancels a single goal.
func NewCancelGoalRequest(id GoalID) CancelRequest {
	return CancelRequest{GoalInfo: GoalInfo{GoalID: id}}
}

// NewCancelBeforeRequest cancels every goal accepted at or before stamp.
func NewCancelBeforeRequest(stamp ros.Time) CancelRequest {
	return CancelRequest{GoalInfo: GoalInfo{Stamp: stamp}}
}

func (r *CancelRequest) Serialize(buf *bytes.Buffer) error {
	return r.GoalInfo.Serialize(buf)
}

func (r *CancelRequest) Deserialize(buf *bytes.Reader) error {
	return errors.Wrap(r.GoalInfo.Deserialize(buf), "goal_info")
}

// matches reports whether a goal with the given info is selected by the request.
func (r CancelRequest) matches(info GoalInfo) bool {
	req := r.GoalInfo
	switch {
	case !req.GoalID.IsZero():
		return req.GoalID == info.GoalID
	case req.Stamp.IsZero():
		return true
	default:
		return info.Stamp.Cmp(req.Stamp) <= 0
	}
}

// CancelReturnCode summarises the outcome of a cancel request.
type CancelReturnCode int8

const (
	CancelErrorNone CancelReturnCode = iota
	CancelErrorRejected
	CancelErrorUnknownGoalID
	CancelErrorGoalTerminated
)

func (c CancelReturnCode) String() string {
	switch c {
	case CancelErrorNone:
		return "ERROR_NONE"
	case CancelErrorRejected:
		return "ERROR_REJECTED"
	case CancelErrorUnknownGoalID:
		return "ERROR_UNKNOWN_GOAL_ID"
	case CancelErrorGoalTerminated:
		return "ERROR_GOAL_TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// CancelResponse lists the goals that moved to CANCELING.
type CancelResponse struct {
	ReturnCode     CancelReturnCode
	GoalsCanceling []GoalInfo
}

var _ ros.Message = &CancelResponse{}

func (r *CancelResponse) Serialize(buf *bytes.Buffer) error {
	var enc ros.LEByteEncoder
	enc.EncodeInt8(buf, int8(r.ReturnCode))
	enc.EncodeArrayLength(buf, len(r.GoalsCanceling))
	for i := range r.GoalsCanceling {
		if err := r.GoalsCanceling[i].Serialize(buf); err != nil {
			return err
		}
	}
	return nil
}

func (r *CancelResponse) Deserialize(buf *bytes.Reader) error {
	var dec ros.LEByteDecoder
	code, err := dec.DecodeInt8(buf)
	if err != nil {
		return errors.Wrap(err, "return_code")
	}
	size, err := dec.DecodeArrayLength(buf)
	if err != nil {
		return errors.Wrap(err, "goals_canceling")
	}
	if size*(GoalIDLen+12) > buf.Len() {
		return errors.Errorf("goals_canceling of %d entries exceeds the %d bytes remaining", size, buf.Len())
	}
	goals := make([]GoalInfo, size)
	for i := range goals {
		if err := goals[i].Deserialize(buf); err != nil {
			return errors.Wrapf(err, "goals_canceling[%d]", i)
		}
	}
	r.ReturnCode = CancelReturnCode(code)
	r.GoalsCanceling = goals
	return nil
}

// cancelRejectFunc observes a matched goal whose cancel-goal transition was refused.
type cancelRejectFunc func(info GoalInfo, state GoalState)

// processCancel resolves req against the registry and moves every matched, cancelable goal to
// CANCELING. Goals whose transition is refused are left out of the response.
func (r *goalRegistry) processCancel(req CancelRequest, onReject cancelRejectFunc) CancelResponse {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	res := CancelResponse{GoalsCanceling: []GoalInfo{}}
	for _, gh := range r.order {
		if !req.matches(gh.info) || gh.sm.state().IsTerminal() {
			continue
		}
		if err := r.transitionLocked(gh, GoalEventCancelGoal); err != nil {
			if onReject != nil {
				onReject(gh.info, gh.sm.state())
			}
			continue
		}
		res.GoalsCanceling = append(res.GoalsCanceling, gh.info)
	}

	if len(res.GoalsCanceling) > 0 {
		res.ReturnCode = CancelErrorNone
		return res
	}
	id := req.GoalInfo.GoalID
	if !id.IsZero() {
		gh, ok := r.index[id]
		switch {
		case !ok:
			res.ReturnCode = CancelErrorUnknownGoalID
		case gh.sm.state().IsTerminal():
			res.ReturnCode = CancelErrorGoalTerminated
		default:
			res.ReturnCode = CancelErrorRejected
		}
		return res
	}
	res.ReturnCode = CancelErrorRejected
	return res
}
