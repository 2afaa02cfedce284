package actionlib

import (
	"strconv"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"

	"github.com/team-rocos/rosgo/ros"
)

// JSON forms of the status snapshot, used by diagnostics and bridges:
//
//	{"status_list":[{"goal_info":{"goal_id":"<hex>","stamp":{"sec":1,"nanosec":2}},"status":1}]}

func appendGoalInfoJSON(buf []byte, g GoalInfo) []byte {
	buf = append(buf, `{"goal_id":`...)
	buf = strconv.AppendQuote(buf, g.GoalID.String())
	buf = append(buf, `,"stamp":{"sec":`...)
	buf = strconv.AppendInt(buf, g.Stamp.Sec, 10)
	buf = append(buf, `,"nanosec":`...)
	buf = strconv.AppendUint(buf, uint64(g.Stamp.NSec), 10)
	buf = append(buf, `}}`...)
	return buf
}

// MarshalJSON encodes the goal info with a hex goal id.
func (g GoalInfo) MarshalJSON() ([]byte, error) {
	return appendGoalInfoJSON(make([]byte, 0, 96), g), nil
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (g *GoalInfo) UnmarshalJSON(buf []byte) error {
	if g == nil {
		return errors.New("nil pointer to GoalInfo")
	}
	var info GoalInfo
	err := jsonparser.ObjectEach(buf, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		switch string(key) {
		case "goal_id":
			if dataType != jsonparser.String {
				return errors.New("goal_id: expected string")
			}
			id, err := ParseGoalID(string(value))
			if err != nil {
				return errors.Wrap(err, "goal_id")
			}
			info.GoalID = id
		case "stamp":
			if dataType != jsonparser.Object {
				return errors.New("stamp: expected object")
			}
			stamp, err := unmarshalStampJSON(value)
			if err != nil {
				return errors.Wrap(err, "stamp")
			}
			info.Stamp = stamp
		default:
			return errors.New("Field Unknown: " + string(key))
		}
		return nil
	})
	if err != nil {
		return err
	}
	*g = info
	return nil
}

func unmarshalStampJSON(buf []byte) (ros.Time, error) {
	var stamp ros.Time
	sec, err := jsonparser.GetInt(buf, "sec")
	if err != nil {
		return stamp, errors.Wrap(err, "sec")
	}
	nsec, err := jsonparser.GetInt(buf, "nanosec")
	if err != nil {
		return stamp, errors.Wrap(err, "nanosec")
	}
	if nsec < 0 || nsec > 0xffffffff {
		return stamp, errors.Errorf("nanosec %d out of range", nsec)
	}
	stamp.Sec = sec
	stamp.NSec = uint32(nsec)
	return stamp, nil
}

// MarshalJSON encodes the snapshot. Status codes are numeric as on the wire.
func (a GoalStatusArray) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 16+len(a.StatusList)*112)
	buf = append(buf, `{"status_list":[`...)
	for i, s := range a.StatusList {
		if i > 0 {
			buf = append(buf, byte(','))
		}
		buf = append(buf, `{"goal_info":`...)
		buf = appendGoalInfoJSON(buf, s.GoalInfo)
		buf = append(buf, `,"status":`...)
		buf = strconv.AppendUint(buf, uint64(s.Status), 10)
		buf = append(buf, byte('}'))
	}
	buf = append(buf, `]}`...)
	return buf, nil
}

// UnmarshalJSON decodes the form produced by MarshalJSON.
func (a *GoalStatusArray) UnmarshalJSON(buf []byte) error {
	if a == nil {
		return errors.New("nil pointer to GoalStatusArray")
	}
	list, _, _, err := jsonparser.Get(buf, "status_list")
	if err != nil {
		return errors.Wrap(err, "status_list")
	}

	statusList := []GoalStatus{}
	var elemErr error
	_, err = jsonparser.ArrayEach(list, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if elemErr != nil {
			return
		}
		if dataType != jsonparser.Object {
			elemErr = errors.Errorf("status_list[%d]: expected object", len(statusList))
			return
		}
		var s GoalStatus
		info, _, _, err := jsonparser.Get(value, "goal_info")
		if err != nil {
			elemErr = errors.Wrapf(err, "status_list[%d].goal_info", len(statusList))
			return
		}
		if err := s.GoalInfo.UnmarshalJSON(info); err != nil {
			elemErr = errors.Wrapf(err, "status_list[%d].goal_info", len(statusList))
			return
		}
		status, err := jsonparser.GetInt(value, "status")
		if err != nil {
			elemErr = errors.Wrapf(err, "status_list[%d].status", len(statusList))
			return
		}
		if status < 0 || status > 0xff {
			elemErr = errors.Errorf("status_list[%d].status %d out of range", len(statusList), status)
			return
		}
		s.Status = GoalState(status)
		statusList = append(statusList, s)
	})
	if err != nil {
		return errors.Wrap(err, "status_list")
	}
	if elemErr != nil {
		return elemErr
	}
	a.StatusList = statusList
	return nil
}
