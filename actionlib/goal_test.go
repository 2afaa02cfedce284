package actionlib

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"

	"github.com/team-rocos/rosgo/ros"
)

func TestGoalID(t *testing.T) {
	id := ascendingGoalID()
	if id.String() != "000102030405060708090a0b0c0d0e0f" {
		t.Fatalf("unexpected hex form %s", id)
	}
	parsed, err := ParseGoalID(id.String())
	if err != nil || parsed != id {
		t.Fatalf("expected %s, got %s (%v)", id, parsed, err)
	}
	if _, err := ParseGoalID("zz"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := GoalIDFromBytes([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	a, b := NewGoalID(), NewGoalID()
	if a.IsZero() || a == b {
		t.Fatalf("expected distinct random ids, got %s and %s", a, b)
	}
	if !(GoalID{}).IsZero() {
		t.Fatal("zero id should report IsZero")
	}
}

func TestGoalStatusArray_WireLayout(t *testing.T) {
	status := GoalStatusArray{StatusList: []GoalStatus{
		{GoalInfo: GoalInfo{GoalID: ascendingGoalID(), Stamp: ros.NewTime(1, 2)}, Status: GoalStateCanceling},
	}}

	var buf bytes.Buffer
	if err := status.Serialize(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 4+goalStatusWireSize {
		t.Fatalf("expected %d bytes, got %d", 4+goalStatusWireSize, buf.Len())
	}

	b := buf.Bytes()
	if !bytes.Equal(b[:4], []byte{1, 0, 0, 0}) {
		t.Fatalf("unexpected count prefix %v", b[:4])
	}
	id := ascendingGoalID()
	if !bytes.Equal(b[4:20], id[:]) {
		t.Fatalf("unexpected goal id bytes %v", b[4:20])
	}
	if !bytes.Equal(b[20:28], []byte{1, 0, 0, 0, 0, 0, 0, 0}) || !bytes.Equal(b[28:32], []byte{2, 0, 0, 0}) {
		t.Fatalf("unexpected stamp bytes %v", b[20:32])
	}
	if b[32] != 3 {
		t.Fatalf("expected status byte 3, got %d", b[32])
	}

	var decoded GoalStatusArray
	if err := decoded.Deserialize(bytes.NewReader(b)); err != nil {
		t.Fatal(err)
	}
	if len(decoded.StatusList) != 1 || decoded.StatusList[0] != status.StatusList[0] {
		t.Fatalf("expected %v, got %v", status, decoded)
	}
}

func TestGoalStatusArray_TruncatedInput(t *testing.T) {
	var buf bytes.Buffer
	var enc ros.LEByteEncoder
	enc.EncodeArrayLength(&buf, 2)
	buf.Write(make([]byte, goalStatusWireSize))

	var decoded GoalStatusArray
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err == nil {
		t.Fatal("expected error for a count larger than the payload")
	}
}

func TestCancelResponse_Wire(t *testing.T) {
	res := CancelResponse{
		ReturnCode:     CancelErrorGoalTerminated,
		GoalsCanceling: []GoalInfo{{GoalID: goalIDWithByte(4), Stamp: ros.NewTime(9, 9)}},
	}
	var buf bytes.Buffer
	if err := res.Serialize(&buf); err != nil {
		t.Fatal(err)
	}
	var decoded CancelResponse
	if err := decoded.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatal(err)
	}
	if decoded.ReturnCode != res.ReturnCode || len(decoded.GoalsCanceling) != 1 || decoded.GoalsCanceling[0] != res.GoalsCanceling[0] {
		t.Fatalf("expected %v, got %v", res, decoded)
	}
}

func TestGoalStatusArray_JSON(t *testing.T) {
	status := GoalStatusArray{StatusList: []GoalStatus{
		{GoalInfo: GoalInfo{GoalID: ascendingGoalID(), Stamp: ros.NewTime(3, 4)}, Status: GoalStateSucceeded},
	}}

	data, err := json.Marshal(status)
	if err != nil {
		t.Fatal(err)
	}
	expected := `{"status_list":[{"goal_info":{"goal_id":"000102030405060708090a0b0c0d0e0f","stamp":{"sec":3,"nanosec":4}},"status":4}]}`
	if string(data) != expected {
		t.Fatalf("expected %s, got %s", expected, data)
	}

	var decoded GoalStatusArray
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.StatusList) != 1 || decoded.StatusList[0] != status.StatusList[0] {
		t.Fatalf("expected %v, got %v", status, decoded)
	}

	var empty GoalStatusArray
	if err := json.Unmarshal([]byte(`{"status_list":[]}`), &empty); err != nil {
		t.Fatal(err)
	}
	if empty.StatusList == nil || len(empty.StatusList) != 0 {
		t.Fatalf("expected empty, non-nil list, got %v", empty.StatusList)
	}
}

func TestGoalStatusArray_JSONErrors(t *testing.T) {
	cases := []string{
		`{}`,
		`{"status_list":[1]}`,
		`{"status_list":[{"goal_info":{"goal_id":"00","stamp":{"sec":1,"nanosec":1}},"status":1}]}`,
		`{"status_list":[{"goal_info":{"goal_id":"000102030405060708090a0b0c0d0e0f","stamp":{"sec":1,"nanosec":1},"extra":1},"status":1}]}`,
		`{"status_list":[{"goal_info":{"goal_id":"000102030405060708090a0b0c0d0e0f","stamp":{"sec":1,"nanosec":1}},"status":300}]}`,
	}
	for _, c := range cases {
		var decoded GoalStatusArray
		if err := decoded.UnmarshalJSON([]byte(c)); err == nil {
			t.Fatalf("expected error decoding %s", c)
		}
	}
}
