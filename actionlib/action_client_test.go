package actionlib

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/team-rocos/rosgo/ros"
)

var clientOps = map[string]func(ac *ActionClient) error{
	"SendGoalRequest": func(ac *ActionClient) error {
		_, err := ac.SendGoalRequest(&ros.RawMessage{})
		return err
	},
	"SendCancelRequest": func(ac *ActionClient) error {
		req := NewCancelAllRequest()
		_, err := ac.SendCancelRequest(&req)
		return err
	},
	"SendResultRequest": func(ac *ActionClient) error {
		_, err := ac.SendResultRequest(&ros.RawMessage{})
		return err
	},
	"TakeGoalResponse": func(ac *ActionClient) error {
		_, _, err := ac.TakeGoalResponse(&ros.RawMessage{})
		return err
	},
	"TakeCancelResponse": func(ac *ActionClient) error {
		_, _, err := ac.TakeCancelResponse(&CancelResponse{})
		return err
	},
	"TakeResultResponse": func(ac *ActionClient) error {
		_, _, err := ac.TakeResultResponse(&ros.RawMessage{})
		return err
	},
	"TakeFeedback": func(ac *ActionClient) error {
		_, err := ac.TakeFeedback(&ros.RawMessage{})
		return err
	},
	"TakeStatus": func(ac *ActionClient) error {
		_, err := ac.TakeStatus(&GoalStatusArray{})
		return err
	},
	"ServerIsAvailable": func(ac *ActionClient) error {
		_, err := ac.ServerIsAvailable()
		return err
	},
	"WaitForServer": func(ac *ActionClient) error {
		return ac.WaitForServer(context.Background(), time.Millisecond)
	},
	"ActionName": func(ac *ActionClient) error {
		_, err := ac.ActionName()
		return err
	},
	"Options": func(ac *ActionClient) error {
		_, err := ac.Options()
		return err
	},
	"Shutdown": func(ac *ActionClient) error {
		return ac.Shutdown()
	},
}

var clientNilArgOps = map[string]func(ac *ActionClient) error{
	"SendGoalRequest": func(ac *ActionClient) error {
		_, err := ac.SendGoalRequest(nil)
		return err
	},
	"SendCancelRequest": func(ac *ActionClient) error {
		var req *CancelRequest
		_, err := ac.SendCancelRequest(req)
		return err
	},
	"SendResultRequest": func(ac *ActionClient) error {
		_, err := ac.SendResultRequest(nil)
		return err
	},
	"TakeGoalResponse": func(ac *ActionClient) error {
		_, _, err := ac.TakeGoalResponse(nil)
		return err
	},
	"TakeCancelResponse": func(ac *ActionClient) error {
		var res *CancelResponse
		_, _, err := ac.TakeCancelResponse(res)
		return err
	},
	"TakeResultResponse": func(ac *ActionClient) error {
		_, _, err := ac.TakeResultResponse(nil)
		return err
	},
	"TakeFeedback": func(ac *ActionClient) error {
		_, err := ac.TakeFeedback(nil)
		return err
	},
	"TakeStatus": func(ac *ActionClient) error {
		var status *GoalStatusArray
		_, err := ac.TakeStatus(status)
		return err
	},
}

func TestActionClient_ZeroValueIsInvalid(t *testing.T) {
	for name, op := range clientOps {
		var ac ActionClient
		if err := op(&ac); !errors.Is(err, ErrClientInvalid) {
			t.Fatalf("%s on zero client: expected ErrClientInvalid, got %v", name, err)
		}
	}
	for name, op := range clientOps {
		var ac *ActionClient
		if err := op(ac); !errors.Is(err, ErrClientInvalid) {
			t.Fatalf("%s on nil client: expected ErrClientInvalid, got %v", name, err)
		}
	}
}

func TestActionClient_InvalidAfterShutdown(t *testing.T) {
	for name, op := range clientOps {
		as, ac := newTestPair(t, "test_action")
		if err := ac.Shutdown(); err != nil {
			t.Fatal(err)
		}
		if err := op(ac); !errors.Is(err, ErrClientInvalid) {
			t.Fatalf("%s after shutdown: expected ErrClientInvalid, got %v", name, err)
		}
		as.Shutdown()
	}
}

func TestActionClient_NilArguments(t *testing.T) {
	as, ac := newTestPair(t, "test_action")
	defer as.Shutdown()
	defer ac.Shutdown()

	for name, op := range clientNilArgOps {
		if err := op(ac); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%s with nil payload: expected ErrInvalidArgument, got %v", name, err)
		}
	}
	if err := ac.WaitForServer(context.Background(), 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for zero poll interval, got %v", err)
	}
}

func TestActionClient_InvalidObjectReportedBeforeInvalidArgument(t *testing.T) {
	for name, op := range clientNilArgOps {
		var ac ActionClient
		if err := op(&ac); !errors.Is(err, ErrClientInvalid) {
			t.Fatalf("%s on zero client with nil payload: expected ErrClientInvalid, got %v", name, err)
		}
	}
}

func TestActionClient_InitErrors(t *testing.T) {
	node := ros.NewLoopback().NewNode("node", newTestLogger())

	var ac ActionClient
	if err := ac.Init(nil, "action", DefaultClientOptions()); !errors.Is(err, ErrNodeInvalid) {
		t.Fatalf("expected ErrNodeInvalid, got %v", err)
	}
	if err := ac.Init(node, "", DefaultClientOptions()); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	opts := DefaultClientOptions()
	opts.StatusTopicQoS.Depth = 0
	if err := ac.Init(node, "action", opts); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for zero status depth, got %v", err)
	}
	if err := ac.Init(node, "action", DefaultClientOptions()); err != nil {
		t.Fatal(err)
	}
	if err := ac.Init(node, "action", DefaultClientOptions()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	ac.Shutdown()

	var typedNil *failingNode
	if err := ac.Init(typedNil, "action", DefaultClientOptions()); !errors.Is(err, ErrNodeInvalid) {
		t.Fatalf("expected ErrNodeInvalid for typed-nil node, got %v", err)
	}
	noLogger := newFailingNode(-1)
	noLogger.logger = nil
	if err := ac.Init(noLogger, "action", DefaultClientOptions()); !errors.Is(err, ErrNodeInvalid) {
		t.Fatalf("expected ErrNodeInvalid for node without logger, got %v", err)
	}
	if noLogger.created != 0 || ac.IsValid() {
		t.Fatalf("rejected node must not get channels, got %d created", noLogger.created)
	}

	failing := newFailingNode(4)
	if err := ac.Init(failing, "action", DefaultClientOptions()); !errors.Is(err, errFakeTransport) {
		t.Fatalf("expected the transport error, got %v", err)
	}
	if failing.closed != 4 || ac.IsValid() {
		t.Fatalf("expected 4 channels closed and an invalid client, got %d closed", failing.closed)
	}
}

func TestActionClient_TransportErrorsPassThrough(t *testing.T) {
	ac, err := NewActionClient(newFailingNode(-1), "action", DefaultClientOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer ac.Shutdown()

	var msg ros.RawMessage
	for name, op := range map[string]func() error{
		"SendGoalRequest":    func() error { _, err := ac.SendGoalRequest(&msg); return err },
		"SendCancelRequest":  func() error { _, err := ac.SendCancelRequest(&msg); return err },
		"SendResultRequest":  func() error { _, err := ac.SendResultRequest(&msg); return err },
		"TakeGoalResponse":   func() error { _, _, err := ac.TakeGoalResponse(&msg); return err },
		"TakeCancelResponse": func() error { _, _, err := ac.TakeCancelResponse(&msg); return err },
		"TakeResultResponse": func() error { _, _, err := ac.TakeResultResponse(&msg); return err },
		"TakeFeedback":       func() error { _, err := ac.TakeFeedback(&msg); return err },
		"TakeStatus":         func() error { _, err := ac.TakeStatus(&msg); return err },
	} {
		if err := op(); err != errFakeTransport {
			t.Fatalf("%s: expected transport error unchanged, got %v", name, err)
		}
	}
}

func TestActionClient_ServerAvailability(t *testing.T) {
	bus := ros.NewLoopback()
	ac, err := NewActionClient(bus.NewNode("client", newTestLogger()), "fibonacci", DefaultClientOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer ac.Shutdown()

	if available, _ := ac.ServerIsAvailable(); available {
		t.Fatal("server reported available before it exists")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := ac.WaitForServer(ctx, time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	as, err := NewActionServer(bus.NewNode("server", newTestLogger()), "fibonacci", DefaultServerOptions())
	if err != nil {
		t.Fatal(err)
	}
	if err := ac.WaitForServer(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("expected server to be available, got %s", err)
	}

	as.Shutdown()
	if available, _ := ac.ServerIsAvailable(); available {
		t.Fatal("server reported available after shutdown")
	}
}

// Round trips between a server and a client over the loopback transport.

func TestRoundTrip_Goal(t *testing.T) {
	as, ac := newTestPair(t, "fibonacci")
	defer as.Shutdown()
	defer ac.Shutdown()

	req := &ros.RawMessage{Data: []byte{1, 2, 3}}
	seq, err := ac.SendGoalRequest(req)
	if err != nil {
		t.Fatal(err)
	}

	var got ros.RawMessage
	id, taken, err := as.TakeGoalRequest(&got)
	if err != nil || !taken {
		t.Fatalf("expected goal request, got taken=%v err=%v", taken, err)
	}
	if !bytes.Equal(got.Data, req.Data) {
		t.Fatalf("expected %v, got %v", req.Data, got.Data)
	}
	if id.SequenceNumber != seq {
		t.Fatalf("expected sequence %d, got %d", seq, id.SequenceNumber)
	}

	res := &ros.RawMessage{Data: []byte("accepted")}
	if err := as.SendGoalResponse(id, res); err != nil {
		t.Fatal(err)
	}
	var gotRes ros.RawMessage
	resID, taken, err := ac.TakeGoalResponse(&gotRes)
	if err != nil || !taken {
		t.Fatalf("expected goal response, got taken=%v err=%v", taken, err)
	}
	if !bytes.Equal(gotRes.Data, res.Data) || resID != id {
		t.Fatalf("unexpected goal response %q for %s", gotRes.Data, resID)
	}
}

func TestRoundTrip_Cancel(t *testing.T) {
	as, ac := newTestPair(t, "fibonacci")
	defer as.Shutdown()
	defer ac.Shutdown()

	as.AcceptNewGoal(GoalInfo{GoalID: ascendingGoalID(), Stamp: ros.NewTime(5, 6)})

	req := NewCancelGoalRequest(ascendingGoalID())
	if _, err := ac.SendCancelRequest(&req); err != nil {
		t.Fatal(err)
	}
	var gotReq CancelRequest
	id, taken, err := as.TakeCancelRequest(&gotReq)
	if err != nil || !taken {
		t.Fatalf("expected cancel request, got taken=%v err=%v", taken, err)
	}
	if gotReq != req {
		t.Fatalf("expected %v, got %v", req, gotReq)
	}

	res, err := as.ProcessCancelRequest(gotReq)
	if err != nil {
		t.Fatal(err)
	}
	if err := as.SendCancelResponse(id, &res); err != nil {
		t.Fatal(err)
	}
	var gotRes CancelResponse
	if _, taken, err := ac.TakeCancelResponse(&gotRes); err != nil || !taken {
		t.Fatalf("expected cancel response, got taken=%v err=%v", taken, err)
	}
	if gotRes.ReturnCode != CancelErrorNone || len(gotRes.GoalsCanceling) != 1 || gotRes.GoalsCanceling[0] != res.GoalsCanceling[0] {
		t.Fatalf("expected %v, got %v", res, gotRes)
	}
}

func TestRoundTrip_Result(t *testing.T) {
	as, ac := newTestPair(t, "fibonacci")
	defer as.Shutdown()
	defer ac.Shutdown()

	goalID := ascendingGoalID()
	req := &ros.RawMessage{Data: goalID[:]}
	if _, err := ac.SendResultRequest(req); err != nil {
		t.Fatal(err)
	}
	var got ros.RawMessage
	id, taken, err := as.TakeResultRequest(&got)
	if err != nil || !taken || !bytes.Equal(got.Data, req.Data) {
		t.Fatalf("unexpected result request %v taken=%v err=%v", got.Data, taken, err)
	}

	res := &ros.RawMessage{Data: []byte{0, 1, 1, 2, 3, 5, 8}}
	if err := as.SendResultResponse(id, res); err != nil {
		t.Fatal(err)
	}
	var gotRes ros.RawMessage
	if _, taken, err := ac.TakeResultResponse(&gotRes); err != nil || !taken || !bytes.Equal(gotRes.Data, res.Data) {
		t.Fatalf("unexpected result response %v taken=%v err=%v", gotRes.Data, taken, err)
	}
}

func TestRoundTrip_FeedbackAndStatus(t *testing.T) {
	as, ac := newTestPair(t, "fibonacci")
	defer as.Shutdown()
	defer ac.Shutdown()

	feedback := &ros.RawMessage{Data: []byte{0, 1, 1}}
	if err := as.PublishFeedback(feedback); err != nil {
		t.Fatal(err)
	}
	var gotFeedback ros.RawMessage
	if taken, err := ac.TakeFeedback(&gotFeedback); err != nil || !taken || !bytes.Equal(gotFeedback.Data, feedback.Data) {
		t.Fatalf("unexpected feedback %v taken=%v err=%v", gotFeedback.Data, taken, err)
	}

	gh, _ := as.AcceptNewGoal(GoalInfo{GoalID: ascendingGoalID(), Stamp: ros.NewTime(1, 2)})
	gh.UpdateState(GoalEventExecute)
	status, _ := as.GetGoalStatusArray()
	if err := as.PublishStatus(&status); err != nil {
		t.Fatal(err)
	}
	var gotStatus GoalStatusArray
	if taken, err := ac.TakeStatus(&gotStatus); err != nil || !taken {
		t.Fatalf("expected status, got taken=%v err=%v", taken, err)
	}
	if len(gotStatus.StatusList) != 1 || gotStatus.StatusList[0] != status.StatusList[0] {
		t.Fatalf("expected %v, got %v", status, gotStatus)
	}
	if gotStatus.StatusList[0].Status != GoalStateExecuting {
		t.Fatalf("expected EXECUTING, got %s", gotStatus.StatusList[0].Status)
	}
}

func TestRoundTrip_StatusLatchedForLateClient(t *testing.T) {
	bus := ros.NewLoopback()
	as, err := NewActionServer(bus.NewNode("server", newTestLogger()), "fibonacci", DefaultServerOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer as.Shutdown()

	as.AcceptNewGoal(GoalInfo{GoalID: ascendingGoalID()})
	if err := as.PublishGoalStatusArray(); err != nil {
		t.Fatal(err)
	}

	ac, err := NewActionClient(bus.NewNode("client", newTestLogger()), "fibonacci", DefaultClientOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer ac.Shutdown()

	var status GoalStatusArray
	if taken, err := ac.TakeStatus(&status); err != nil || !taken {
		t.Fatalf("expected latched status, got taken=%v err=%v", taken, err)
	}
	if len(status.StatusList) != 1 || status.StatusList[0].GoalInfo.GoalID != ascendingGoalID() {
		t.Fatalf("unexpected latched status %v", status)
	}
}
