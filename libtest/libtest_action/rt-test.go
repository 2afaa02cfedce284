package libtest_action

import (
	"context"
	"testing"
	"time"

	modular "github.com/edwinhayes/logrus-modular"
	"github.com/sirupsen/logrus"

	"github.com/team-rocos/rosgo/actionlib"
	"github.com/team-rocos/rosgo/ros"
)

const actionName = "fibonacci"

// ActionServer

type fibonacciGoal struct {
	handle   *actionlib.GoalHandle
	order    int32
	sequence []int32
}

// fibonacciServer polls the action server and advances every executing goal by one step per
// spin.
type fibonacciServer struct {
	as      *actionlib.ActionServer
	logger  *modular.ModuleLogger
	goals   map[actionlib.GoalID]*fibonacciGoal
	results map[actionlib.GoalID]*getResultResponse
	pending map[actionlib.GoalID][]ros.RequestID
}

func newFibonacciServer(node ros.Node) (*fibonacciServer, error) {
	as, err := actionlib.NewActionServer(node, actionName, actionlib.DefaultServerOptions())
	if err != nil {
		return nil, err
	}
	return &fibonacciServer{
		as:      as,
		logger:  node.Logger(),
		goals:   make(map[actionlib.GoalID]*fibonacciGoal),
		results: make(map[actionlib.GoalID]*getResultResponse),
		pending: make(map[actionlib.GoalID][]ros.RequestID),
	}, nil
}

func (s *fibonacciServer) spinOnce() error {
	if err := s.handleGoalRequests(); err != nil {
		return err
	}
	if err := s.handleCancelRequests(); err != nil {
		return err
	}
	if err := s.handleResultRequests(); err != nil {
		return err
	}
	if err := s.execute(); err != nil {
		return err
	}
	_, err := s.as.ExpireGoals()
	return err
}

func (s *fibonacciServer) handleGoalRequests() error {
	var req sendGoalRequest
	id, taken, err := s.as.TakeGoalRequest(&req)
	if err != nil || !taken {
		return err
	}

	res := sendGoalResponse{Accepted: req.Order > 0, Stamp: ros.Now()}
	if res.Accepted {
		gh, err := s.as.AcceptNewGoal(actionlib.GoalInfo{GoalID: req.GoalID, Stamp: res.Stamp})
		if err != nil {
			res.Accepted = false
		} else {
			s.goals[req.GoalID] = &fibonacciGoal{handle: gh, order: req.Order, sequence: []int32{0, 1}}
			if err := gh.UpdateState(actionlib.GoalEventExecute); err != nil {
				return err
			}
		}
	}
	if err := s.as.SendGoalResponse(id, &res); err != nil {
		return err
	}
	return s.as.PublishGoalStatusArray()
}

func (s *fibonacciServer) handleCancelRequests() error {
	var req actionlib.CancelRequest
	id, taken, err := s.as.TakeCancelRequest(&req)
	if err != nil || !taken {
		return err
	}
	res, err := s.as.ProcessCancelRequest(req)
	if err != nil {
		return err
	}
	if err := s.as.SendCancelResponse(id, &res); err != nil {
		return err
	}
	return s.as.PublishGoalStatusArray()
}

func (s *fibonacciServer) handleResultRequests() error {
	var req getResultRequest
	id, taken, err := s.as.TakeResultRequest(&req)
	if err != nil {
		return err
	}
	if taken {
		s.pending[req.GoalID] = append(s.pending[req.GoalID], id)
	}
	for goalID, ids := range s.pending {
		res, ok := s.results[goalID]
		if !ok {
			if _, tracked := s.goals[goalID]; tracked {
				continue
			}
			res = &getResultResponse{Status: actionlib.GoalStateUnknown}
		}
		for _, id := range ids {
			if err := s.as.SendResultResponse(id, res); err != nil {
				return err
			}
		}
		delete(s.pending, goalID)
	}
	return nil
}

func (s *fibonacciServer) execute() error {
	logger := *s.logger
	for goalID, goal := range s.goals {
		status, err := goal.handle.Status()
		if err != nil {
			return err
		}

		switch status {
		case actionlib.GoalStateCanceling:
			if err := goal.handle.UpdateState(actionlib.GoalEventCanceled); err != nil {
				return err
			}
		case actionlib.GoalStateExecuting:
			if int32(len(goal.sequence)) <= goal.order {
				n := len(goal.sequence)
				goal.sequence = append(goal.sequence, goal.sequence[n-1]+goal.sequence[n-2])
				if err := s.as.PublishFeedback(&feedbackMessage{GoalID: goalID, Sequence: goal.sequence}); err != nil {
					return err
				}
				continue
			}
			if err := goal.handle.UpdateState(actionlib.GoalEventSucceed); err != nil {
				return err
			}
		default:
			continue
		}

		status, _ = goal.handle.Status()
		logger.WithFields(logrus.Fields{"goal_id": goalID.String(), "status": status.String()}).Info("goal finished")
		s.results[goalID] = &getResultResponse{Status: status, Sequence: goal.sequence}
		delete(s.goals, goalID)
		if err := s.as.PublishGoalStatusArray(); err != nil {
			return err
		}
	}
	return nil
}

// Spin the server in a separate goroutine
func spinServer(s *fibonacciServer, quit <-chan struct{}, errs chan<- error) {
	defer s.as.Shutdown()
	for {
		select {
		case <-quit:
			errs <- nil
			return
		default:
		}
		if err := s.spinOnce(); err != nil {
			errs <- err
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ActionClient

// pollUntil calls take every millisecond until it reports true, fails or timeout passes.
func pollUntil(t *testing.T, what string, timeout time.Duration, take func() (bool, error)) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		taken, err := take()
		if err != nil {
			t.Fatalf("%s: %s", what, err)
		}
		if taken {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("%s: timed out after %s", what, timeout)
}

func sendGoal(t *testing.T, ac *actionlib.ActionClient, order int32) actionlib.GoalID {
	goalID := actionlib.NewGoalID()
	if _, err := ac.SendGoalRequest(&sendGoalRequest{GoalID: goalID, Order: order}); err != nil {
		t.Fatalf("could not send goal: %s", err)
	}
	var res sendGoalResponse
	pollUntil(t, "goal response", time.Second, func() (bool, error) {
		_, taken, err := ac.TakeGoalResponse(&res)
		return taken, err
	})
	if !res.Accepted {
		t.Fatalf("goal %s was rejected", goalID)
	}
	return goalID
}

func getResult(t *testing.T, ac *actionlib.ActionClient, goalID actionlib.GoalID) getResultResponse {
	if _, err := ac.SendResultRequest(&getResultRequest{GoalID: goalID}); err != nil {
		t.Fatalf("could not request result: %s", err)
	}
	var res getResultResponse
	pollUntil(t, "result response", 5*time.Second, func() (bool, error) {
		_, taken, err := ac.TakeResultResponse(&res)
		return taken, err
	})
	return res
}

func RTTest(t *testing.T) {
	root := modular.NewRootLogger(logrus.New())
	logger := root.GetModuleLogger()
	bus := ros.NewLoopback()

	// Create a server node
	serverNode := bus.NewNode("test_fibonacci_server", &logger)
	defer serverNode.Shutdown()

	// Create a client node
	clientNode := bus.NewNode("test_fibonacci_client", &logger)
	defer clientNode.Shutdown()

	server, err := newFibonacciServer(serverNode)
	if err != nil {
		t.Fatalf("could not create action server: %s", err)
	}
	quit := make(chan struct{})
	errs := make(chan error, 1)
	go spinServer(server, quit, errs)

	ac, err := actionlib.NewActionClient(clientNode, actionName, actionlib.DefaultClientOptions())
	if err != nil {
		t.Fatalf("could not create action client: %s", err)
	}
	defer ac.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ac.WaitForServer(ctx, 10*time.Millisecond); err != nil {
		t.Fatalf("server never came up: %s", err)
	}

	// A goal that runs to completion
	goalID := sendGoal(t, ac, 10)
	result := getResult(t, ac, goalID)
	if result.Status != actionlib.GoalStateSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s", result.Status)
	}
	expected := []int32{0, 1, 1, 2, 3, 5, 8, 13, 21, 34, 55}
	if len(result.Sequence) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, result.Sequence)
	}
	for i := range expected {
		if result.Sequence[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, result.Sequence)
		}
	}

	// A goal canceled after its first feedback
	goalID = sendGoal(t, ac, 45)
	var fb feedbackMessage
	pollUntil(t, "feedback", time.Second, func() (bool, error) {
		taken, err := ac.TakeFeedback(&fb)
		return taken && fb.GoalID == goalID, err
	})
	cancelReq := actionlib.NewCancelGoalRequest(goalID)
	if _, err := ac.SendCancelRequest(&cancelReq); err != nil {
		t.Fatalf("could not send cancel request: %s", err)
	}
	var cancelRes actionlib.CancelResponse
	pollUntil(t, "cancel response", time.Second, func() (bool, error) {
		_, taken, err := ac.TakeCancelResponse(&cancelRes)
		return taken, err
	})
	if cancelRes.ReturnCode != actionlib.CancelErrorNone || len(cancelRes.GoalsCanceling) != 1 {
		t.Fatalf("unexpected cancel response %s %v", cancelRes.ReturnCode, cancelRes.GoalsCanceling)
	}
	result = getResult(t, ac, goalID)
	if result.Status != actionlib.GoalStateCanceled {
		t.Fatalf("expected CANCELED, got %s", result.Status)
	}

	// The latest status must show both goals in their terminal states
	var status actionlib.GoalStatusArray
	var latest actionlib.GoalStatusArray
	for {
		taken, err := ac.TakeStatus(&status)
		if err != nil {
			t.Fatalf("could not take status: %s", err)
		}
		if !taken {
			break
		}
		latest = status
	}
	if len(latest.StatusList) != 2 {
		t.Fatalf("expected 2 goals in status, got %v", latest.StatusList)
	}
	if latest.StatusList[0].Status != actionlib.GoalStateSucceeded || latest.StatusList[1].Status != actionlib.GoalStateCanceled {
		t.Fatalf("unexpected final status %v", latest.StatusList)
	}

	close(quit)
	if err := <-errs; err != nil {
		t.Fatalf("server failed: %s", err)
	}
}
