package actionlib

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/pkg/errors"
)

// goalTransitions is the complete set of legal goal transitions. Terminal states have no
// outgoing edge.
var goalTransitions = fsm.Events{
	{Name: GoalEventExecute.String(), Src: []string{GoalStateAccepted.String()}, Dst: GoalStateExecuting.String()},
	{Name: GoalEventCancelGoal.String(), Src: []string{GoalStateAccepted.String(), GoalStateExecuting.String()}, Dst: GoalStateCanceling.String()},
	{Name: GoalEventSucceed.String(), Src: []string{GoalStateExecuting.String()}, Dst: GoalStateSucceeded.String()},
	{Name: GoalEventAbort.String(), Src: []string{GoalStateAccepted.String(), GoalStateExecuting.String(), GoalStateCanceling.String()}, Dst: GoalStateAborted.String()},
	{Name: GoalEventCanceled.String(), Src: []string{GoalStateCanceling.String()}, Dst: GoalStateCanceled.String()},
}

// goalStateMachine holds one goal's state. It is not safe for concurrent use on its own; the
// registry lock serializes every call.
type goalStateMachine struct {
	fsm *fsm.FSM
}

func newGoalStateMachine() *goalStateMachine {
	return &goalStateMachine{
		fsm: fsm.NewFSM(GoalStateAccepted.String(), goalTransitions, fsm.Callbacks{}),
	}
}

func (sm *goalStateMachine) state() GoalState {
	return parseGoalState(sm.fsm.Current())
}

func (sm *goalStateMachine) can(event GoalEvent) bool {
	return sm.fsm.Can(event.String())
}

// transition applies event and returns the previous and new state. On failure the state is left
// untouched and the error wraps ErrInvalidStateTransition.
func (sm *goalStateMachine) transition(event GoalEvent) (GoalState, GoalState, error) {
	from := sm.state()
	if !sm.can(event) {
		return from, from, errors.Wrapf(ErrInvalidStateTransition, "event %s is not valid in state %s", event, from)
	}
	if err := sm.fsm.Event(context.Background(), event.String()); err != nil {
		return from, sm.state(), errors.Wrapf(ErrInvalidStateTransition, "event %s in state %s: %v", event, from, err)
	}
	return from, sm.state(), nil
}
