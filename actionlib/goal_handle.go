package actionlib

import (
	"time"

	"github.com/pkg/errors"
)

// GoalHandle tracks one accepted goal. Handles are created by ActionServer.AcceptNewGoal and owned
// by the server's registry; once the goal is expired or the server is shut down the handle is
// invalid and every call on it fails with ErrGoalHandleInvalid.
type GoalHandle struct {
	info     GoalInfo
	sm       *goalStateMachine
	registry *goalRegistry // not an owner: only used to lock and to check liveness

	// Guarded by registry.mutex.
	registered   bool
	terminalTime time.Time
}

func newGoalHandle(registry *goalRegistry, info GoalInfo) *GoalHandle {
	return &GoalHandle{
		info:       info,
		sm:         newGoalStateMachine(),
		registry:   registry,
		registered: true,
	}
}

// validLocked must be called with the registry lock held.
func (gh *GoalHandle) validLocked() bool {
	return gh.registered && !gh.registry.closed
}

// lock takes the registry lock and returns false, without holding it, when the handle is
// invalid.
func (gh *GoalHandle) lock() bool {
	if gh == nil || gh.registry == nil || gh.sm == nil {
		return false
	}
	gh.registry.mutex.Lock()
	if !gh.validLocked() {
		gh.registry.mutex.Unlock()
		return false
	}
	return true
}

func (gh *GoalHandle) unlock() {
	gh.registry.mutex.Unlock()
}

// UpdateState applies event to the goal. Illegal events fail with ErrInvalidStateTransition and
// leave the state unchanged.
func (gh *GoalHandle) UpdateState(event GoalEvent) error {
	if !gh.lock() {
		return errors.Wrapf(ErrGoalHandleInvalid, "cannot apply %s", event)
	}
	defer gh.unlock()

	return gh.registry.transitionLocked(gh, event)
}

// Info returns the goal's id and acceptance stamp.
func (gh *GoalHandle) Info() (GoalInfo, error) {
	if !gh.lock() {
		return GoalInfo{}, ErrGoalHandleInvalid
	}
	defer gh.unlock()

	return gh.info, nil
}

// Status returns the goal's current state.
func (gh *GoalHandle) Status() (GoalState, error) {
	if !gh.lock() {
		return GoalStateUnknown, ErrGoalHandleInvalid
	}
	defer gh.unlock()

	return gh.sm.state(), nil
}

// IsActive reports whether the goal is valid and not yet terminal.
func (gh *GoalHandle) IsActive() bool {
	if !gh.lock() {
		return false
	}
	defer gh.unlock()

	return gh.sm.state().IsActive()
}

// IsCancelable reports whether a cancel-goal event would currently succeed.
func (gh *GoalHandle) IsCancelable() bool {
	if !gh.lock() {
		return false
	}
	defer gh.unlock()

	return gh.sm.can(GoalEventCancelGoal)
}

// IsValid reports whether the goal is still tracked by a live server.
func (gh *GoalHandle) IsValid() bool {
	if !gh.lock() {
		return false
	}
	gh.unlock()
	return true
}

// Equal reports whether both handles refer to the same goal id.
func (gh *GoalHandle) Equal(other *GoalHandle) bool {
	if gh == nil || other == nil {
		return false
	}
	return gh.info.GoalID == other.info.GoalID
}
