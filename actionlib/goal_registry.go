package actionlib

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// transitionFunc observes successful goal transitions. It runs with the registry lock held and
// must not call back into the registry.
type transitionFunc func(info GoalInfo, event GoalEvent, from, to GoalState)

// goalRegistry is the server's set of goal handles. One mutex covers the index, the insertion
// order and every handle's state machine, so snapshots never observe half a transition.
type goalRegistry struct {
	mutex        sync.Mutex
	closed       bool
	order        []*GoalHandle
	index        map[GoalID]*GoalHandle
	now          func() time.Time
	onTransition transitionFunc
}

func newGoalRegistry(onTransition transitionFunc) *goalRegistry {
	return &goalRegistry{
		index:        make(map[GoalID]*GoalHandle),
		now:          time.Now,
		onTransition: onTransition,
	}
}

func (r *goalRegistry) add(info GoalInfo) (*GoalHandle, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.index[info.GoalID]; ok {
		return nil, errors.Wrapf(ErrGoalIDAlreadyExists, "goal %s", info.GoalID)
	}
	gh := newGoalHandle(r, info)
	r.index[info.GoalID] = gh
	r.order = append(r.order, gh)
	return gh, nil
}

func (r *goalRegistry) exists(id GoalID) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, ok := r.index[id]
	return ok
}

func (r *goalRegistry) count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.order)
}

// handles returns the tracked handles in insertion order.
func (r *goalRegistry) handles() []*GoalHandle {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make([]*GoalHandle, len(r.order))
	copy(out, r.order)
	return out
}

// statusArray builds the snapshot in insertion order.
func (r *goalRegistry) statusArray() GoalStatusArray {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	list := make([]GoalStatus, 0, len(r.order))
	for _, gh := range r.order {
		list = append(list, GoalStatus{GoalInfo: gh.info, Status: gh.sm.state()})
	}
	return GoalStatusArray{StatusList: list}
}

// transitionLocked applies event to gh. The caller holds the lock.
func (r *goalRegistry) transitionLocked(gh *GoalHandle, event GoalEvent) error {
	from, to, err := gh.sm.transition(event)
	if err != nil {
		return errors.Wrapf(err, "goal %s", gh.info.GoalID)
	}
	if to.IsTerminal() {
		gh.terminalTime = r.now()
	}
	if r.onTransition != nil {
		r.onTransition(gh.info, event, from, to)
	}
	return nil
}

// expire removes goals that have been terminal for longer than timeout and returns their info.
func (r *goalRegistry) expire(timeout time.Duration) []GoalInfo {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	var expired []GoalInfo
	kept := r.order[:0]
	for _, gh := range r.order {
		if gh.sm.state().IsTerminal() && now.Sub(gh.terminalTime) >= timeout {
			expired = append(expired, gh.info)
			gh.registered = false
			delete(r.index, gh.info.GoalID)
			continue
		}
		kept = append(kept, gh)
	}
	for i := len(kept); i < len(r.order); i++ {
		r.order[i] = nil
	}
	r.order = kept
	return expired
}

// close releases every handle; they all become invalid.
func (r *goalRegistry) close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, gh := range r.order {
		gh.registered = false
	}
	r.closed = true
	r.order = nil
	r.index = make(map[GoalID]*GoalHandle)
}
