package actionlib

import "github.com/pkg/errors"

// Errors returned by the action layer. Match them with errors.Is; transport errors are returned
// as the transport reported them.
var (
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrNodeInvalid            = errors.New("node is invalid")
	ErrAlreadyInitialized     = errors.New("already initialized")
	ErrServerInvalid          = errors.New("action server is invalid")
	ErrClientInvalid          = errors.New("action client is invalid")
	ErrGoalHandleInvalid      = errors.New("goal handle is invalid")
	ErrInvalidStateTransition = errors.New("invalid goal state transition")
	ErrGoalIDAlreadyExists    = errors.New("goal id already exists")
)
