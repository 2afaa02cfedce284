// Package actionlib implements the action pattern on top of the ros transport: a client sends a
// goal, the server accepts it and drives it through ACCEPTED, EXECUTING and CANCELING to one of
// SUCCEEDED, CANCELED or ABORTED, while publishing feedback and goal status.
//
// An action is carried over three services and two topics:
//
//	<action>/_action/send_goal
//	<action>/_action/cancel_goal
//	<action>/_action/get_result
//	<action>/_action/feedback
//	<action>/_action/status
//
// Neither end blocks or spawns goroutines. The application polls the Take* operations and decides
// when a goal changes state:
//
//	as, err := actionlib.NewActionServer(node, "fibonacci", actionlib.DefaultServerOptions())
//	...
//	if _, taken, err := as.TakeGoalRequest(&req); err == nil && taken {
//		gh, _ := as.AcceptNewGoal(actionlib.GoalInfo{GoalID: req.GoalID, Stamp: ros.Now()})
//		gh.UpdateState(actionlib.GoalEventExecute)
//		as.PublishGoalStatusArray()
//	}
package actionlib

// Endpoint is implemented by ActionServer and ActionClient.
type Endpoint interface {
	IsValid() bool
	ActionName() (string, error)
	Shutdown() error
}

var (
	_ Endpoint = &ActionServer{}
	_ Endpoint = &ActionClient{}
)
