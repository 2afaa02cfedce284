package actionlib

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	modular "github.com/edwinhayes/logrus-modular"

	"github.com/team-rocos/rosgo/ros"
)

// lifecycle discriminates constructed endpoints from zero-value or shut down ones.
type lifecycle uint8

const (
	lifecycleUninitialized lifecycle = iota
	lifecycleInitialized
)

// ActionServer is the server end of an action. The zero value is an uninitialized server on
// which every operation fails with ErrServerInvalid; Init or NewActionServer make it usable and
// Shutdown invalidates it again.
//
// All operations may be called concurrently with each other and with GoalHandle methods.
// Shutdown must not race with any other call.
type ActionServer struct {
	state         lifecycle
	node          ros.Node
	action        string
	options       ServerOptions
	logger        *modular.ModuleLogger
	goalService   ros.ServiceServer
	cancelService ros.ServiceServer
	resultService ros.ServiceServer
	feedbackPub   ros.Publisher
	statusPub     ros.Publisher
	goals         *goalRegistry
}

// NewActionServer creates and initializes a server for action on node.
func NewActionServer(node ros.Node, action string, opts ServerOptions) (*ActionServer, error) {
	as := &ActionServer{}
	if err := as.Init(node, action, opts); err != nil {
		return nil, err
	}
	return as, nil
}

// Init creates the goal, cancel and result services and the feedback and status publishers.
// Anything created before a failure is torn down again.
func (as *ActionServer) Init(node ros.Node, action string, opts ServerOptions) error {
	if as == nil {
		return errors.Wrap(ErrInvalidArgument, "action server is nil")
	}
	if ros.IsNilNode(node) || !node.OK() {
		return ErrNodeInvalid
	}
	names, err := newActionNames(action)
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if as.state == lifecycleInitialized {
		return errors.Wrapf(ErrAlreadyInitialized, "action server %s", as.action)
	}

	logger := *node.Logger()
	logger.Debugf("Initializing action server for action name '%s'", action)

	s := &ActionServer{
		node:    node,
		action:  action,
		options: opts,
		logger:  node.Logger(),
	}
	if err := s.createChannels(names); err != nil {
		s.closeChannels()
		return err
	}
	s.goals = newGoalRegistry(as.goalTransitioned)
	s.state = lifecycleInitialized
	*as = *s

	logger.WithFields(logrus.Fields{"action": action}).Info("action server initialized")
	return nil
}

func (as *ActionServer) createChannels(names actionNames) error {
	var err error
	if as.goalService, err = as.node.NewServiceServer(names.goalService, as.options.GoalServiceQoS); err != nil {
		return errors.Wrap(err, "failed to create goal service")
	}
	if as.cancelService, err = as.node.NewServiceServer(names.cancelService, as.options.CancelServiceQoS); err != nil {
		return errors.Wrap(err, "failed to create cancel service")
	}
	if as.resultService, err = as.node.NewServiceServer(names.resultService, as.options.ResultServiceQoS); err != nil {
		return errors.Wrap(err, "failed to create result service")
	}
	if as.feedbackPub, err = as.node.NewPublisher(names.feedbackTopic, as.options.FeedbackTopicQoS); err != nil {
		return errors.Wrap(err, "failed to create feedback publisher")
	}
	if as.statusPub, err = as.node.NewPublisher(names.statusTopic, as.options.StatusTopicQoS); err != nil {
		return errors.Wrap(err, "failed to create status publisher")
	}
	return nil
}

func (as *ActionServer) closeChannels() {
	for _, c := range []interface{ Shutdown() }{as.goalService, as.cancelService, as.resultService, as.feedbackPub, as.statusPub} {
		if c != nil {
			c.Shutdown()
		}
	}
	as.goalService, as.cancelService, as.resultService = nil, nil, nil
	as.feedbackPub, as.statusPub = nil, nil
}

// Shutdown releases every goal handle, closes the channels and invalidates the server.
func (as *ActionServer) Shutdown() error {
	if !as.IsValid() {
		return ErrServerInvalid
	}
	logger := *as.logger

	as.goals.close()
	as.closeChannels()
	forgetAction(as.action, as.node.Name())
	as.state = lifecycleUninitialized

	logger.WithFields(logrus.Fields{"action": as.action}).Info("action server shut down")
	return nil
}

// IsValid reports whether the server has been initialized and not shut down.
func (as *ActionServer) IsValid() bool {
	return as != nil && as.state == lifecycleInitialized
}

func (as *ActionServer) validate(arg ros.Message, what string) error {
	if !as.IsValid() {
		return ErrServerInvalid
	}
	if ros.IsNilMessage(arg) {
		return errors.Wrapf(ErrInvalidArgument, "%s is nil", what)
	}
	return nil
}

func (as *ActionServer) goalTransitioned(info GoalInfo, event GoalEvent, from, to GoalState) {
	logger := *as.logger
	logger.WithFields(logrus.Fields{
		"action":  as.action,
		"goal_id": info.GoalID.String(),
		"event":   event.String(),
		"from":    from.String(),
		"to":      to.String(),
	}).Debug("goal transitioned")
	recordGoalTransition(as.action, to)
}

// Requests and responses.

func (as *ActionServer) takeRequest(srv ros.ServiceServer, kind string, out ros.Message) (ros.RequestID, bool, error) {
	if err := as.validate(out, kind+" request"); err != nil {
		return ros.RequestID{}, false, err
	}
	logger := *as.logger
	id, taken, err := srv.TakeRequest(out)
	if err != nil {
		return ros.RequestID{}, false, err
	}
	if taken {
		logger.Debugf("Action %s request taken (%s)", kind, id)
	}
	return id, taken, nil
}

func (as *ActionServer) sendResponse(srv ros.ServiceServer, kind string, id ros.RequestID, res ros.Message) error {
	if err := as.validate(res, kind+" response"); err != nil {
		return err
	}
	logger := *as.logger
	if err := srv.SendResponse(id, res); err != nil {
		return err
	}
	logger.Debugf("Action %s response sent (%s)", kind, id)
	return nil
}

// TakeGoalRequest polls the goal service. taken is false, with a nil error, when nothing is
// queued.
func (as *ActionServer) TakeGoalRequest(out ros.Message) (ros.RequestID, bool, error) {
	if !as.IsValid() {
		return ros.RequestID{}, false, ErrServerInvalid
	}
	return as.takeRequest(as.goalService, "goal", out)
}

func (as *ActionServer) SendGoalResponse(id ros.RequestID, res ros.Message) error {
	if !as.IsValid() {
		return ErrServerInvalid
	}
	return as.sendResponse(as.goalService, "goal", id, res)
}

// TakeCancelRequest polls the cancel service. The request is normally a *CancelRequest which is
// then handed to ProcessCancelRequest.
func (as *ActionServer) TakeCancelRequest(out ros.Message) (ros.RequestID, bool, error) {
	if !as.IsValid() {
		return ros.RequestID{}, false, ErrServerInvalid
	}
	return as.takeRequest(as.cancelService, "cancel", out)
}

func (as *ActionServer) SendCancelResponse(id ros.RequestID, res ros.Message) error {
	if !as.IsValid() {
		return ErrServerInvalid
	}
	return as.sendResponse(as.cancelService, "cancel", id, res)
}

func (as *ActionServer) TakeResultRequest(out ros.Message) (ros.RequestID, bool, error) {
	if !as.IsValid() {
		return ros.RequestID{}, false, ErrServerInvalid
	}
	return as.takeRequest(as.resultService, "result", out)
}

func (as *ActionServer) SendResultResponse(id ros.RequestID, res ros.Message) error {
	if !as.IsValid() {
		return ErrServerInvalid
	}
	return as.sendResponse(as.resultService, "result", id, res)
}

// Topics.

// PublishFeedback publishes msg on the feedback topic.
func (as *ActionServer) PublishFeedback(msg ros.Message) error {
	if err := as.validate(msg, "feedback"); err != nil {
		return err
	}
	return as.feedbackPub.Publish(msg)
}

// PublishStatus publishes msg, normally a *GoalStatusArray, on the status topic.
func (as *ActionServer) PublishStatus(msg ros.Message) error {
	if err := as.validate(msg, "status"); err != nil {
		return err
	}
	return as.statusPub.Publish(msg)
}

// PublishGoalStatusArray publishes a fresh snapshot of every tracked goal.
func (as *ActionServer) PublishGoalStatusArray() error {
	status, err := as.GetGoalStatusArray()
	if err != nil {
		return err
	}
	return as.statusPub.Publish(&status)
}

// Goals.

// AcceptNewGoal starts tracking a goal in state ACCEPTED. It fails with ErrGoalIDAlreadyExists if
// a goal with the same id is still tracked. Unlike rcl_action_accept_new_goal it also rejects the
// zero id with ErrInvalidArgument, since a cancel request carrying that id means "cancel all".
func (as *ActionServer) AcceptNewGoal(info GoalInfo) (*GoalHandle, error) {
	if !as.IsValid() {
		return nil, ErrServerInvalid
	}
	if info.GoalID.IsZero() {
		return nil, errors.Wrap(ErrInvalidArgument, "goal id is zero")
	}
	logger := *as.logger

	gh, err := as.goals.add(info)
	if err != nil {
		return nil, err
	}
	recordGoalAccepted(as.action, as.node.Name(), as.goals.count())
	logger.WithFields(logrus.Fields{"action": as.action, "goal_id": info.GoalID.String()}).Debug("goal accepted")
	return gh, nil
}

// GoalExists reports whether a goal with the same id is tracked.
func (as *ActionServer) GoalExists(info GoalInfo) (bool, error) {
	if !as.IsValid() {
		return false, ErrServerInvalid
	}
	return as.goals.exists(info.GoalID), nil
}

// GoalHandles returns the tracked goals in the order they were accepted.
func (as *ActionServer) GoalHandles() ([]*GoalHandle, error) {
	if !as.IsValid() {
		return nil, ErrServerInvalid
	}
	return as.goals.handles(), nil
}

// GetGoalStatusArray returns a consistent snapshot of every tracked goal in acceptance order. An
// empty server yields an empty array and no error.
func (as *ActionServer) GetGoalStatusArray() (GoalStatusArray, error) {
	if !as.IsValid() {
		return GoalStatusArray{}, ErrServerInvalid
	}
	return as.goals.statusArray(), nil
}

// ProcessCancelRequest moves every goal matched by req to CANCELING and lists them in the
// response. Goals that cannot be canceled are left out instead of failing the request.
func (as *ActionServer) ProcessCancelRequest(req CancelRequest) (CancelResponse, error) {
	if !as.IsValid() {
		return CancelResponse{}, ErrServerInvalid
	}
	logger := *as.logger

	res := as.goals.processCancel(req, func(info GoalInfo, state GoalState) {
		logger.WithFields(logrus.Fields{
			"action":  as.action,
			"goal_id": info.GoalID.String(),
			"state":   state.String(),
		}).Warn("goal matched by cancel request cannot be canceled")
	})
	recordCancelRequest(as.action, res.ReturnCode)
	logger.WithFields(logrus.Fields{
		"action":      as.action,
		"goal_id":     req.GoalInfo.GoalID.String(),
		"return_code": res.ReturnCode.String(),
		"canceling":   len(res.GoalsCanceling),
	}).Debug("cancel request processed")
	return res, nil
}

// ExpireGoals drops goals that reached a terminal state more than ResultTimeout ago. Their
// handles become invalid.
func (as *ActionServer) ExpireGoals() ([]GoalInfo, error) {
	if !as.IsValid() {
		return nil, ErrServerInvalid
	}
	logger := *as.logger

	expired := as.goals.expire(as.options.ResultTimeout)
	if len(expired) > 0 {
		recordGoalsTracked(as.action, as.node.Name(), as.goals.count())
		logger.WithFields(logrus.Fields{"action": as.action, "expired": len(expired)}).Debug("expired goals removed")
	}
	return expired, nil
}

func (as *ActionServer) ActionName() (string, error) {
	if !as.IsValid() {
		return "", ErrServerInvalid
	}
	return as.action, nil
}

func (as *ActionServer) Options() (ServerOptions, error) {
	if !as.IsValid() {
		return ServerOptions{}, ErrServerInvalid
	}
	return as.options, nil
}
