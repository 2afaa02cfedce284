package actionlib

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	modular "github.com/edwinhayes/logrus-modular"

	"github.com/team-rocos/rosgo/ros"
)

// ActionClient is the client end of an action. The zero value is an uninitialized client on which
// every operation fails with ErrClientInvalid.
type ActionClient struct {
	state        lifecycle
	node         ros.Node
	action       string
	options      ClientOptions
	logger       *modular.ModuleLogger
	goalClient   ros.ServiceClient
	cancelClient ros.ServiceClient
	resultClient ros.ServiceClient
	feedbackSub  ros.Subscriber
	statusSub    ros.Subscriber
}

// NewActionClient creates and initializes a client for action on node.
func NewActionClient(node ros.Node, action string, opts ClientOptions) (*ActionClient, error) {
	ac := &ActionClient{}
	if err := ac.Init(node, action, opts); err != nil {
		return nil, err
	}
	return ac, nil
}

// Init creates the goal, cancel and result service clients and the feedback and status
// subscribers.
func (ac *ActionClient) Init(node ros.Node, action string, opts ClientOptions) error {
	if ac == nil {
		return errors.Wrap(ErrInvalidArgument, "action client is nil")
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
	if ac.state == lifecycleInitialized {
		return errors.Wrapf(ErrAlreadyInitialized, "action client %s", ac.action)
	}

	logger := *node.Logger()
	logger.Debugf("Initializing action client for action name '%s'", action)

	c := &ActionClient{
		node:    node,
		action:  action,
		options: opts,
		logger:  node.Logger(),
	}
	if err := c.createChannels(names); err != nil {
		c.closeChannels()
		return err
	}
	c.state = lifecycleInitialized
	*ac = *c

	logger.WithFields(logrus.Fields{"action": action}).Info("action client initialized")
	return nil
}

func (ac *ActionClient) createChannels(names actionNames) error {
	var err error
	if ac.goalClient, err = ac.node.NewServiceClient(names.goalService, ac.options.GoalServiceQoS); err != nil {
		return errors.Wrap(err, "failed to create goal client")
	}
	if ac.cancelClient, err = ac.node.NewServiceClient(names.cancelService, ac.options.CancelServiceQoS); err != nil {
		return errors.Wrap(err, "failed to create cancel client")
	}
	if ac.resultClient, err = ac.node.NewServiceClient(names.resultService, ac.options.ResultServiceQoS); err != nil {
		return errors.Wrap(err, "failed to create result client")
	}
	if ac.feedbackSub, err = ac.node.NewSubscriber(names.feedbackTopic, ac.options.FeedbackTopicQoS); err != nil {
		return errors.Wrap(err, "failed to create feedback subscriber")
	}
	if ac.statusSub, err = ac.node.NewSubscriber(names.statusTopic, ac.options.StatusTopicQoS); err != nil {
		return errors.Wrap(err, "failed to create status subscriber")
	}
	return nil
}

func (ac *ActionClient) closeChannels() {
	for _, c := range []interface{ Shutdown() }{ac.goalClient, ac.cancelClient, ac.resultClient, ac.feedbackSub, ac.statusSub} {
		if c != nil {
			c.Shutdown()
		}
	}
	ac.goalClient, ac.cancelClient, ac.resultClient = nil, nil, nil
	ac.feedbackSub, ac.statusSub = nil, nil
}

// Shutdown closes the client's channels and invalidates it. The node is left running.
func (ac *ActionClient) Shutdown() error {
	if !ac.IsValid() {
		return ErrClientInvalid
	}
	logger := *ac.logger

	ac.closeChannels()
	ac.state = lifecycleUninitialized

	logger.WithFields(logrus.Fields{"action": ac.action}).Info("action client shut down")
	return nil
}

// IsValid reports whether the client has been initialized and not shut down.
func (ac *ActionClient) IsValid() bool {
	return ac != nil && ac.state == lifecycleInitialized
}

func (ac *ActionClient) validate(arg ros.Message, what string) error {
	if !ac.IsValid() {
		return ErrClientInvalid
	}
	if ros.IsNilMessage(arg) {
		return errors.Wrapf(ErrInvalidArgument, "%s is nil", what)
	}
	return nil
}

func (ac *ActionClient) sendRequest(cli ros.ServiceClient, kind string, req ros.Message) (int64, error) {
	if err := ac.validate(req, kind+" request"); err != nil {
		return 0, err
	}
	logger := *ac.logger
	seq, err := cli.SendRequest(req)
	if err != nil {
		return 0, err
	}
	logger.Debugf("Action %s request sent (sequence %d)", kind, seq)
	return seq, nil
}

func (ac *ActionClient) takeResponse(cli ros.ServiceClient, kind string, out ros.Message) (ros.RequestID, bool, error) {
	if err := ac.validate(out, kind+" response"); err != nil {
		return ros.RequestID{}, false, err
	}
	logger := *ac.logger
	id, taken, err := cli.TakeResponse(out)
	if err != nil {
		return ros.RequestID{}, false, err
	}
	if taken {
		logger.Debugf("Action %s response taken (%s)", kind, id)
	}
	return id, taken, nil
}

func (ac *ActionClient) take(sub ros.Subscriber, kind string, out ros.Message) (bool, error) {
	if err := ac.validate(out, kind); err != nil {
		return false, err
	}
	logger := *ac.logger
	taken, err := sub.Take(out)
	if err != nil {
		return false, err
	}
	if taken {
		logger.Debugf("Action %s taken", kind)
	}
	return taken, nil
}

// SendGoalRequest sends req on the goal service and returns its sequence number.
func (ac *ActionClient) SendGoalRequest(req ros.Message) (int64, error) {
	if !ac.IsValid() {
		return 0, ErrClientInvalid
	}
	return ac.sendRequest(ac.goalClient, "goal", req)
}

// TakeGoalResponse polls the goal service. taken is false, with a nil error, when nothing is
// queued.
func (ac *ActionClient) TakeGoalResponse(out ros.Message) (ros.RequestID, bool, error) {
	if !ac.IsValid() {
		return ros.RequestID{}, false, ErrClientInvalid
	}
	return ac.takeResponse(ac.goalClient, "goal", out)
}

// SendCancelRequest sends req, normally a *CancelRequest, on the cancel service.
func (ac *ActionClient) SendCancelRequest(req ros.Message) (int64, error) {
	if !ac.IsValid() {
		return 0, ErrClientInvalid
	}
	return ac.sendRequest(ac.cancelClient, "cancel", req)
}

func (ac *ActionClient) TakeCancelResponse(out ros.Message) (ros.RequestID, bool, error) {
	if !ac.IsValid() {
		return ros.RequestID{}, false, ErrClientInvalid
	}
	return ac.takeResponse(ac.cancelClient, "cancel", out)
}

func (ac *ActionClient) SendResultRequest(req ros.Message) (int64, error) {
	if !ac.IsValid() {
		return 0, ErrClientInvalid
	}
	return ac.sendRequest(ac.resultClient, "result", req)
}

func (ac *ActionClient) TakeResultResponse(out ros.Message) (ros.RequestID, bool, error) {
	if !ac.IsValid() {
		return ros.RequestID{}, false, ErrClientInvalid
	}
	return ac.takeResponse(ac.resultClient, "result", out)
}

// TakeFeedback polls the feedback topic.
func (ac *ActionClient) TakeFeedback(out ros.Message) (bool, error) {
	if !ac.IsValid() {
		return false, ErrClientInvalid
	}
	return ac.take(ac.feedbackSub, "feedback", out)
}

// TakeStatus polls the status topic; out is normally a *GoalStatusArray.
func (ac *ActionClient) TakeStatus(out ros.Message) (bool, error) {
	if !ac.IsValid() {
		return false, ErrClientInvalid
	}
	return ac.take(ac.statusSub, "status", out)
}

// ServerIsAvailable reports whether all three services have a server and both topics have a
// publisher.
func (ac *ActionClient) ServerIsAvailable() (bool, error) {
	if !ac.IsValid() {
		return false, ErrClientInvalid
	}
	return ac.goalClient.ServerAvailable() &&
		ac.cancelClient.ServerAvailable() &&
		ac.resultClient.ServerAvailable() &&
		ac.feedbackSub.GetNumPublishers() > 0 &&
		ac.statusSub.GetNumPublishers() > 0, nil
}

// WaitForServer polls ServerIsAvailable every poll interval until it reports true or ctx is done.
func (ac *ActionClient) WaitForServer(ctx context.Context, poll time.Duration) error {
	if !ac.IsValid() {
		return ErrClientInvalid
	}
	if poll <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "poll interval must be positive, got %s", poll)
	}
	logger := *ac.logger
	logger.WithFields(logrus.Fields{"action": ac.action}).Info("Waiting for action server to start")

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		available, err := ac.ServerIsAvailable()
		if err != nil {
			return err
		}
		if available {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "action server %s not available", ac.action)
		case <-ticker.C:
		}
	}
}

func (ac *ActionClient) ActionName() (string, error) {
	if !ac.IsValid() {
		return "", ErrClientInvalid
	}
	return ac.action, nil
}

func (ac *ActionClient) Options() (ClientOptions, error) {
	if !ac.IsValid() {
		return ClientOptions{}, ErrClientInvalid
	}
	return ac.options, nil
}
