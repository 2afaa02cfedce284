package actionlib

import (
	"testing"

	modular "github.com/edwinhayes/logrus-modular"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/team-rocos/rosgo/ros"
)

func newTestLogger() *modular.ModuleLogger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	root := modular.NewRootLogger(l)
	log := root.GetModuleLogger()
	return &log
}

// newTestPair creates a server and a client for action on a fresh loopback bus.
func newTestPair(t *testing.T, action string) (*ActionServer, *ActionClient) {
	t.Helper()
	bus := ros.NewLoopback()
	server, err := NewActionServer(bus.NewNode("test_server", newTestLogger()), action, DefaultServerOptions())
	if err != nil {
		t.Fatalf("could not create action server: %s", err)
	}
	client, err := NewActionClient(bus.NewNode("test_client", newTestLogger()), action, DefaultClientOptions())
	if err != nil {
		t.Fatalf("could not create action client: %s", err)
	}
	return server, client
}

func newTestServer(t *testing.T) *ActionServer {
	t.Helper()
	server, err := NewActionServer(ros.NewLoopback().NewNode("test_server", newTestLogger()), "test_action", DefaultServerOptions())
	if err != nil {
		t.Fatalf("could not create action server: %s", err)
	}
	return server
}

// ascendingGoalID returns 00 01 02 .. 0F.
func ascendingGoalID() GoalID {
	var id GoalID
	for i := range id {
		id[i] = byte(i)
	}
	return id
}

func goalIDWithByte(b byte) GoalID {
	var id GoalID
	id[GoalIDLen-1] = b
	return id
}

//
// Set up a failing transport fake
//

var errFakeTransport = errors.New("fake transport failure")

// failingNode creates channels that fail every call with errFakeTransport. Channel creation
// itself fails once failAfter channels have been created, when failAfter is non-negative.
type failingNode struct {
	logger    *modular.ModuleLogger
	failAfter int
	created   int
	closed    int
}

var _ ros.Node = &failingNode{}

func newFailingNode(failAfter int) *failingNode {
	return &failingNode{logger: newTestLogger(), failAfter: failAfter}
}

func (n *failingNode) Name() string { return "failing_node" }
func (n *failingNode) OK() bool { return true }
func (n *failingNode) Logger() *modular.ModuleLogger { return n.logger }
func (n *failingNode) Shutdown() {}
func (n *failingNode) channelClosed() { n.closed++ }

func (n *failingNode) create() error {
	if n.failAfter >= 0 && n.created >= n.failAfter {
		return errFakeTransport
	}
	n.created++
	return nil
}

func (n *failingNode) NewServiceServer(service string, qos ros.QoSProfile) (ros.ServiceServer, error) {
	if err := n.create(); err != nil {
		return nil, err
	}
	return &failingChannel{node: n}, nil
}

func (n *failingNode) NewServiceClient(service string, qos ros.QoSProfile) (ros.ServiceClient, error) {
	if err := n.create(); err != nil {
		return nil, err
	}
	return &failingChannel{node: n}, nil
}

func (n *failingNode) NewPublisher(topic string, qos ros.QoSProfile) (ros.Publisher, error) {
	if err := n.create(); err != nil {
		return nil, err
	}
	return &failingChannel{node: n}, nil
}

func (n *failingNode) NewSubscriber(topic string, qos ros.QoSProfile) (ros.Subscriber, error) {
	if err := n.create(); err != nil {
		return nil, err
	}
	return &failingChannel{node: n}, nil
}

type failingChannel struct {
	node *failingNode
}

func (c *failingChannel) TakeRequest(req ros.Message) (ros.RequestID, bool, error) {
	return ros.RequestID{}, false, errFakeTransport
}
func (c *failingChannel) SendResponse(id ros.RequestID, res ros.Message) error {
	return errFakeTransport
}
func (c *failingChannel) SendRequest(req ros.Message) (int64, error) {
	return 0, errFakeTransport
}
func (c *failingChannel) TakeResponse(res ros.Message) (ros.RequestID, bool, error) {
	return ros.RequestID{}, false, errFakeTransport
}
func (c *failingChannel) ServerAvailable() bool { return false }
func (c *failingChannel) Publish(msg ros.Message) error { return errFakeTransport }
func (c *failingChannel) GetNumSubscribers() int { return 0 }
func (c *failingChannel) Take(msg ros.Message) (bool, error) { return false, errFakeTransport }
func (c *failingChannel) GetNumPublishers() int { return 0 }
func (c *failingChannel) Shutdown() { c.node.channelClosed() }
