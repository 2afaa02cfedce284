package ros

import (
	"reflect"

	"github.com/pkg/errors"

	modular "github.com/edwinhayes/logrus-modular"
)

// ErrChannelClosed is returned by channels that have been shut down.
var ErrChannelClosed = errors.New("channel is shut down")

// HistoryPolicy selects how a queue behaves once it holds Depth messages.
type HistoryPolicy uint8

const (
	KeepLast HistoryPolicy = iota
	KeepAll
)

// DurabilityPolicy selects whether late subscribers receive previously published messages.
type DurabilityPolicy uint8

const (
	Volatile DurabilityPolicy = iota
	TransientLocal
)

// QoSProfile describes the queueing behaviour of a service or topic.
type QoSProfile struct {
	History    HistoryPolicy    `env:"HISTORY"`
	Depth      int              `env:"DEPTH"`
	Durability DurabilityPolicy `env:"DURABILITY"`
}

// Validate checks that a keep-last profile has room for at least one message.
func (q QoSProfile) Validate() error {
	if q.History == KeepLast && q.Depth <= 0 {
		return errors.Errorf("keep-last QoS requires a positive depth, got %d", q.Depth)
	}
	return nil
}

// Node is the collaborator that creates request/response channels and topics.
type Node interface {
	Name() string
	OK() bool
	Logger() *modular.ModuleLogger
	NewServiceServer(service string, qos QoSProfile) (ServiceServer, error)
	NewServiceClient(service string, qos QoSProfile) (ServiceClient, error)
	NewPublisher(topic string, qos QoSProfile) (Publisher, error)
	NewSubscriber(topic string, qos QoSProfile) (Subscriber, error)
	Shutdown()
}

// IsNilNode reports whether n is nil, an interface holding a nil pointer, or a node without a
// logger.
func IsNilNode(n Node) bool {
	if n == nil {
		return true
	}
	if v := reflect.ValueOf(n); v.Kind() == reflect.Ptr && v.IsNil() {
		return true
	}
	return n.Logger() == nil
}

// ServiceServer is the serving end of a request/response channel.
// TakeRequest reports taken == false with a nil error when no request is queued.
type ServiceServer interface {
	TakeRequest(req Message) (RequestID, bool, error)
	SendResponse(id RequestID, res Message) error
	Shutdown()
}

// ServiceClient is the calling end of a request/response channel.
type ServiceClient interface {
	SendRequest(req Message) (int64, error)
	TakeResponse(res Message) (RequestID, bool, error)
	ServerAvailable() bool
	Shutdown()
}

type Publisher interface {
	Publish(msg Message) error
	GetNumSubscribers() int
	Shutdown()
}

// Subscriber polls a topic. Take reports taken == false with a nil error when nothing is queued.
type Subscriber interface {
	Take(msg Message) (bool, error)
	GetNumPublishers() int
	Shutdown()
}
