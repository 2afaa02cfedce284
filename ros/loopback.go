package ros

import (
	"bytes"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	modular "github.com/edwinhayes/logrus-modular"
)

// Loopback is an in-process bus connecting the services and topics of every node created from it.
// Messages are serialized on send and deserialized on take, so both ends hold independent copies.
type Loopback struct {
	mutex    sync.Mutex
	services map[string]*loopbackService
	topics   map[string]*loopbackTopic
}

type loopbackService struct {
	servers []*loopbackServiceServer
	clients map[[16]byte]*loopbackServiceClient
}

type loopbackTopic struct {
	publishers  []*loopbackPublisher
	subscribers []*loopbackSubscriber
	latched     messageQueue
}

// MaxLatchedMessages bounds the history a keep-all transient-local publisher replays to late
// subscribers.
const MaxLatchedMessages = 1000

type queuedMessage struct {
	id   RequestID
	data []byte
}

// messageQueue is a FIFO honouring a QoS history policy.
type messageQueue struct {
	qos   QoSProfile
	items []queuedMessage
}

func (q *messageQueue) push(m queuedMessage) {
	if q.qos.History == KeepLast && q.qos.Depth > 0 && len(q.items) >= q.qos.Depth {
		q.items = q.items[1:]
	}
	q.items = append(q.items, m)
}

func (q *messageQueue) pop() (queuedMessage, bool) {
	if len(q.items) == 0 {
		return queuedMessage{}, false
	}
	m := q.items[0]
	q.items[0] = queuedMessage{}
	q.items = q.items[1:]
	return m, true
}

// NewLoopback creates an empty bus.
func NewLoopback() *Loopback {
	return &Loopback{
		services: make(map[string]*loopbackService),
		topics:   make(map[string]*loopbackTopic),
	}
}

// NewNode creates a node attached to the bus. A nil logger gets a fresh logrus root logger.
func (b *Loopback) NewNode(name string, log *modular.ModuleLogger) Node {
	if log == nil {
		root := modular.NewRootLogger(logrus.New())
		module := root.GetModuleLogger()
		log = &module
	}
	return &loopbackNode{
		name:   name,
		bus:    b,
		logger: log,
		ok:     true,
	}
}

func (b *Loopback) service(name string) *loopbackService {
	s, ok := b.services[name]
	if !ok {
		s = &loopbackService{clients: make(map[[16]byte]*loopbackServiceClient)}
		b.services[name] = s
	}
	return s
}

func (b *Loopback) topic(name string) *loopbackTopic {
	t, ok := b.topics[name]
	if !ok {
		t = &loopbackTopic{}
		b.topics[name] = t
	}
	return t
}

func serialize(msg Message) ([]byte, error) {
	if IsNilMessage(msg) {
		return nil, errors.New("cannot serialize a nil message")
	}
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		return nil, errors.Wrap(err, "serialize failed")
	}
	return buf.Bytes(), nil
}

func deserialize(data []byte, msg Message) error {
	if IsNilMessage(msg) {
		return errors.New("cannot deserialize into a nil message")
	}
	if err := msg.Deserialize(bytes.NewReader(data)); err != nil {
		return errors.Wrap(err, "deserialize failed")
	}
	return nil
}

// loopbackNode implements Node on top of a Loopback bus.
type loopbackNode struct {
	name     string
	bus      *Loopback
	logger   *modular.ModuleLogger
	mutex    sync.Mutex
	ok       bool
	channels []interface{ Shutdown() }
}

func (n *loopbackNode) Name() string {
	return n.name
}

func (n *loopbackNode) OK() bool {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	return n.ok
}

func (n *loopbackNode) Logger() *modular.ModuleLogger {
	return n.logger
}

func (n *loopbackNode) track(c interface{ Shutdown() }) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if !n.ok {
		c.Shutdown()
		return errors.Errorf("node %s is shut down", n.name)
	}
	n.channels = append(n.channels, c)
	return nil
}

func (n *loopbackNode) Shutdown() {
	n.mutex.Lock()
	channels := n.channels
	n.channels = nil
	n.ok = false
	n.mutex.Unlock()

	for _, c := range channels {
		c.Shutdown()
	}
}

func (n *loopbackNode) NewServiceServer(service string, qos QoSProfile) (ServiceServer, error) {
	if service == "" {
		return nil, errors.New("service name is empty")
	}
	if err := qos.Validate(); err != nil {
		return nil, err
	}
	srv := &loopbackServiceServer{bus: n.bus, name: service, requests: messageQueue{qos: qos}}

	n.bus.mutex.Lock()
	s := n.bus.service(service)
	s.servers = append(s.servers, srv)
	n.bus.mutex.Unlock()

	if err := n.track(srv); err != nil {
		return nil, err
	}
	logger := *n.logger
	logger.WithFields(logrus.Fields{"node": n.name, "service": service}).Debug("loopback service server created")
	return srv, nil
}

func (n *loopbackNode) NewServiceClient(service string, qos QoSProfile) (ServiceClient, error) {
	if service == "" {
		return nil, errors.New("service name is empty")
	}
	if err := qos.Validate(); err != nil {
		return nil, err
	}
	cli := &loopbackServiceClient{bus: n.bus, name: service, guid: uuid.New(), responses: messageQueue{qos: qos}}

	n.bus.mutex.Lock()
	n.bus.service(service).clients[cli.guid] = cli
	n.bus.mutex.Unlock()

	if err := n.track(cli); err != nil {
		return nil, err
	}
	logger := *n.logger
	logger.WithFields(logrus.Fields{"node": n.name, "service": service}).Debug("loopback service client created")
	return cli, nil
}

func (n *loopbackNode) NewPublisher(topic string, qos QoSProfile) (Publisher, error) {
	if topic == "" {
		return nil, errors.New("topic name is empty")
	}
	if err := qos.Validate(); err != nil {
		return nil, err
	}
	pub := &loopbackPublisher{bus: n.bus, topic: topic, qos: qos}

	n.bus.mutex.Lock()
	t := n.bus.topic(topic)
	t.publishers = append(t.publishers, pub)
	if qos.Durability == TransientLocal {
		depth := qos.Depth
		if qos.History == KeepAll {
			depth = MaxLatchedMessages
		}
		if depth > t.latched.qos.Depth {
			t.latched.qos = QoSProfile{History: KeepLast, Depth: depth}
		}
	}
	n.bus.mutex.Unlock()

	if err := n.track(pub); err != nil {
		return nil, err
	}
	logger := *n.logger
	logger.WithFields(logrus.Fields{"node": n.name, "topic": topic}).Debug("loopback publisher created")
	return pub, nil
}

func (n *loopbackNode) NewSubscriber(topic string, qos QoSProfile) (Subscriber, error) {
	if topic == "" {
		return nil, errors.New("topic name is empty")
	}
	if err := qos.Validate(); err != nil {
		return nil, err
	}
	sub := &loopbackSubscriber{bus: n.bus, topic: topic, queue: messageQueue{qos: qos}}

	n.bus.mutex.Lock()
	t := n.bus.topic(topic)
	t.subscribers = append(t.subscribers, sub)
	if qos.Durability == TransientLocal {
		for _, m := range t.latched.items {
			sub.queue.push(m)
		}
	}
	n.bus.mutex.Unlock()

	if err := n.track(sub); err != nil {
		return nil, err
	}
	logger := *n.logger
	logger.WithFields(logrus.Fields{"node": n.name, "topic": topic}).Debug("loopback subscriber created")
	return sub, nil
}

// Service server.

type loopbackServiceServer struct {
	bus      *Loopback
	name     string
	requests messageQueue
	closed   bool
}

func (s *loopbackServiceServer) TakeRequest(req Message) (RequestID, bool, error) {
	s.bus.mutex.Lock()
	if s.closed {
		s.bus.mutex.Unlock()
		return RequestID{}, false, ErrChannelClosed
	}
	m, ok := s.requests.pop()
	s.bus.mutex.Unlock()

	if !ok {
		return RequestID{}, false, nil
	}
	if err := deserialize(m.data, req); err != nil {
		return RequestID{}, false, err
	}
	return m.id, true, nil
}

// SendResponse routes the response to the client that issued id. Responses for clients that are
// gone are dropped, as a middleware would.
func (s *loopbackServiceServer) SendResponse(id RequestID, res Message) error {
	data, err := serialize(res)
	if err != nil {
		return err
	}

	s.bus.mutex.Lock()
	defer s.bus.mutex.Unlock()

	if s.closed {
		return ErrChannelClosed
	}
	if cli, ok := s.bus.service(s.name).clients[id.WriterGUID]; ok && !cli.closed {
		cli.responses.push(queuedMessage{id: id, data: data})
	}
	return nil
}

func (s *loopbackServiceServer) Shutdown() {
	s.bus.mutex.Lock()
	defer s.bus.mutex.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	svc := s.bus.service(s.name)
	for i, srv := range svc.servers {
		if srv == s {
			svc.servers = append(svc.servers[:i], svc.servers[i+1:]...)
			break
		}
	}
}

// Service client.

type loopbackServiceClient struct {
	bus       *Loopback
	name      string
	guid      [16]byte
	sequence  int64
	responses messageQueue
	closed    bool
}

func (c *loopbackServiceClient) SendRequest(req Message) (int64, error) {
	data, err := serialize(req)
	if err != nil {
		return 0, err
	}

	c.bus.mutex.Lock()
	defer c.bus.mutex.Unlock()

	if c.closed {
		return 0, ErrChannelClosed
	}
	c.sequence++
	id := RequestID{WriterGUID: c.guid, SequenceNumber: c.sequence}
	for _, srv := range c.bus.service(c.name).servers {
		srv.requests.push(queuedMessage{id: id, data: data})
	}
	return c.sequence, nil
}

func (c *loopbackServiceClient) TakeResponse(res Message) (RequestID, bool, error) {
	c.bus.mutex.Lock()
	if c.closed {
		c.bus.mutex.Unlock()
		return RequestID{}, false, ErrChannelClosed
	}
	m, ok := c.responses.pop()
	c.bus.mutex.Unlock()

	if !ok {
		return RequestID{}, false, nil
	}
	if err := deserialize(m.data, res); err != nil {
		return RequestID{}, false, err
	}
	return m.id, true, nil
}

func (c *loopbackServiceClient) ServerAvailable() bool {
	c.bus.mutex.Lock()
	defer c.bus.mutex.Unlock()

	return !c.closed && len(c.bus.service(c.name).servers) > 0
}

func (c *loopbackServiceClient) Shutdown() {
	c.bus.mutex.Lock()
	defer c.bus.mutex.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	delete(c.bus.service(c.name).clients, c.guid)
}

// Publisher.

type loopbackPublisher struct {
	bus    *Loopback
	topic  string
	qos    QoSProfile
	closed bool
}

func (p *loopbackPublisher) Publish(msg Message) error {
	data, err := serialize(msg)
	if err != nil {
		return err
	}

	p.bus.mutex.Lock()
	defer p.bus.mutex.Unlock()

	if p.closed {
		return ErrChannelClosed
	}
	t := p.bus.topic(p.topic)
	m := queuedMessage{data: data}
	if p.qos.Durability == TransientLocal {
		t.latched.push(m)
	}
	for _, sub := range t.subscribers {
		sub.queue.push(m)
	}
	return nil
}

func (p *loopbackPublisher) GetNumSubscribers() int {
	p.bus.mutex.Lock()
	defer p.bus.mutex.Unlock()

	return len(p.bus.topic(p.topic).subscribers)
}

func (p *loopbackPublisher) Shutdown() {
	p.bus.mutex.Lock()
	defer p.bus.mutex.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	t := p.bus.topic(p.topic)
	for i, pub := range t.publishers {
		if pub == p {
			t.publishers = append(t.publishers[:i], t.publishers[i+1:]...)
			break
		}
	}
}

// Subscriber.

type loopbackSubscriber struct {
	bus    *Loopback
	topic  string
	queue  messageQueue
	closed bool
}

func (s *loopbackSubscriber) Take(msg Message) (bool, error) {
	s.bus.mutex.Lock()
	if s.closed {
		s.bus.mutex.Unlock()
		return false, ErrChannelClosed
	}
	m, ok := s.queue.pop()
	s.bus.mutex.Unlock()

	if !ok {
		return false, nil
	}
	if err := deserialize(m.data, msg); err != nil {
		return false, err
	}
	return true, nil
}

func (s *loopbackSubscriber) GetNumPublishers() int {
	s.bus.mutex.Lock()
	defer s.bus.mutex.Unlock()

	return len(s.bus.topic(s.topic).publishers)
}

func (s *loopbackSubscriber) Shutdown() {
	s.bus.mutex.Lock()
	defer s.bus.mutex.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	t := s.bus.topic(s.topic)
	for i, sub := range t.subscribers {
		if sub == s {
			t.subscribers = append(t.subscribers[:i], t.subscribers[i+1:]...)
			break
		}
	}
}
