// Package socket implements the Socket object (one typed endpoint of a
// service or client) and its per-peer-type reconciler (target.go). All
// mutation of a Socket's and its targets' state happens on the reactor's
// single goroutine: the coordinator and transport deliver their results
// as reactor-invoked callbacks, never touching this package's state
// directly.
package socket

import (
	"fmt"

	"github.com/jabolina/go-fabric/internal/kind"
	"github.com/jabolina/go-fabric/internal/logging"
	"github.com/jabolina/go-fabric/internal/reactor"
	"github.com/jabolina/go-fabric/internal/types"
	"github.com/jabolina/go-fabric/internal/wire"
	"github.com/jabolina/go-fabric/internal/zsock"
)

// Coordinator is the slice of internal/coordinator.Coordinator's API this
// package depends on. Declaring it here (rather than importing the
// concrete type) lets tests exercise the reconciliation algorithm against
// a fake, with no ZooKeeper session required.
type Coordinator interface {
	WatchChildren(path string, onChildren func([]string, error), onWatch func()) bool
	Get(path string, onGet func([]byte, error)) bool
	CreateEphemeralSequential(path string, data []byte, onCreate func(string, error)) bool
}

// transport is the slice of internal/zsock.Socket's API this package
// depends on, for the same reason.
type transport interface {
	Bind(url string) (string, error)
	Connect(url string) error
	Disconnect(url string) error
	Send(payload []byte) error
	HasEndpoint() bool
	Recv() <-chan zsock.Envelope
	Close() error
}

// Socket is one messaging endpoint: a kind, zero or more bound URLs
// advertised to the coordinator, and zero or more targets (reconcilers)
// tracking peer types it connects out to.
type Socket struct {
	fullname string
	kind     types.Kind
	identity types.Identity

	coord     Coordinator
	transport transport
	log       logging.Logger

	bindSet         map[string]string // configured url -> resolved/advertised url
	targets         map[string]*Target
	liveConnections map[string]int

	desiredEvents types.Direction
	onReadyIn     func([]byte)
	onReadyOut    func()
}

// New allocates a Socket of kind k under fullname (e.g. "echo.out0"),
// wired to coord for discovery and stamped with identity on every
// advertisement it publishes.
func New(fullname string, k types.Kind, identity types.Identity, coord Coordinator, log logging.Logger) (*Socket, error) {
	t, err := zsock.New(k, log)
	if err != nil {
		return nil, err
	}
	return newWithTransport(fullname, k, identity, coord, log, t)
}

func newWithTransport(fullname string, k types.Kind, identity types.Identity, coord Coordinator, log logging.Logger, t transport) (*Socket, error) {
	return &Socket{
		fullname:        fullname,
		kind:            k,
		identity:        identity,
		coord:           coord,
		transport:       t,
		log:             log,
		bindSet:         make(map[string]string),
		targets:         make(map[string]*Target),
		liveConnections: make(map[string]int),
		desiredEvents:   kind.DefaultPollDir(k),
	}, nil
}

// Fullname returns the socket's coordinator-tree name.
func (s *Socket) Fullname() string { return s.fullname }

// Configure applies a manifest's connect/bind directives. Must be called
// before RegisterInReactor.
func (s *Socket) Configure(cfg types.SocketCfg) {
	for peerType, policy := range cfg.Connect {
		s.AddTarget(peerType, policy)
	}
	for _, url := range cfg.Bind {
		if err := s.Bind(url); err != nil {
			s.log.Warnf("socket %s: bind %s failed: %v", s.fullname, url, err)
		}
	}
}

// AddTarget declares interest in peerType under the given selection
// policy. Calling it twice for the same peer type updates the policy in
// place; it never creates a second reconciler for one peer type.
func (s *Socket) AddTarget(peerType, policy string) {
	if t, ok := s.targets[peerType]; ok {
		t.policy = policy
		return
	}
	s.targets[peerType] = newTarget(s, peerType, policy)
}

// TargetStats returns the reconciliation counters for peerType, and false
// if this socket has no target declared for it.
func (s *Socket) TargetStats(peerType string) (types.ReconcileStats, bool) {
	t, ok := s.targets[peerType]
	if !ok {
		return types.ReconcileStats{}, false
	}
	return t.Stats(), true
}

// Bind opens a listener for url (resolving an ephemeral port if needed)
// and records the advertised address for RegisterInReactor to publish.
func (s *Socket) Bind(url string) error {
	actual, err := s.transport.Bind(url)
	if err != nil {
		return err
	}
	s.bindSet[url] = actual
	return nil
}

// Ready reports whether the socket currently has somewhere to send: at
// least one live connection or bound listener. This is the Go analogue
// of the zero-timeout output poll the original zsock_ready performs;
// zmq4's event-driven sockets don't expose a raw poll primitive, so
// readiness here tracks connectivity rather than kernel send-buffer
// state.
func (s *Socket) Ready() bool {
	return len(s.liveConnections) > 0 || len(s.bindSet) > 0
}

// RegisterInReactor advertises every bound URL, starts every target's
// initial LIST, and registers the socket's transport with r. Binds are
// advertised before targets start connecting, so peers can discover this
// socket as soon as its listeners exist (Design Note: advertise before
// connect).
func (s *Socket) RegisterInReactor(r *reactor.Reactor) {
	for configured, actual := range s.bindSet {
		s.advertise(configured, actual)
	}
	for _, t := range s.targets {
		t.restartList()
	}
	r.AddTransport(s)
}

func (s *Socket) advertise(configuredURL, actualURL string) {
	rec := types.ListenRecord{
		Type: s.fullname,
		Kind: kind.Name(s.kind),
		URL:  actualURL,
		UUID: s.identity.UUID,
		Cell: s.identity.Cell,
	}
	body := wire.EncodeListenRecord(rec)
	path := fmt.Sprintf("/listen/%s/%s-", s.fullname, s.identity.UUID)
	ok := s.coord.CreateEphemeralSequential(path, body, func(full string, err error) {
		if err != nil {
			s.log.Errorf("socket %s: advertise %s failed: %v", s.fullname, configuredURL, err)
			return
		}
		s.log.Debugf("socket %s: advertised %s at %s", s.fullname, configuredURL, full)
	})
	if !ok {
		s.log.Warnf("socket %s: failed dispatching advertise for %s", s.fullname, configuredURL)
	}
}

// OnReadyIn registers the handler invoked whenever a message is
// received. Only meaningful for SUB/PULL sockets.
func (s *Socket) OnReadyIn(fn func([]byte)) { s.onReadyIn = fn }

// OnReadyOut registers the handler invoked when output becomes ready.
// Only meaningful for PUB/PUSH sockets.
func (s *Socket) OnReadyOut(fn func()) { s.onReadyOut = fn }

// Send hands payload to the transport: a PUB socket writes it to every
// bound listener and connected peer, a PUSH socket to one connected peer
// chosen round-robin.
func (s *Socket) Send(payload []byte) error {
	return s.transport.Send(payload)
}

// Close tears down every live connection and the underlying transport.
func (s *Socket) Close() error {
	for url := range s.liveConnections {
		if err := s.transport.Disconnect(url); err != nil {
			s.log.Warnf("socket %s: disconnect %s during teardown: %v", s.fullname, url, err)
		}
	}
	s.liveConnections = make(map[string]int)
	return s.transport.Close()
}

// retainConnection increments the refcount for url and reports whether
// this was the 0->1 transition that should trigger a real Connect.
func (s *Socket) retainConnection(url string) bool {
	s.liveConnections[url]++
	return s.liveConnections[url] == 1
}

// releaseConnection decrements the refcount for url and reports whether
// this was the ->0 transition that should trigger a real Disconnect.
func (s *Socket) releaseConnection(url string) bool {
	s.liveConnections[url]--
	if s.liveConnections[url] <= 0 {
		delete(s.liveConnections, url)
		return true
	}
	return false
}

// --- reactor.Transport implementation ---

// DesiredEvents exposes the live interest mask by reference so the
// reactor reads its current value on every iteration; FireOutputReady
// clears the output bit.
func (s *Socket) DesiredEvents() *types.Direction { return &s.desiredEvents }

// PollOutput reports whether this socket currently has an endpoint to
// send through, standing in for a kernel-level POLLOUT check.
func (s *Socket) PollOutput() bool { return s.transport.HasEndpoint() }

// FireOutputReady clears the output bit (edge-triggered: fires once per
// transition to ready, not once per reactor tick) and invokes the user
// hook.
func (s *Socket) FireOutputReady() {
	s.desiredEvents &^= types.DirOutput
	if s.onReadyOut != nil {
		s.onReadyOut()
	}
}

// InputEvents exposes the transport's receive channel to the reactor.
func (s *Socket) InputEvents() <-chan zsock.Envelope { return s.transport.Recv() }

// FireInputReady is the reactor's level-triggered input callback: every
// arriving message is handed straight to the user hook; a receive error
// is logged and not passed to the hook.
func (s *Socket) FireInputReady(env zsock.Envelope) {
	if env.Err != nil {
		s.log.Warnf("socket %s: receive error: %v", s.fullname, env.Err)
		return
	}
	if s.onReadyIn != nil {
		s.onReadyIn(env.Data)
	}
}
