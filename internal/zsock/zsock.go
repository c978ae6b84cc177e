// Package zsock wraps the messaging transport (github.com/luxfi/zmq/v4)
// behind a small per-URL connect/disconnect contract that internal/socket
// builds its refcounted reconciliation on top of. Each bound or connected
// URL gets its own underlying zmq4.Socket so that Disconnect(url) can
// simply close that one socket, rather than depend on a
// disconnect-one-endpoint primitive the pure-Go ZMQ4 implementation
// doesn't expose the way libzmq's zmq_disconnect does.
package zsock

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/luxfi/zmq/v4"

	"github.com/jabolina/go-fabric/internal/logging"
	"github.com/jabolina/go-fabric/internal/types"
)

// Envelope carries one received message, or a terminal receive error.
type Envelope struct {
	Data []byte
	Err  error
}

// Socket is one messaging endpoint of a given kind, fanning the
// zero-or-more underlying ZMQ4 sockets bound/connected under it into a
// single receive channel.
type Socket struct {
	kind types.Kind
	log  logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	bound     map[string]zmq4.Socket
	peers     map[string]zmq4.Socket
	peerOrder []string
	nextPeer  int
	recvCh    chan Envelope
}

// New allocates a Socket of the given kind. Only PUB/SUB/PUSH/PULL are
// supported, matching the fabric's socket-kind registry.
func New(k types.Kind, log logging.Logger) (*Socket, error) {
	switch k {
	case types.KindPub, types.KindSub, types.KindPush, types.KindPull:
	default:
		return nil, fmt.Errorf("zsock: unsupported kind %v", k)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Socket{
		kind:   k,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		bound:  make(map[string]zmq4.Socket),
		peers:  make(map[string]zmq4.Socket),
		recvCh: make(chan Envelope, 64),
	}, nil
}

func (s *Socket) newRaw() zmq4.Socket {
	switch s.kind {
	case types.KindPub:
		return zmq4.NewPub(s.ctx)
	case types.KindSub:
		sock := zmq4.NewSub(s.ctx)
		_ = sock.SetOption(zmq4.OptionSubscribe, "")
		return sock
	case types.KindPush:
		return zmq4.NewPush(s.ctx)
	case types.KindPull:
		return zmq4.NewPull(s.ctx)
	default:
		return nil
	}
}

func (s *Socket) wantsInput() bool {
	return s.kind == types.KindSub || s.kind == types.KindPull
}

// Bind listens on url, resolving an ephemeral "tcp://host:0" request to
// its concrete port first (standing in for a ZMQ_LAST_ENDPOINT
// readback). Returns the resolved URL that should be advertised to the
// coordinator.
func (s *Socket) Bind(url string) (string, error) {
	resolved, err := resolveBindAddr(url)
	if err != nil {
		return "", err
	}
	raw := s.newRaw()
	if err := raw.Listen(resolved); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.bound[url] = raw
	s.mu.Unlock()
	if s.wantsInput() {
		go s.recvLoop(raw)
	}
	return resolved, nil
}

// Connect dials url, tracking it under its own zmq4 socket so it can
// later be torn down independently of any other peer.
func (s *Socket) Connect(url string) error {
	raw := s.newRaw()
	if err := raw.Dial(url); err != nil {
		return err
	}
	s.mu.Lock()
	s.peers[url] = raw
	s.peerOrder = append(s.peerOrder, url)
	s.mu.Unlock()
	if s.wantsInput() {
		go s.recvLoop(raw)
	}
	return nil
}

// Disconnect tears down the connection previously opened by Connect(url).
func (s *Socket) Disconnect(url string) error {
	s.mu.Lock()
	raw, ok := s.peers[url]
	delete(s.peers, url)
	s.removePeerOrder(url)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("zsock: not connected to %s", url)
	}
	return raw.Close()
}

func (s *Socket) removePeerOrder(url string) {
	for i, u := range s.peerOrder {
		if u == url {
			s.peerOrder = append(s.peerOrder[:i], s.peerOrder[i+1:]...)
			return
		}
	}
}

// Send delivers payload according to this socket's kind. PUB broadcasts to
// every bound listener and connected peer. PUSH round-robins: exactly one
// connected peer gets the message, matching ZMQ_PUSH's load-balancing
// contract rather than PUB's fan-out. SUB/PULL callers never invoke Send.
func (s *Socket) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind == types.KindPush {
		return s.sendRoundRobin(payload)
	}
	var firstErr error
	send := func(raw zmq4.Socket) {
		if err := raw.Send(zmq4.NewMsg(payload)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, raw := range s.bound {
		send(raw)
	}
	for _, raw := range s.peers {
		send(raw)
	}
	return firstErr
}

// sendRoundRobin picks the next peer in s.peerOrder and sends to only that
// one, advancing the index so the following Send lands on a different peer.
// Must be called with s.mu held.
func (s *Socket) sendRoundRobin(payload []byte) error {
	if len(s.peerOrder) == 0 {
		return fmt.Errorf("zsock: no connected peer to push to")
	}
	if s.nextPeer >= len(s.peerOrder) {
		s.nextPeer = 0
	}
	url := s.peerOrder[s.nextPeer]
	s.nextPeer = (s.nextPeer + 1) % len(s.peerOrder)
	raw, ok := s.peers[url]
	if !ok {
		return fmt.Errorf("zsock: push peer %s missing", url)
	}
	return raw.Send(zmq4.NewMsg(payload))
}

// HasEndpoint reports whether this socket currently has at least one
// bound listener or connected peer, the precondition for output
// readiness.
func (s *Socket) HasEndpoint() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bound) > 0 || len(s.peers) > 0
}

// Recv is the fan-in channel every bound/connected raw socket's received
// messages land on.
func (s *Socket) Recv() <-chan Envelope { return s.recvCh }

func (s *Socket) recvLoop(raw zmq4.Socket) {
	for {
		msg, err := raw.Recv()
		if err != nil {
			select {
			case s.recvCh <- Envelope{Err: err}:
			case <-s.ctx.Done():
			}
			return
		}
		select {
		case s.recvCh <- Envelope{Data: msg.Bytes()}:
		case <-s.ctx.Done():
			return
		}
	}
}

// Close tears down every bound listener and connected peer.
func (s *Socket) Close() error {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, raw := range s.peers {
		if err := raw.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, raw := range s.bound {
		if err := raw.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.peers = make(map[string]zmq4.Socket)
	s.bound = make(map[string]zmq4.Socket)
	s.peerOrder = nil
	s.nextPeer = 0
	return firstErr
}

// resolveBindAddr resolves a "tcp://host:0" ephemeral bind request to its
// concrete port by briefly holding the port with a throwaway net.Listen.
// Non-tcp schemes and already-concrete ports pass through untouched.
func resolveBindAddr(raw string) (string, error) {
	const tcpScheme = "tcp://"
	if !strings.HasPrefix(raw, tcpScheme) {
		return raw, nil
	}
	hostport := strings.TrimPrefix(raw, tcpScheme)
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", fmt.Errorf("zsock: invalid bind url %q: %w", raw, err)
	}
	if port != "0" {
		return raw, nil
	}
	probe, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return "", fmt.Errorf("zsock: resolving ephemeral port for %q: %w", raw, err)
	}
	_, actualPort, _ := net.SplitHostPort(probe.Addr().String())
	if err := probe.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s", tcpScheme, net.JoinHostPort(host, actualPort)), nil
}
