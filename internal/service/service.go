// Package service implements the Service object (component F): it loads
// its manifest from /services/<srvtype>, materializes one internal/socket
// per declared entry, and exposes them by name to application code. A
// "_tick" SUB socket is always pre-registered, before the manifest is
// even fetched, mirroring zservice_create_and_register in the original
// implementation.
package service

import (
	"fmt"

	"github.com/jabolina/go-fabric/internal/kind"
	"github.com/jabolina/go-fabric/internal/logging"
	"github.com/jabolina/go-fabric/internal/reactor"
	"github.com/jabolina/go-fabric/internal/socket"
	"github.com/jabolina/go-fabric/internal/types"
	"github.com/jabolina/go-fabric/internal/wire"
)

const tickSocketName = "_tick"

// Coordinator is the slice of internal/coordinator.Coordinator's API this
// package depends on.
type Coordinator interface {
	socket.Coordinator
	WatchGet(path string, onGet func([]byte, error), onWatch func()) bool
}

// Service is one named entry point in the fabric: a srvtype, an identity,
// and the set of sockets its manifest declares.
type Service struct {
	srvtype  string
	identity types.Identity
	coord    Coordinator
	log      logging.Logger

	sockets    map[string]*socket.Socket
	registered map[string]bool
	configured bool
	onConfig   func()

	reactor *reactor.Reactor
}

// New allocates a Service for srvtype, pre-creating its "_tick" socket.
// RegisterInReactor must be called once a reactor is available.
func New(srvtype string, identity types.Identity, coord Coordinator, log logging.Logger) (*Service, error) {
	svc := &Service{
		srvtype:    srvtype,
		identity:   identity,
		coord:      coord,
		log:        log,
		sockets:    make(map[string]*socket.Socket),
		registered: map[string]bool{},
	}
	tick, err := socket.New(srvtype+"."+tickSocketName, types.KindSub, identity, coord, log)
	if err != nil {
		return nil, fmt.Errorf("service %s: creating tick socket: %w", srvtype, err)
	}
	svc.sockets[tickSocketName] = tick
	return svc, nil
}

// OnConfig registers a hook fired exactly once, the first time the
// manifest is successfully loaded and its sockets materialized.
func (svc *Service) OnConfig(fn func()) { svc.onConfig = fn }

// Get returns a previously declared socket by manifest name. Requesting
// an unknown name is a programmer error: the caller asked for a socket
// its own manifest never declared, so this is fatal rather than an error
// return.
func (svc *Service) Get(name string) *socket.Socket {
	s, ok := svc.sockets[name]
	if !ok {
		svc.log.Fatalf("service %s: requested undeclared socket %q", svc.srvtype, name)
	}
	return s
}

// RegisterInReactor registers the tick socket, then requests a watched
// fetch of this service's manifest.
func (svc *Service) RegisterInReactor(r *reactor.Reactor) {
	svc.reactor = r
	svc.sockets[tickSocketName].RegisterInReactor(r)
	svc.registered[tickSocketName] = true

	path := fmt.Sprintf("/services/%s", svc.srvtype)
	if !svc.coord.WatchGet(path, svc.onConfigGet, svc.onConfigWatch) {
		svc.log.Errorf("service %s: failed requesting manifest", svc.srvtype)
	}
}

func (svc *Service) onConfigGet(data []byte, err error) {
	if err != nil {
		svc.log.Warnf("service %s: manifest fetch failed: %v", svc.srvtype, err)
		return
	}
	cfg, ok := wire.DecodeServiceCfg(svc.log, data)
	if !ok {
		svc.log.Warnf("service %s: manifest invalid, skipping", svc.srvtype)
		return
	}

	for _, sc := range cfg.Sockets {
		if svc.registered[sc.Name] {
			svc.log.Warnf("service %s: socket %q already configured, config-drift detection skipped", svc.srvtype, sc.Name)
			continue
		}
		k, kerr := kind.Resolve(sc.Type)
		if kerr != nil {
			svc.log.Warnf("service %s: socket %q has invalid kind %q, skipped", svc.srvtype, sc.Name, sc.Type)
			continue
		}
		fullname := svc.srvtype + "." + sc.Name
		sock, err := socket.New(fullname, k, svc.identity, svc.coord, svc.log)
		if err != nil {
			svc.log.Errorf("service %s: creating socket %q: %v", svc.srvtype, sc.Name, err)
			continue
		}
		sock.Configure(sc)
		svc.sockets[sc.Name] = sock
		sock.RegisterInReactor(svc.reactor)
		svc.registered[sc.Name] = true
	}

	if !svc.configured {
		svc.configured = true
		if svc.onConfig != nil {
			svc.onConfig()
		}
	}
}

func (svc *Service) onConfigWatch() {
	path := fmt.Sprintf("/services/%s", svc.srvtype)
	if !svc.coord.WatchGet(path, svc.onConfigGet, svc.onConfigWatch) {
		svc.log.Warnf("service %s: failed re-requesting manifest watch", svc.srvtype)
	}
}

// Close tears down every materialized socket.
func (svc *Service) Close() error {
	var firstErr error
	for _, s := range svc.sockets {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
