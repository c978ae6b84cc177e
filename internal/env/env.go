// Package env wires together the entry environments (component G): the
// shared base of coordinator + reactor + logger every process needs, and
// the two concrete shapes built on top of it, a standalone service and a
// pipe client, mirroring common.c's zenv_s/zsrv_env_s/zclt_env_s split.
package env

import (
	"fmt"
	"time"

	"github.com/jabolina/go-fabric/internal/coordinator"
	"github.com/jabolina/go-fabric/internal/ident"
	"github.com/jabolina/go-fabric/internal/logging"
	"github.com/jabolina/go-fabric/internal/reactor"
	"github.com/jabolina/go-fabric/internal/service"
	"github.com/jabolina/go-fabric/internal/socket"
	"github.com/jabolina/go-fabric/internal/types"
)

const sessionTimeout = 5 * time.Second

// Base is the environment shared by every entry point: a coordinator
// session, a reactor, and a logger.
type Base struct {
	Coordinator *coordinator.Coordinator
	Reactor     *reactor.Reactor
	Log         logging.Logger
}

func newBase(zkAddr string, debug bool) (*Base, error) {
	log := logging.New(debug)
	coord, err := coordinator.New([]string{zkAddr}, sessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("env: connecting to coordinator %s: %w", zkAddr, err)
	}
	r := reactor.New(log.Named("reactor"))
	r.AddCoordinator(coord)
	return &Base{Coordinator: coord, Reactor: r, Log: log}, nil
}

// ServiceEnv is the environment a standalone service process runs in.
type ServiceEnv struct {
	*Base
	Service *service.Service
}

// NewService builds a ServiceEnv for srvtype: identity generation,
// service construction, registration in the reactor, all in the same
// order common.c's zsrv_env_init performs.
func NewService(zkAddr, srvtype string, debug bool) (*ServiceEnv, error) {
	base, err := newBase(zkAddr, debug)
	if err != nil {
		return nil, err
	}
	identity := ident.New()
	svc, err := service.New(srvtype, identity, base.Coordinator, base.Log.Named("zsock"))
	if err != nil {
		base.Coordinator.Close()
		return nil, fmt.Errorf("env: creating service %s: %w", srvtype, err)
	}
	svc.RegisterInReactor(base.Reactor)
	return &ServiceEnv{Base: base, Service: svc}, nil
}

// Close tears down the service's sockets, then the coordinator session,
// matching the service->reactor->transport->coordinator order of §5.
func (e *ServiceEnv) Close() error {
	err := e.Service.Close()
	e.Coordinator.Close()
	return err
}

// ClientEnv is the environment the pipe CLI runs in: one socket of a
// given kind, connected to a single peer type.
type ClientEnv struct {
	*Base
	Socket *socket.Socket
}

// NewClient builds a ClientEnv of kind k, connecting to peerType under
// the "all" selection policy, matching zclt_env_init.
func NewClient(zkAddr string, k types.Kind, peerType string, debug bool) (*ClientEnv, error) {
	base, err := newBase(zkAddr, debug)
	if err != nil {
		return nil, err
	}
	identity := ident.New()
	sock, err := socket.New("client", k, identity, base.Coordinator, base.Log.Named("zsock"))
	if err != nil {
		base.Coordinator.Close()
		return nil, fmt.Errorf("env: creating client socket: %w", err)
	}
	sock.AddTarget(peerType, "all")
	sock.RegisterInReactor(base.Reactor)
	return &ClientEnv{Base: base, Socket: sock}, nil
}

// Close tears down the socket, then the coordinator session.
func (e *ClientEnv) Close() error {
	err := e.Socket.Close()
	e.Coordinator.Close()
	return err
}
