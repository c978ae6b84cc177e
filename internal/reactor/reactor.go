// Package reactor is the single-threaded event loop every socket,
// target, and service completion is marshaled through. Rather than a
// literal poll(2) loop over zmq_pollitem_t entries, it is a Go select
// loop fed by per-source goroutines: one per registered transport
// forwarding Recv() envelopes, one per registered raw fd polling with
// golang.org/x/sys/unix, plus the coordinator's own completion and
// session-event channels. Every handler the loop invokes runs on this
// single goroutine, so nothing downstream needs its own lock.
package reactor

import (
	"context"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/jabolina/go-fabric/internal/coordinator"
	"github.com/jabolina/go-fabric/internal/logging"
	"github.com/jabolina/go-fabric/internal/types"
	"github.com/jabolina/go-fabric/internal/zsock"
)

// maxIdleDelay bounds how long the loop can go without re-checking
// output readiness and the coordinator's session state, mirroring the
// 60-second poll ceiling of the original reactor.
const maxIdleDelay = 60 * time.Second

// outputPollInterval is how often desired-output transports are
// re-checked for readiness, standing in for the zero-timeout poll a
// native poll(2) loop would perform every iteration.
const outputPollInterval = 20 * time.Millisecond

// Transport is what internal/socket's Socket implements to participate
// in the reactor: a dynamic interest mask, an output-readiness probe, and
// the channel its received messages arrive on.
type Transport interface {
	DesiredEvents() *types.Direction
	PollOutput() bool
	FireOutputReady()
	InputEvents() <-chan zsock.Envelope
	FireInputReady(zsock.Envelope)
}

type fdDelivery struct {
	handler func() error
}

// Reactor is the event loop.
type Reactor struct {
	log   logging.Logger
	coord *coordinator.Coordinator

	transports []Transport

	inputFanIn chan inputDelivery
	fdFanIn    chan fdDelivery
	done       chan struct{}
	stop       chan struct{}
	stopOnce   sync.Once

	runErr error
}

type inputDelivery struct {
	t   Transport
	env zsock.Envelope
}

// New builds an idle Reactor. AddCoordinator must be called before Run
// for coordinator completions to be serviced.
func New(log logging.Logger) *Reactor {
	return &Reactor{
		log:        log,
		inputFanIn: make(chan inputDelivery, 64),
		fdFanIn:    make(chan fdDelivery, 8),
		done:       make(chan struct{}),
		stop:       make(chan struct{}),
	}
}

// AddCoordinator registers the coordinator whose Completions() and
// SessionEvents() channels the loop selects on.
func (r *Reactor) AddCoordinator(c *coordinator.Coordinator) {
	r.coord = c
}

// AddTransport registers a messaging socket. A goroutine forwards its
// Recv() channel into the reactor's shared input fan-in for the lifetime
// of the reactor.
func (r *Reactor) AddTransport(t Transport) {
	r.transports = append(r.transports, t)
	recv := t.InputEvents()
	go func() {
		for {
			select {
			case env, ok := <-recv:
				if !ok {
					return
				}
				select {
				case r.inputFanIn <- inputDelivery{t: t, env: env}:
				case <-r.done:
					return
				}
			case <-r.done:
				return
			}
		}
	}()
}

// AddFD registers a raw file descriptor, polled for readability via
// pollFD (see fd_unix.go), used today only by the pipe CLI's
// non-blocking stdin reader.
func (r *Reactor) AddFD(fd int, handler func() error) {
	go pollFD(fd, handler, r.fdFanIn, r.done)
}

// Stop requests cooperative shutdown; Run returns on its next iteration.
// Safe to call more than once or concurrently with Run.
func (r *Reactor) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Run drives the event loop until Stop is called, ctx is canceled, or a
// handler returns an error. It returns 0 on a clean stop and a non-zero
// code if a handler failed, matching the C reactor's
// running-flag-as-exit-code contract.
func (r *Reactor) Run(ctx context.Context) int {
	defer close(r.done)

	ticker := time.NewTicker(outputPollInterval)
	defer ticker.Stop()

	ceiling := time.NewTimer(maxIdleDelay)
	defer ceiling.Stop()

	running := true
	for running {
		r.pollOutputs()

		select {
		case <-ctx.Done():
			running = false

		case <-r.stop:
			running = false

		case comp, ok := <-r.completions():
			if ok {
				comp()
			}

		case <-r.sessionEvents():
			// Session transitions are observed implicitly: any watch the
			// coordinator is holding fires again, which targets and
			// services already treat as "list wanted". Nothing to do here
			// beyond draining the channel so it doesn't back up.

		case d := <-r.inputFanIn:
			d.t.FireInputReady(d.env)

		case fd := <-r.fdFanIn:
			if err := fd.handler(); err != nil {
				r.runErr = err
				running = false
			}

		case <-ticker.C:
			// wake to re-run pollOutputs

		case <-ceiling.C:
			ceiling.Reset(maxIdleDelay)
		}
	}

	if r.runErr != nil {
		return 1
	}
	return 0
}

func (r *Reactor) completions() <-chan coordinator.Completion {
	if r.coord == nil {
		return nil
	}
	return r.coord.Completions()
}

func (r *Reactor) sessionEvents() <-chan zk.Event {
	if r.coord == nil {
		return nil
	}
	return r.coord.SessionEvents()
}

func (r *Reactor) pollOutputs() {
	for _, t := range r.transports {
		desired := t.DesiredEvents()
		if desired.Has(types.DirOutput) && t.PollOutput() {
			t.FireOutputReady()
		}
	}
}
