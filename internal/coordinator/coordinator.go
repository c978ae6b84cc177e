// Package coordinator wraps a ZooKeeper session (github.com/go-zookeeper/zk)
// behind the non-blocking, completion-event contract the reactor expects:
// every Children/Get/Create call returns immediately having either
// dispatched a background request or not, and the result later arrives
// as a Completion closure on a single fan-in channel. The reactor invokes
// that closure on its own goroutine, so callback code in internal/socket
// and internal/service never races with itself.
package coordinator

import (
	"errors"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
)

// Completion is a closure carrying a finished coordinator request. The
// reactor calls it directly from its select loop.
type Completion func()

// Coordinator is a non-blocking façade over a zk.Conn.
type Coordinator struct {
	conn    *zk.Conn
	events  <-chan zk.Event
	done    chan struct{}
	closeWg sync.WaitGroup
	once    sync.Once

	completions chan Completion
}

// New dials the coordinator ensemble. sessionTimeout bounds how long the
// session survives a lost connection before ephemeral nodes are reaped.
func New(servers []string, sessionTimeout time.Duration) (*Coordinator, error) {
	conn, events, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		conn:        conn,
		events:      events,
		done:        make(chan struct{}),
		completions: make(chan Completion, 64),
	}, nil
}

// Completions is the fan-in channel the reactor selects on.
func (c *Coordinator) Completions() <-chan Completion { return c.completions }

// SessionEvents exposes the raw session event stream, mostly useful for
// logging connection-state transitions; targets and services learn about
// session churn through their own per-path watch channels instead.
func (c *Coordinator) SessionEvents() <-chan zk.Event { return c.events }

func (c *Coordinator) dispatch(work func() Completion) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	c.closeWg.Add(1)
	go func() {
		defer c.closeWg.Done()
		comp := work()
		select {
		case c.completions <- comp:
		case <-c.done:
		}
	}()
	return true
}

// forwardWatch waits on a watch channel returned by ChildrenW/GetW and,
// once it fires (for any reason: data change, child change, delete, or a
// session event), delivers onWatch as a Completion. Per the reconciler's
// contract, the event's specific type doesn't matter, only that the
// watch fired.
func (c *Coordinator) forwardWatch(watch <-chan zk.Event, onWatch func()) {
	c.closeWg.Add(1)
	go func() {
		defer c.closeWg.Done()
		select {
		case <-watch:
			select {
			case c.completions <- Completion(onWatch):
			case <-c.done:
			}
		case <-c.done:
		}
	}()
}

// WatchChildren issues a watched children listing. onChildren receives
// the result; onWatch fires later, at most once, when the watch trips.
// Returns false only if the coordinator is already closed.
func (c *Coordinator) WatchChildren(path string, onChildren func([]string, error), onWatch func()) bool {
	return c.dispatch(func() Completion {
		children, _, watch, err := c.conn.ChildrenW(path)
		if err == nil {
			c.forwardWatch(watch, onWatch)
		}
		return func() { onChildren(children, err) }
	})
}

// Get issues an unwatched data fetch.
func (c *Coordinator) Get(path string, onGet func([]byte, error)) bool {
	return c.dispatch(func() Completion {
		data, _, err := c.conn.Get(path)
		return func() { onGet(data, err) }
	})
}

// WatchGet issues a watched data fetch, used for service manifests.
func (c *Coordinator) WatchGet(path string, onGet func([]byte, error), onWatch func()) bool {
	return c.dispatch(func() Completion {
		data, _, watch, err := c.conn.GetW(path)
		if err == nil {
			c.forwardWatch(watch, onWatch)
		}
		return func() { onGet(data, err) }
	})
}

// CreateEphemeralSequential publishes an ephemeral, sequenced node under
// path (a trailing "-" convention, e.g. "/listen/echo.out0/UUID-"),
// ensuring the container path exists first. onCreate receives the full
// resulting node path.
func (c *Coordinator) CreateEphemeralSequential(path string, data []byte, onCreate func(string, error)) bool {
	return c.dispatch(func() Completion {
		if err := c.ensureContainer(parentOf(path)); err != nil {
			return func() { onCreate("", err) }
		}
		full, err := c.conn.Create(path, data, zk.FlagEphemeral|zk.FlagSequence, zk.WorldACL(zk.PermAll))
		return func() { onCreate(full, err) }
	})
}

// ensureContainer creates path and every persistent ancestor under the
// root, ignoring "already exists" races, so that ephemeral/sequential
// leaves can be created without requiring out-of-band provisioning.
func (c *Coordinator) ensureContainer(path string) error {
	if path == "" || path == "/" {
		return nil
	}
	if err := c.ensureContainer(parentOf(path)); err != nil {
		return err
	}
	_, err := c.conn.Create(path, nil, 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return err
	}
	return nil
}

func parentOf(path string) string {
	for i := len(path) - 1; i > 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

// Close stops delivery of outstanding completions and watch fires, waits
// for in-flight requests to return, then closes the underlying session.
// Safe to call more than once.
func (c *Coordinator) Close() {
	c.once.Do(func() { close(c.done) })
	c.closeWg.Wait()
	c.conn.Close()
}
