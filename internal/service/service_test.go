package service_test

import (
	"testing"

	"github.com/jabolina/go-fabric/internal/logging"
	"github.com/jabolina/go-fabric/internal/reactor"
	"github.com/jabolina/go-fabric/internal/service"
	"github.com/jabolina/go-fabric/internal/types"
)

// fakeCoordinator is a synchronous stand-in for internal/coordinator,
// enough to drive Service.RegisterInReactor and a manifest load without a
// real ZooKeeper session or reactor goroutine.
type fakeCoordinator struct {
	manifest []byte
}

func (f *fakeCoordinator) WatchChildren(path string, onChildren func([]string, error), onWatch func()) bool {
	onChildren(nil, nil)
	return true
}

func (f *fakeCoordinator) Get(path string, onGet func([]byte, error)) bool {
	onGet(nil, nil)
	return true
}

func (f *fakeCoordinator) CreateEphemeralSequential(path string, data []byte, onCreate func(string, error)) bool {
	onCreate(path+"0000000001", nil)
	return true
}

func (f *fakeCoordinator) WatchGet(path string, onGet func([]byte, error), onWatch func()) bool {
	onGet(f.manifest, nil)
	return true
}

func TestServiceFiresOnConfigOnce(t *testing.T) {
	coord := &fakeCoordinator{manifest: []byte(`{"name":"echo","sockets":[{"name":"out0","type":"zmq:PUB","bind":["tcp://127.0.0.1:0"]}]}`)}
	identity := types.Identity{UUID: "U", Cell: "localhost"}

	svc, err := service.New("echo", identity, coord, logging.Nop())
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}

	fired := 0
	svc.OnConfig(func() { fired++ })

	r := reactor.New(logging.Nop())
	svc.RegisterInReactor(r)

	if fired != 1 {
		t.Fatalf("expected onConfig to fire exactly once, got %d", fired)
	}

	out0 := svc.Get("out0")
	if out0 == nil {
		t.Fatal("expected out0 socket to be materialized from manifest")
	}
}

func TestServiceGetReturnsPreregisteredTickSocket(t *testing.T) {
	// Get on an unknown name calls log.Fatalf; that path is not exercised
	// here, since Fatalf would terminate the test process.
	coord := &fakeCoordinator{manifest: []byte(`{"name":"echo","sockets":[]}`)}
	identity := types.Identity{UUID: "U", Cell: "localhost"}
	svc, err := service.New("echo", identity, coord, logging.Nop())
	if err != nil {
		t.Fatalf("service.New: %v", err)
	}
	if svc.Get("_tick") == nil {
		t.Fatal("expected pre-registered _tick socket to be retrievable")
	}
}
