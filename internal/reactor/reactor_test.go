package reactor_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jabolina/go-fabric/internal/logging"
	"github.com/jabolina/go-fabric/internal/reactor"
	"github.com/jabolina/go-fabric/internal/types"
	"github.com/jabolina/go-fabric/internal/zsock"
)

type fakeTransport struct {
	desired types.Direction
	recvCh  chan zsock.Envelope

	outputReady   int32
	outputFires   int32
	inputMessages int32
}

func newFakeTransport(dir types.Direction) *fakeTransport {
	return &fakeTransport{desired: dir, recvCh: make(chan zsock.Envelope, 4)}
}

func (f *fakeTransport) DesiredEvents() *types.Direction { return &f.desired }
func (f *fakeTransport) PollOutput() bool                { return atomic.LoadInt32(&f.outputReady) == 1 }
func (f *fakeTransport) FireOutputReady() {
	atomic.AddInt32(&f.outputFires, 1)
	f.desired &^= types.DirOutput
}
func (f *fakeTransport) InputEvents() <-chan zsock.Envelope { return f.recvCh }
func (f *fakeTransport) FireInputReady(zsock.Envelope)      { atomic.AddInt32(&f.inputMessages, 1) }

func TestReactorFiresOutputReadyOnce(t *testing.T) {
	r := reactor.New(logging.Nop())
	ft := newFakeTransport(types.DirOutput)
	atomic.StoreInt32(&ft.outputReady, 1)
	r.AddTransport(ft)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&ft.outputFires) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for output-ready fire")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done

	if atomic.LoadInt32(&ft.outputFires) != 1 {
		t.Fatalf("expected output-ready to fire exactly once (edge-triggered), got %d", ft.outputFires)
	}
}

func TestReactorDeliversInputMessages(t *testing.T) {
	r := reactor.New(logging.Nop())
	ft := newFakeTransport(types.DirInput)
	r.AddTransport(ft)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- r.Run(ctx) }()

	ft.recvCh <- zsock.Envelope{Data: []byte("hello")}
	ft.recvCh <- zsock.Envelope{Data: []byte("world")}

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&ft.inputMessages) != 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out, got %d of 2 messages", ft.inputMessages)
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestReactorStopsCooperatively(t *testing.T) {
	r := reactor.New(logging.Nop())
	ctx := context.Background()

	done := make(chan int, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	r.Stop()

	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("expected clean exit code 0, got %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reactor did not stop")
	}
}
