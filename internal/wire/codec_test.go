package wire_test

import (
	"testing"

	"github.com/jabolina/go-fabric/internal/logging"
	"github.com/jabolina/go-fabric/internal/types"
	"github.com/jabolina/go-fabric/internal/wire"
)

func TestDecodeServiceCfg(t *testing.T) {
	log := logging.Nop()

	cfg, ok := wire.DecodeServiceCfg(log, []byte(`{"name":"echo","sockets":[{"name":"in0","type":"zmq:SUB"}]}`))
	if !ok {
		t.Fatal("expected ok=true for valid manifest")
	}
	if cfg.Name != "echo" || len(cfg.Sockets) != 1 {
		t.Fatalf("unexpected decode: %+v", cfg)
	}

	if _, ok := wire.DecodeServiceCfg(log, []byte(`not json`)); ok {
		t.Fatal("expected ok=false for invalid json")
	}
	if _, ok := wire.DecodeServiceCfg(log, []byte(`{"sockets":[]}`)); ok {
		t.Fatal("expected ok=false for missing name")
	}
}

func TestDecodeListenRecord(t *testing.T) {
	log := logging.Nop()

	rec, ok := wire.DecodeListenRecord(log, []byte(`{"type":"echo.out0","ztype":"zmq:PUB","url":"tcp://10.0.0.1:5555","uuid":"ABC","cell":"localhost"}`))
	if !ok {
		t.Fatal("expected ok=true for valid record")
	}
	if rec.URL != "tcp://10.0.0.1:5555" {
		t.Fatalf("unexpected url: %q", rec.URL)
	}

	if _, ok := wire.DecodeListenRecord(log, []byte(`{"type":"echo.out0"}`)); ok {
		t.Fatal("expected ok=false for missing fields")
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	log := logging.Nop()
	rec := types.ListenRecord{Type: "echo.out0", Kind: "zmq:PUB", URL: "tcp://127.0.0.1:5555", UUID: "X", Cell: "localhost"}
	got, ok := wire.DecodeListenRecord(log, wire.EncodeListenRecord(rec))
	if !ok || got != rec {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", got, rec)
	}
}
