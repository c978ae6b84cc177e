package kind_test

import (
	"testing"

	"github.com/jabolina/go-fabric/internal/kind"
	"github.com/jabolina/go-fabric/internal/types"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name string
		want types.Kind
		ok   bool
	}{
		{"zmq:PUB", types.KindPub, true},
		{"zmq:sub", types.KindSub, true},
		{"zmq:Push", types.KindPush, true},
		{"zmq:PULL", types.KindPull, true},
		{"zmq:REQ", types.KindInvalid, false},
		{"tcp:PUB", types.KindInvalid, false},
		{"", types.KindInvalid, false},
	}
	for _, tc := range cases {
		got, err := kind.Resolve(tc.name)
		if tc.ok && err != nil {
			t.Errorf("Resolve(%q): unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("Resolve(%q): expected error, got none", tc.name)
		}
		if got != tc.want {
			t.Errorf("Resolve(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCompatible(t *testing.T) {
	cases := []struct {
		a, b types.Kind
		want bool
	}{
		{types.KindPub, types.KindSub, true},
		{types.KindSub, types.KindPub, true},
		{types.KindPush, types.KindPull, true},
		{types.KindPull, types.KindPush, true},
		{types.KindPub, types.KindPush, false},
		{types.KindPub, types.KindPub, false},
		{types.KindInvalid, types.KindSub, false},
	}
	for _, tc := range cases {
		if got := kind.Compatible(tc.a, tc.b); got != tc.want {
			t.Errorf("Compatible(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDefaultPollDir(t *testing.T) {
	cases := []struct {
		k    types.Kind
		want types.Direction
	}{
		{types.KindSub, types.DirInput},
		{types.KindPull, types.DirInput},
		{types.KindPub, types.DirOutput},
		{types.KindPush, types.DirOutput},
	}
	for _, tc := range cases {
		if got := kind.DefaultPollDir(tc.k); got != tc.want {
			t.Errorf("DefaultPollDir(%v) = %v, want %v", tc.k, got, tc.want)
		}
	}
}
