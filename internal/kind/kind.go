// Package kind is the socket-kind registry: resolving the "zmq:KIND"
// names used in manifests into types.Kind, checking pairwise
// compatibility, and giving the default poll direction for a kind.
package kind

import (
	"errors"
	"strings"

	"github.com/jabolina/go-fabric/internal/types"
)

// ErrInvalidKind is returned by Resolve for any name that isn't a known
// "zmq:KIND" spelling.
var ErrInvalidKind = errors.New("kind: invalid or unsupported socket kind")

const namespacePrefix = "zmq:"

// Resolve turns a manifest's socket type string (e.g. "zmq:PUB") into a
// types.Kind. Matching is case-insensitive on the suffix.
func Resolve(name string) (types.Kind, error) {
	lower := strings.ToLower(name)
	if !strings.HasPrefix(lower, namespacePrefix) {
		return types.KindInvalid, ErrInvalidKind
	}
	switch strings.ToUpper(name[len(namespacePrefix):]) {
	case "PUB":
		return types.KindPub, nil
	case "SUB":
		return types.KindSub, nil
	case "PUSH":
		return types.KindPush, nil
	case "PULL":
		return types.KindPull, nil
	default:
		return types.KindInvalid, ErrInvalidKind
	}
}

// Name renders a Kind back into its canonical manifest spelling.
func Name(k types.Kind) string {
	if k == types.KindInvalid {
		return namespacePrefix + "?"
	}
	return namespacePrefix + k.String()
}

// Compatible reports whether a socket of kind a may connect to a socket
// of kind b: PUB talks to SUB, PUSH talks to PULL, nothing else pairs.
func Compatible(a, b types.Kind) bool {
	switch a {
	case types.KindPub:
		return b == types.KindSub
	case types.KindSub:
		return b == types.KindPub
	case types.KindPush:
		return b == types.KindPull
	case types.KindPull:
		return b == types.KindPush
	default:
		return false
	}
}

// DefaultPollDir gives the poll direction a freshly created socket of
// kind k is interested in before any user hook changes it: SUB/PULL
// sockets want input, PUB/PUSH sockets want output.
func DefaultPollDir(k types.Kind) types.Direction {
	switch k {
	case types.KindSub, types.KindPull:
		return types.DirInput
	case types.KindPub, types.KindPush:
		return types.DirOutput
	default:
		return 0
	}
}
