package socket

import (
	"fmt"
	"sort"

	"github.com/jabolina/go-fabric/internal/kind"
	"github.com/jabolina/go-fabric/internal/metrics"
	"github.com/jabolina/go-fabric/internal/types"
	"github.com/jabolina/go-fabric/internal/wire"
)

// Target reconciles one peer type a Socket connects to: it keeps a LIST
// watch on /listen/<peerType> outstanding, GETs each listed child,
// filters for kind-compatible records, and diffs the resulting URL set
// against what's currently connected. The three counters below are the
// whole of the quiescence protocol: a relist or a reconnect only happens
// once every outstanding LIST and GET has completed.
type Target struct {
	sock   *Socket
	typ    string
	policy string

	currentURLs []string
	incoming    []types.ListenRecord

	listPending int
	getPending  int
	listWanted  int

	stats types.ReconcileStats
}

// Stats returns a snapshot of this target's reconciliation counters, the
// same numbers mirrored into Prometheus via internal/metrics.
func (t *Target) Stats() types.ReconcileStats {
	return t.stats
}

func newTarget(sock *Socket, typ, policy string) *Target {
	return &Target{sock: sock, typ: typ, policy: policy}
}

// restartList issues a fresh watched LIST on this target's path, discarding
// any records accumulated from a prior round.
func (t *Target) restartList() {
	t.incoming = t.incoming[:0]
	path := fmt.Sprintf("/listen/%s", t.typ)
	if t.sock.coord.WatchChildren(path, t.onListComplete, t.onWatchFired) {
		t.listPending++
	} else {
		t.sock.log.Warnf("target %s: failed dispatching LIST on %s", t.typ, path)
	}
}

func (t *Target) onListComplete(children []string, err error) {
	t.listPending--
	if err != nil {
		t.sock.log.Warnf("target %s: LIST failed: %v", t.typ, err)
	} else {
		for _, child := range children {
			path := fmt.Sprintf("/listen/%s/%s", t.typ, child)
			if t.sock.coord.Get(path, t.onGetComplete) {
				t.getPending++
			} else {
				t.sock.log.Warnf("target %s: failed dispatching GET on %s", t.typ, path)
			}
		}
	}
	t.maybeRelist()
	t.maybeReconnect()
}

func (t *Target) onGetComplete(data []byte, err error) {
	t.getPending--
	if err != nil {
		t.sock.log.Warnf("target %s: GET failed: %v", t.typ, err)
	} else if rec, ok := wire.DecodeListenRecord(t.sock.log, data); ok {
		if peerKind, kerr := kind.Resolve(rec.Kind); kerr == nil && kind.Compatible(t.sock.kind, peerKind) {
			t.incoming = append(t.incoming, rec)
		} else {
			t.sock.log.Debugf("target %s: dropping incompatible peer record %+v", t.typ, rec)
		}
	}
	t.maybeRelist()
	t.maybeReconnect()
}

func (t *Target) onWatchFired() {
	t.listWanted++
	t.stats.ListEvents++
	metrics.ListEvents.WithLabelValues(t.typ).Inc()
	t.maybeRelist()
}

// maybeRelist restarts the LIST once the target is fully quiescent
// (nothing pending) and a watch fire is still owed.
func (t *Target) maybeRelist() {
	if t.listPending == 0 && t.getPending == 0 && t.listWanted > 0 {
		t.listWanted--
		t.stats.Relists++
		metrics.Relists.WithLabelValues(t.typ).Inc()
		t.restartList()
	}
}

// maybeReconnect applies the delta between currentURLs and the freshly
// gathered incoming records, but only once every LIST/GET from this round
// has completed and no relist is about to override the result.
func (t *Target) maybeReconnect() {
	if t.listPending != 0 || t.getPending != 0 || t.listWanted != 0 {
		return
	}

	newURLs := sortedUniqueURLs(t.incoming)
	add, remove := diffSorted(t.currentURLs, newURLs)

	for _, url := range add {
		if t.sock.retainConnection(url) {
			if err := t.sock.transport.Connect(url); err != nil {
				t.sock.log.Errorf("target %s: connect %s failed: %v", t.typ, url, err)
			} else {
				t.stats.Connects++
				metrics.Connects.WithLabelValues(t.typ).Inc()
			}
		}
	}
	for _, url := range remove {
		if t.sock.releaseConnection(url) {
			if err := t.sock.transport.Disconnect(url); err != nil {
				t.sock.log.Errorf("target %s: disconnect %s failed: %v", t.typ, url, err)
			} else {
				t.stats.Disconnects++
				metrics.Disconnects.WithLabelValues(t.typ).Inc()
			}
		}
	}

	t.currentURLs = newURLs
	t.incoming = nil
	metrics.LiveConnections.WithLabelValues(t.typ).Set(float64(len(newURLs)))
}

// sortedUniqueURLs extracts and dedups the URL field of a batch of
// listen records, giving the sorted form diffSorted expects.
func sortedUniqueURLs(recs []types.ListenRecord) []string {
	seen := make(map[string]struct{}, len(recs))
	urls := make([]string, 0, len(recs))
	for _, r := range recs {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		urls = append(urls, r.URL)
	}
	sort.Strings(urls)
	return urls
}

// diffSorted walks two sorted, deduped string slices in lockstep,
// producing what's newly present (add) and what's no longer present
// (remove). This is the merge-scan delta computation the connection
// refcounting is built on.
func diffSorted(current, next []string) (add, remove []string) {
	i, j := 0, 0
	for i < len(current) && j < len(next) {
		switch {
		case current[i] == next[j]:
			i++
			j++
		case current[i] < next[j]:
			remove = append(remove, current[i])
			i++
		default:
			add = append(add, next[j])
			j++
		}
	}
	remove = append(remove, current[i:]...)
	add = append(add, next[j:]...)
	return add, remove
}
