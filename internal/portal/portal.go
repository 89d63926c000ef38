// Package portal implements the role-specific view layers: each view owns a
// local working set kept in sync with the backend, mirrors it to the local
// cache for offline fallback, and signals the other views over the bus when
// a shared collection changes. Mutations are optimistic: the working set
// changes first and is rolled back if the backend refuses.
package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"internlink/internal/bus"
	"internlink/internal/cache"
	"internlink/internal/gateway"
	"internlink/internal/session"
)

var (
	ErrClosed     = errors.New("view is closed")
	ErrSignedOut  = errors.New("not signed in")
	ErrBackend    = errors.New("backend refused")
	ErrOffline    = errors.New("backend unreachable")
	ErrValidation = errors.New("invalid input")
)

// backendErr maps a failed gateway result to one of the portal sentinels.
func backendErr(res gateway.Result) error {
	if res.Failure == gateway.FailureNetwork {
		return fmt.Errorf("%w: %s", ErrOffline, res.Msg())
	}
	return fmt.Errorf("%w: %s", ErrBackend, res.Msg())
}

// decodeBody round-trips a parsed response body into a typed struct.
func decodeBody(body map[string]any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// view carries what every portal view shares: the backend client, the cache
// mirror, the change bus, the session, and the mounted guard. A closed view
// rejects every operation and never fires another callback.
type view struct {
	gw     *gateway.Client
	mirror *cache.Mirror
	bus    *bus.Bus
	sess   *session.Session

	closed  atomic.Bool
	detach  func() bool
	cleanup []func()
}

func (v *view) init(gw *gateway.Client, mirror *cache.Mirror, b *bus.Bus, sess *session.Session) {
	v.gw = gw
	v.mirror = mirror
	v.bus = b
	v.sess = sess
	if sess != nil {
		v.detach = sess.Attach()
	}
}

func (v *view) alive() bool { return !v.closed.Load() }

// onClose registers teardown work, newest first.
func (v *view) onClose(fn func()) {
	v.cleanup = append(v.cleanup, fn)
}

func (v *view) close() {
	if v.closed.Swap(true) {
		return
	}
	for i := len(v.cleanup) - 1; i >= 0; i-- {
		v.cleanup[i]()
	}
	if v.detach != nil {
		v.detach()
	}
}

// subscribe wires a bus handler that is silently dropped once the view is
// closed.
func (v *view) subscribe(topic bus.Topic, fn func()) {
	unsub := v.bus.Subscribe(topic, func() {
		if v.alive() {
			fn()
		}
	})
	v.onClose(unsub)
}
