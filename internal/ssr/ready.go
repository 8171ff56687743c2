package ssr

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/ssrender/internal/realm"
)

// Source names the readiness signal that finalized a render.
type Source string

const (
	SourceImmediate Source = "immediate" // no event name configured
	SourceEvent     Source = "event"
	SourceTimeout   Source = "timeout"
	SourceIdle      Source = "idle"
)

// detector races the ready event against the timeout and, optionally, the
// realm going idle. It must be armed before the script runs so an event
// fired synchronously during evaluation is not missed.
type detector struct {
	realm  *realm.Realm
	event  chan struct{}
	once   sync.Once
	cancel func()
}

func armDetector(r *realm.Realm, eventName string) (*detector, error) {
	d := &detector{realm: r, event: make(chan struct{})}
	cancel, err := r.OnEvent(eventName, func() {
		d.once.Do(func() { close(d.event) })
	})
	if err != nil {
		return nil, err
	}
	d.cancel = cancel
	return d, nil
}

func (d *detector) fired() bool {
	select {
	case <-d.event:
		return true
	default:
		return false
	}
}

// wait blocks until one source wins. The losing sources are revoked on
// return: the listener goes inert and the timer is stopped.
func (d *detector) wait(ctx context.Context, timeout time.Duration, idle bool) (Source, error) {
	defer d.cancel()

	if d.fired() {
		return SourceEvent, nil
	}

	// A non-positive timeout expires at once, leaving only an event that
	// already fired to win.
	timer := time.NewTimer(max(timeout, 0))
	defer timer.Stop()
	var idleCh <-chan struct{}
	if idle {
		idleCh = d.realm.Idle()
	}

	select {
	case <-d.event:
		return SourceEvent, nil
	case <-idleCh:
		if d.fired() {
			return SourceEvent, nil
		}
		return SourceIdle, nil
	case <-timer.C:
		if d.fired() {
			return SourceEvent, nil
		}
		if d.realm.Closed() {
			return "", ErrRealmClosed
		}
		return SourceTimeout, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
