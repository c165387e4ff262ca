package reconcile

import (
	"context"
	"sync/atomic"
	"time"
)

// ConnectivityObserver reports whether the server is reachable and signals
// transitions. The reconciler never probes the network itself; it only reads
// this capability, so tests can drive it directly.
type ConnectivityObserver interface {
	Online() bool
	Changes() <-chan bool
}

// ProbeObserver derives connectivity from a periodic health probe.
type ProbeObserver struct {
	probe    func(context.Context) error
	interval time.Duration
	online   atomic.Bool
	changes  chan bool
}

// NewProbeObserver starts from an optimistic online state; the first failed
// probe flips it.
func NewProbeObserver(probe func(context.Context) error, interval time.Duration) *ProbeObserver {
	o := &ProbeObserver{
		probe:    probe,
		interval: interval,
		changes:  make(chan bool, 1),
	}
	o.online.Store(true)
	return o
}

func (o *ProbeObserver) Online() bool {
	return o.online.Load()
}

func (o *ProbeObserver) Changes() <-chan bool {
	return o.changes
}

// Run polls until the context is cancelled.
func (o *ProbeObserver) Run(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.check(ctx)
		}
	}
}

func (o *ProbeObserver) check(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	online := o.probe(probeCtx) == nil
	if o.online.Swap(online) == online {
		return
	}
	// A stale unread signal is superseded by the latest transition; never
	// block if nobody is listening.
	select {
	case <-o.changes:
	default:
	}
	select {
	case o.changes <- online:
	default:
	}
}
