package trace

import (
	"strconv"
	"sync"
	"time"
)

// Heartbeat emits a driver-scope event every interval so a stalled scan is
// visible in the trace: beats keep coming while no unit span ends. The
// optional status probe is appended to each beat.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	status   func() string
	done     chan struct{}
	exited   chan struct{}
	stop     sync.Once
}

// StartHeartbeat returns nil when tracing is off or interval is not positive;
// Stop on a nil Heartbeat is a no-op.
func StartHeartbeat(tracer Tracer, interval time.Duration, status func() string) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		status:   status,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Heartbeat) loop() {
	defer close(h.exited)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	started := time.Now()
	var beat uint64
	for {
		select {
		case <-h.done:
			return
		case now := <-ticker.C:
			beat++
			detail := "#" + strconv.FormatUint(beat, 10) + " after " + now.Sub(started).Round(time.Millisecond).String()
			if h.status != nil {
				if s := h.status(); s != "" {
					detail += ", " + s
				}
			}
			h.tracer.Emit(&Event{
				Time:   now,
				Seq:    NextSeq(),
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				GID:    getGoroutineID(),
				Name:   "heartbeat",
				Detail: detail,
			})
		}
	}
}

// Stop ends the loop and waits for it. Safe to call more than once.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.stop.Do(func() { close(h.done) })
	<-h.exited
}
