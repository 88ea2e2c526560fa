package driver

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stage is the step a unit is in.
type Stage string

const (
	StageDecode   Stage = "decode"
	StageBuild    Stage = "build"
	StageDispatch Stage = "dispatch"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	// StatusCached marks a unit whose findings came from the cache.
	StatusCached Status = "cached"
	StatusError  Status = "error"
)

// Event reports progress for one unit, or for the whole scan when Unit is empty.
type Event struct {
	Unit     string
	Stage    Stage
	Status   Status
	Findings int
	Err      error
	Elapsed  time.Duration
}

// ProgressSink consumes progress events. OnEvent is called from worker
// goroutines and must be safe for concurrent use.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

// Sinks fans every event out to each sink in order.
type Sinks []ProgressSink

func (s Sinks) OnEvent(ev Event) {
	for _, sink := range s {
		emit(sink, ev)
	}
}

// Counter tallies finished units; its String is a short status line.
type Counter struct {
	total, finished, failed atomic.Int64
}

func (c *Counter) OnEvent(ev Event) {
	switch ev.Status {
	case StatusQueued:
		c.total.Add(1)
	case StatusError:
		c.failed.Add(1)
		c.finished.Add(1)
	case StatusDone, StatusCached:
		c.finished.Add(1)
	}
}

func (c *Counter) String() string {
	total := c.total.Load()
	if total == 0 {
		return ""
	}
	s := fmt.Sprintf("%d/%d units", c.finished.Load(), total)
	if failed := c.failed.Load(); failed > 0 {
		s += fmt.Sprintf(", %d failed", failed)
	}
	return s
}

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
