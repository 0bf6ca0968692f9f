package metrics

import (
	"context"
	"time"
)

// Recorder counts daemon activity.
type Recorder interface {
	// Request records one dispatched Get or Set.
	Request(msgType string, ok bool)
	// Signal records one update-trigger signal sent.
	Signal(name string)
	// Broadcast records one snapshot push cycle that reached listeners.
	Broadcast(listeners int)
	// Eviction records a listener removed after a failed write.
	Eviction()
	// Listeners reports the current registry size.
	Listeners(n int)
	// Snapshot records how long a global snapshot took and whether it failed.
	Snapshot(d time.Duration, err error)
	// Serve exposes the recorded metrics until ctx is done. It returns
	// immediately for recorders that have nothing to expose.
	Serve(ctx context.Context) error
}
