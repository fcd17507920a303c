// Package daemon owns the reconnect loop: probe connectivity, run one
// stream subscription, recover on failure, shut down on interrupt.
package daemon

import (
	"context"

	"github.com/bulletd/bulletd/push"
	"github.com/bulletd/bulletd/tool"
	"github.com/bulletd/bulletd/types"
)

// Stream is one subscription to the event stream.
type Stream interface {
	RunForever() error
	Close() error
	SessionID() string
}

// ConnectFunc constructs a fresh subscription bound to the given event
// handler. Called once per connection attempt.
type ConnectFunc func(onPush func(types.Event) error) (Stream, error)

// Prober gates connection attempts on reachability.
type Prober interface {
	Wait(ctx context.Context) error
}

// Notifier is the desktop-notification sink.
type Notifier interface {
	Notify(title, body string) error
}

// Supervisor keeps exactly one subscription alive, re-probing and
// reconnecting after any stream failure until the context is
// cancelled. Event processing is strictly sequential: the stream's
// read loop calls the classifier and sink inline, one event at a time.
type Supervisor struct {
	Prober   Prober
	Connect  ConnectFunc
	Sink     Notifier
	Classify func(types.Event) (*types.Candidate, error)
	Dedup    *push.Deduper
	Status   *Status
}

// Run drives the state machine until ctx is cancelled. A cancelled
// context is the clean-shutdown path and returns nil; any other return
// is fatal to the process.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.Status.SetState(StateStopped)

	for {
		s.Status.SetState(StateProbing)
		if err := s.Prober.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		stream, err := s.Connect(s.handleEvent)
		if err != nil {
			tool.DefaultLogger.Warnf("Failed to connect stream: %v", err)
			s.Status.AddReconnect()
			s.Status.SetState(StateRecover)
			continue
		}
		s.Status.SetSession(stream.SessionID())
		s.Status.SetState(StateStreaming)
		tool.DefaultLogger.Infof("Listening for pushes, session %s", stream.SessionID())

		if err := s.Sink.Notify("bulletd started", "bulletd is now listening for new pushes."); err != nil {
			closeStream(stream)
			return err
		}

		// Close the subscription when the context is cancelled so the
		// blocking receive below returns.
		watchDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				closeStream(stream)
			case <-watchDone:
			}
		}()

		err = stream.RunForever()
		close(watchDone)
		closeStream(stream)

		if ctx.Err() != nil {
			tool.DefaultLogger.Debug("Interrupt received. Cleaning up.")
			return nil
		}

		tool.DefaultLogger.Warnf("Stream lost: %v", err)
		s.Status.AddReconnect()
		s.Status.SetState(StateRecover)
		if err := s.Sink.Notify("bulletd connection lost",
			"bulletd has lost its connection with Pushbullet servers and will notify you when the connection is regained."); err != nil {
			return err
		}
	}
}

// handleEvent is the per-event pipeline: classify, dedup, notify. Any
// error ends the current stream attempt.
func (s *Supervisor) handleEvent(event types.Event) error {
	s.Status.AddEvent()

	candidate, err := s.Classify(event)
	if err != nil {
		return err
	}
	if candidate == nil {
		return nil
	}
	if s.Dedup != nil && s.Dedup.Seen(candidate.Key) {
		tool.DefaultLogger.Debugf("Suppressing duplicate notification %s", candidate.Key)
		return nil
	}
	if err := s.Sink.Notify(candidate.Title, candidate.Body); err != nil {
		return err
	}
	s.Status.AddNotification()
	return nil
}

func closeStream(stream Stream) {
	if err := stream.Close(); err != nil {
		tool.DefaultLogger.Debugf("Failed to close stream: %v", err)
	}
}
