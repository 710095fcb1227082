package client

import (
	"context"
	"log"
	"time"

	"assessment-engine/internal/domain"
)

// StateReader is the polled view of the host's live session state.
type StateReader interface {
	GetLiveState(ctx context.Context, testID string) (domain.LiveState, error)
}

// SyncConfig tunes the poll loop. The interval is injected rather than a
// package constant so tests can run with near-zero intervals.
type SyncConfig struct {
	PollInterval time.Duration
}

// SyncCallbacks receive view changes observed by the poll loop. Any of
// them may be nil.
type SyncCallbacks struct {
	// OnQuestion fires when the host-selected question index changes.
	OnQuestion func(index int)
	// OnWaiting fires when the session shows no current question
	// (draft, or index -1).
	OnWaiting func()
	// OnEnded fires exactly once when the session transitions from
	// active to ended; callers hook auto-submission here.
	OnEnded func()
}

// LiveSync keeps one student's view of the current question consistent
// with the host by polling. Staleness is bounded by one poll interval.
type LiveSync struct {
	reader    StateReader
	testID    string
	interval  time.Duration
	callbacks SyncCallbacks
}

func NewLiveSync(reader StateReader, testID string, cfg SyncConfig, callbacks SyncCallbacks) *LiveSync {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &LiveSync{
		reader:    reader,
		testID:    testID,
		interval:  interval,
		callbacks: callbacks,
	}
}

// Run polls until the context is cancelled or the session ends. The
// active-to-ended transition fires OnEnded once and stops the loop; the
// student has nothing left to watch after that.
func (s *LiveSync) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	lastIndex := -2 // sentinel distinct from the -1 waiting index
	wasActive := false

	for {
		state, err := s.reader.GetLiveState(ctx, s.testID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("live sync poll failed for test %s: %v", s.testID, err)
		} else {
			if state.Status == domain.StatusEnded && wasActive {
				if s.callbacks.OnEnded != nil {
					s.callbacks.OnEnded()
				}
				return nil
			}
			if state.Status == domain.StatusActive {
				wasActive = true
			}

			showing := state.Status == domain.StatusActive && state.CurrentQuestionIndex >= 0
			switch {
			case showing && state.CurrentQuestionIndex != lastIndex:
				lastIndex = state.CurrentQuestionIndex
				if s.callbacks.OnQuestion != nil {
					s.callbacks.OnQuestion(state.CurrentQuestionIndex)
				}
			case !showing && lastIndex != -1:
				lastIndex = -1
				if s.callbacks.OnWaiting != nil {
					s.callbacks.OnWaiting()
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
