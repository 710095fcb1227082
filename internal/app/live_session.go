package app

import (
	"context"
	"fmt"

	"assessment-engine/internal/domain"
)

// LiveAction is a host-issued command against a live session.
type LiveAction string

const (
	ActionStart LiveAction = "start"
	ActionNext  LiveAction = "next"
	ActionEnd   LiveAction = "end"
	ActionReset LiveAction = "reset"
)

// LiveSessionController is the server-side state machine for a test's live
// delivery mode. All state is persisted so independent polling readers
// converge on the host's view.
type LiveSessionController struct {
	store LiveStateStore
}

func NewLiveSessionController(store LiveStateStore) *LiveSessionController {
	return &LiveSessionController{store: store}
}

// State returns the current live state for polling readers.
func (c *LiveSessionController) State(ctx context.Context, testID string) (domain.LiveState, error) {
	return c.store.GetLiveState(ctx, testID)
}

// Apply executes a host action. Illegal transitions, and any action on a
// test that is not in live mode, are rejected with ErrInvalidTransition.
func (c *LiveSessionController) Apply(ctx context.Context, testID string, action LiveAction, index int) (domain.LiveState, error) {
	state, err := c.store.GetLiveState(ctx, testID)
	if err != nil {
		return domain.LiveState{}, err
	}
	if state.Mode != domain.ModeLive {
		return domain.LiveState{}, fmt.Errorf("%w: test is not in live mode", domain.ErrInvalidTransition)
	}

	next, err := transition(state, action, index)
	if err != nil {
		return domain.LiveState{}, err
	}
	if err := c.store.UpdateLiveState(ctx, testID, next); err != nil {
		return domain.LiveState{}, fmt.Errorf("persist live state: %w", err)
	}
	return next, nil
}

func transition(state domain.LiveState, action LiveAction, index int) (domain.LiveState, error) {
	switch action {
	case ActionStart:
		if state.Status != domain.StatusDraft {
			return state, fmt.Errorf("%w: start requires draft, session is %s", domain.ErrInvalidTransition, state.Status)
		}
		state.Status = domain.StatusActive
		state.CurrentQuestionIndex = 0
	case ActionNext:
		if state.Status != domain.StatusActive {
			return state, fmt.Errorf("%w: next requires active, session is %s", domain.ErrInvalidTransition, state.Status)
		}
		if index < 0 {
			return state, fmt.Errorf("%w: next requires a question index", domain.ErrInvalidTransition)
		}
		state.CurrentQuestionIndex = index
	case ActionEnd:
		if state.Status != domain.StatusActive {
			return state, fmt.Errorf("%w: end requires active, session is %s", domain.ErrInvalidTransition, state.Status)
		}
		state.Status = domain.StatusEnded
	case ActionReset:
		if state.Status != domain.StatusEnded {
			return state, fmt.Errorf("%w: reset requires ended, session is %s", domain.ErrInvalidTransition, state.Status)
		}
		state.Status = domain.StatusDraft
		state.CurrentQuestionIndex = -1
	default:
		return state, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidTransition, action)
	}
	return state, nil
}
