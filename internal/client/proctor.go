// Package client implements the exam-taker side of the engine: the
// proctoring violation monitor and the live-session poll loop. Both are
// cooperative pieces driven by UI events and timers on the student's
// machine; they read shared persisted state but never write it.
package client

import (
	"fmt"
	"sync"

	"assessment-engine/internal/domain"
)

// DefaultMaxViolations is the forced-submission threshold when the config
// leaves it unset.
const DefaultMaxViolations = 3

// MonitorConfig tunes the proctoring monitor. The threshold is explicit
// configuration so suites can exercise it without three real violations.
type MonitorConfig struct {
	MaxViolations int
}

// Monitor counts integrity violations for one student's test attempt and
// forces submission past the threshold.
type Monitor struct {
	policy        domain.ProctoringPolicy
	maxViolations int

	onWarning     func(message string)
	onForceSubmit func(violations int)

	mu         sync.Mutex
	violations int
	forced     bool
}

func NewMonitor(policy domain.ProctoringPolicy, cfg MonitorConfig, onWarning func(string), onForceSubmit func(int)) *Monitor {
	max := cfg.MaxViolations
	if max <= 0 {
		max = DefaultMaxViolations
	}
	return &Monitor{
		policy:        policy,
		maxViolations: max,
		onWarning:     onWarning,
		onForceSubmit: onForceSubmit,
	}
}

// CanStart gates test start on the policy's device requirements.
func (m *Monitor) CanStart(cameraGranted, audioGranted bool) error {
	if m.policy.RequireCamera && !cameraGranted {
		return fmt.Errorf("%w: camera access required", domain.ErrInvalidInput)
	}
	if m.policy.RequireAudio && !audioGranted {
		return fmt.Errorf("%w: microphone access required", domain.ErrInvalidInput)
	}
	return nil
}

// VisibilityLost records one loss of page visibility. With tab locking
// enabled each loss counts as a violation, and reaching the threshold
// forces submission exactly once.
func (m *Monitor) VisibilityLost() {
	if !m.policy.LockTabs {
		return
	}

	m.mu.Lock()
	m.violations++
	violations := m.violations
	trigger := violations >= m.maxViolations && !m.forced
	if trigger {
		m.forced = true
	}
	m.mu.Unlock()

	if m.onWarning != nil {
		m.onWarning(fmt.Sprintf("Tab switch detected (%d/%d)", violations, m.maxViolations))
	}
	if trigger && m.onForceSubmit != nil {
		m.onForceSubmit(violations)
	}
}

// FullscreenExited warns but never counts toward forced submission.
// Only tab-visibility losses feed the violation counter.
func (m *Monitor) FullscreenExited() {
	if !m.policy.RequireFullscreen {
		return
	}
	if m.onWarning != nil {
		m.onWarning("Please return to fullscreen")
	}
}

// Violations reports the current counter for inclusion in a submission.
func (m *Monitor) Violations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.violations
}
