// Package memory provides in-process implementations of the app storage
// interfaces, used for tests and for running the service without Postgres.
package memory

import (
	"context"
	"sync"
	"time"

	"assessment-engine/internal/domain"
)

// Store keeps all persisted state behind one RWMutex. CreateSubmission
// performs its duplicate check and insert under the write lock, giving the
// same at-most-once semantics the Postgres store gets from its transaction
// plus uniqueness constraint.
type Store struct {
	mu          sync.RWMutex
	tests       map[string]domain.Test
	questions   map[string][]domain.Question
	submissions map[string]domain.Submission   // testID + "/" + studentID
	byStudent   map[string][]domain.Submission // newest last
	xp          map[string]int
	badges      map[string]map[domain.Badge]time.Time
}

func NewStore() *Store {
	return &Store{
		tests:       make(map[string]domain.Test),
		questions:   make(map[string][]domain.Question),
		submissions: make(map[string]domain.Submission),
		byStudent:   make(map[string][]domain.Submission),
		xp:          make(map[string]int),
		badges:      make(map[string]map[domain.Badge]time.Time),
	}
}

// SeedTest registers test content; authoring is out of scope, so this is
// how fixtures and the demo server get their data in.
func (s *Store) SeedTest(test domain.Test, questions []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tests[test.ID] = test
	s.questions[test.ID] = questions
}

func (s *Store) LoadTest(_ context.Context, testID string) (domain.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	test, ok := s.tests[testID]
	if !ok {
		return domain.Test{}, domain.ErrTestNotFound
	}
	return test, nil
}

func (s *Store) LoadQuestions(_ context.Context, testID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.tests[testID]; !ok {
		return nil, domain.ErrTestNotFound
	}
	questions := make([]domain.Question, len(s.questions[testID]))
	copy(questions, s.questions[testID])
	return questions, nil
}

func (s *Store) CreateSubmission(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sub.TestID + "/" + sub.StudentID
	if _, ok := s.submissions[key]; ok {
		return domain.ErrDuplicateSubmission
	}
	s.submissions[key] = sub
	s.byStudent[sub.StudentID] = append(s.byStudent[sub.StudentID], sub)
	return nil
}

func (s *Store) GetSubmission(_ context.Context, testID, studentID string) (domain.Submission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[testID+"/"+studentID]
	return sub, ok
}

func (s *Store) RecentSubmissions(_ context.Context, studentID string, limit int) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.byStudent[studentID]
	if limit > len(history) {
		limit = len(history)
	}
	recent := make([]domain.Submission, 0, limit)
	for i := len(history) - 1; i >= len(history)-limit; i-- {
		recent = append(recent, history[i])
	}
	return recent, nil
}

func (s *Store) CountSubmissions(_ context.Context, studentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byStudent[studentID]), nil
}

func (s *Store) AddXP(_ context.Context, userID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.xp[userID] += delta
	return s.xp[userID], nil
}

func (s *Store) HasBadge(_ context.Context, userID string, badge domain.Badge) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.badges[userID][badge]
	return ok, nil
}

func (s *Store) AwardBadge(_ context.Context, userID string, badge domain.Badge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.badges[userID][badge]; ok {
		return false, nil
	}
	if s.badges[userID] == nil {
		s.badges[userID] = make(map[domain.Badge]time.Time)
	}
	s.badges[userID][badge] = time.Now()
	return true, nil
}

func (s *Store) GetLiveState(_ context.Context, testID string) (domain.LiveState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	test, ok := s.tests[testID]
	if !ok {
		return domain.LiveState{}, domain.ErrTestNotFound
	}
	return test.Live, nil
}

func (s *Store) UpdateLiveState(_ context.Context, testID string, state domain.LiveState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	test, ok := s.tests[testID]
	if !ok {
		return domain.ErrTestNotFound
	}
	test.Live = state
	s.tests[testID] = test
	return nil
}
