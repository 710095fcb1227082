package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"assessment-engine/internal/domain"
)

func TestCreateSubmissionRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	sub := sampleSubmission("test-1", "s1")
	if err := store.CreateSubmission(ctx, sub); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := store.CreateSubmission(ctx, sampleSubmission("test-1", "s1"))
	if !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	// A different test for the same student is fine.
	if err := store.CreateSubmission(ctx, sampleSubmission("test-2", "s1")); err != nil {
		t.Fatalf("second test create: %v", err)
	}

	count, err := store.CountSubmissions(ctx, "s1")
	if err != nil || count != 2 {
		t.Fatalf("expected 2 submissions, got %d (%v)", count, err)
	}
}

func TestRecentSubmissionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for i, testID := range []string{"t1", "t2", "t3", "t4"} {
		sub := sampleSubmission(testID, "s1")
		sub.SubmittedAt = time.Date(2025, 6, 1, 10, i, 0, 0, time.UTC)
		if err := store.CreateSubmission(ctx, sub); err != nil {
			t.Fatalf("create %s: %v", testID, err)
		}
	}

	recent, err := store.RecentSubmissions(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3, got %d", len(recent))
	}
	if recent[0].TestID != "t4" || recent[2].TestID != "t2" {
		t.Fatalf("expected newest first, got %s..%s", recent[0].TestID, recent[2].TestID)
	}
}

func TestBadgeAwardIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	created, err := store.AwardBadge(ctx, "u1", domain.BadgePerfectionist)
	if err != nil || !created {
		t.Fatalf("expected first award to create, got created=%v err=%v", created, err)
	}
	created, err = store.AwardBadge(ctx, "u1", domain.BadgePerfectionist)
	if err != nil || created {
		t.Fatalf("expected second award to be a no-op, got created=%v err=%v", created, err)
	}
	held, err := store.HasBadge(ctx, "u1", domain.BadgePerfectionist)
	if err != nil || !held {
		t.Fatalf("expected badge held, got %v (%v)", held, err)
	}
}

func TestLiveStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedTest(domain.Test{
		ID:   "test-1",
		Live: domain.LiveState{Mode: domain.ModeLive, Status: domain.StatusDraft, CurrentQuestionIndex: -1},
	}, nil)

	state, err := store.GetLiveState(ctx, "test-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if state.Status != domain.StatusDraft {
		t.Fatalf("expected draft, got %+v", state)
	}

	state.Status = domain.StatusActive
	state.CurrentQuestionIndex = 0
	if err := store.UpdateLiveState(ctx, "test-1", state); err != nil {
		t.Fatalf("update: %v", err)
	}
	state, _ = store.GetLiveState(ctx, "test-1")
	if state.Status != domain.StatusActive || state.CurrentQuestionIndex != 0 {
		t.Fatalf("expected active at 0, got %+v", state)
	}

	if _, err := store.GetLiveState(ctx, "missing"); !errors.Is(err, domain.ErrTestNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func sampleSubmission(testID, studentID string) domain.Submission {
	return domain.Submission{
		ID:          testID + "-" + studentID,
		TestID:      testID,
		StudentID:   studentID,
		StartedAt:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		SubmittedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		Answers:     map[string]string{"q1": "A"},
		Score:       1,
		Feedback:    map[string]domain.Feedback{"q1": {Correct: true, CorrectAnswer: "A"}},
	}
}
