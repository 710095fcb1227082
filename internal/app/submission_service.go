package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"assessment-engine/internal/domain"
	"assessment-engine/internal/grading"
)

// ContentRepository loads test content (from cache/backing store).
type ContentRepository interface {
	GetTest(ctx context.Context, testID string) (domain.Test, error)
	GetQuestions(ctx context.Context, testID string) ([]domain.Question, error)
}

// SubmissionStore persists graded results. CreateSubmission must perform
// the duplicate re-check and the insert inside a single transaction, and
// must map the storage-level uniqueness violation on (testID, studentID)
// to domain.ErrDuplicateSubmission as well.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, sub domain.Submission) error
	RecentSubmissions(ctx context.Context, studentID string, limit int) ([]domain.Submission, error)
	CountSubmissions(ctx context.Context, studentID string) (int, error)
}

// UserStore tracks experience points and badge unlocks. AddXP must be an
// atomic increment so concurrent submissions by different users cannot
// interfere. AwardBadge reports whether the badge row was newly created.
type UserStore interface {
	AddXP(ctx context.Context, userID string, delta int) (int, error)
	HasBadge(ctx context.Context, userID string, badge domain.Badge) (bool, error)
	AwardBadge(ctx context.Context, userID string, badge domain.Badge) (bool, error)
}

// LiveStateStore persists host-controlled live session state.
type LiveStateStore interface {
	GetLiveState(ctx context.Context, testID string) (domain.LiveState, error)
	UpdateLiveState(ctx context.Context, testID string, state domain.LiveState) error
}

// SubmitRequest carries one student's answer set for grading.
type SubmitRequest struct {
	TestID         string
	CallerID       string
	CallerIsAdmin  bool
	StudentID      string
	Answers        map[string]string
	StartedAt      time.Time
	ViolationCount int
}

// SubmitResult is the graded outcome returned to the caller.
type SubmitResult struct {
	Score          int                        `json:"score"`
	TotalQuestions int                        `json:"totalQuestions"`
	Feedback       map[string]domain.Feedback `json:"feedback"`
	Gamification   *AwardResult               `json:"gamification,omitempty"`
}

// SubmissionService orchestrates grading, enforces the at-most-once
// submission invariant, and triggers gamification after commit.
type SubmissionService struct {
	content     ContentRepository
	submissions SubmissionStore
	rewards     *GamificationEngine
	now         func() time.Time
}

func NewSubmissionService(content ContentRepository, submissions SubmissionStore, rewards *GamificationEngine) *SubmissionService {
	return &SubmissionService{
		content:     content,
		submissions: submissions,
		rewards:     rewards,
		now:         time.Now,
	}
}

// Submit grades the answer set and persists the result exactly once.
// Gamification runs after the submission has committed: a reward failure
// is logged and omitted from the result, never a submit failure, because
// the exam result is authoritative once stored.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if req.CallerID == "" {
		return SubmitResult{}, domain.ErrUnauthenticated
	}
	if req.TestID == "" || req.StudentID == "" || req.Answers == nil {
		return SubmitResult{}, domain.ErrInvalidInput
	}
	if req.CallerID != req.StudentID && !req.CallerIsAdmin {
		return SubmitResult{}, domain.ErrIdentityMismatch
	}

	test, err := s.content.GetTest(ctx, req.TestID)
	if err != nil {
		return SubmitResult{}, err
	}
	questions, err := s.content.GetQuestions(ctx, req.TestID)
	if err != nil {
		return SubmitResult{}, err
	}
	if len(questions) == 0 {
		return SubmitResult{}, domain.ErrQuestionNotFound
	}

	score := 0
	feedback := make(map[string]domain.Feedback, len(questions))
	for _, q := range questions {
		answer := req.Answers[q.ID]
		switch q.Kind {
		case domain.KindChoice:
			correct := grading.GradeChoice(answer, q.CorrectAnswer)
			if correct {
				score++
			}
			feedback[q.ID] = domain.Feedback{Correct: correct, CorrectAnswer: q.CorrectAnswer}
		default:
			grade := grading.GradeText(answer, q.CorrectAnswer)
			if grade.Correct {
				score++
			}
			feedback[q.ID] = domain.Feedback{
				Correct:       grade.Correct,
				CorrectAnswer: q.CorrectAnswer,
				Confidence:    grade.Confidence,
				Reason:        grade.Reason,
			}
		}
	}

	submittedAt := s.now()
	sub := domain.Submission{
		ID:             uuid.NewString(),
		TestID:         req.TestID,
		StudentID:      req.StudentID,
		StartedAt:      req.StartedAt,
		SubmittedAt:    submittedAt,
		Answers:        req.Answers,
		Score:          score,
		ViolationCount: req.ViolationCount,
		Feedback:       feedback,
	}
	if err := s.submissions.CreateSubmission(ctx, sub); err != nil {
		return SubmitResult{}, fmt.Errorf("persist submission: %w", err)
	}

	result := SubmitResult{
		Score:          score,
		TotalQuestions: len(questions),
		Feedback:       feedback,
	}

	timeTaken := int(submittedAt.Sub(req.StartedAt).Seconds())
	award, err := s.rewards.Award(ctx, req.StudentID, req.TestID, score, len(questions), timeTaken, test.DurationMinutes*60)
	if err != nil {
		// The submission is committed; losing the exam result over XP
		// bookkeeping would be worse than missing an award.
		log.Printf("gamification failed for student %s on test %s: %v", req.StudentID, req.TestID, err)
		return result, nil
	}
	result.Gamification = &award
	return result, nil
}
