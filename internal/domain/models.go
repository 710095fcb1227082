package domain

import "time"

// TestMode controls how questions are delivered to students.
type TestMode string

const (
	ModeSelfPaced TestMode = "self_paced"
	ModeLive      TestMode = "live"
)

// LiveStatus enumerates live session states.
type LiveStatus string

const (
	StatusDraft  LiveStatus = "draft"
	StatusActive LiveStatus = "active"
	StatusEnded  LiveStatus = "ended"
)

// LiveState is the host-controlled session state that polling clients converge on.
type LiveState struct {
	Mode                 TestMode   `json:"mode"`
	Status               LiveStatus `json:"status"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
}

// ProctoringPolicy describes the integrity requirements for taking a test.
type ProctoringPolicy struct {
	RequireCamera     bool `json:"requireCamera"`
	RequireAudio      bool `json:"requireAudio"`
	RequireFullscreen bool `json:"requireFullscreen"`
	LockTabs          bool `json:"lockTabs"`
}

// Test is the assessment container; live fields are mutated only by the host.
type Test struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	DurationMinutes int              `json:"durationMinutes"`
	Policy          ProctoringPolicy `json:"policy"`
	Live            LiveState        `json:"live"`
}

// QuestionKind distinguishes option-pick questions from free-text ones.
type QuestionKind string

const (
	KindChoice QuestionKind = "mcq"
	KindText   QuestionKind = "text"
)

// Question is immutable once a test is published.
type Question struct {
	ID            string       `json:"id"`
	TestID        string       `json:"testId"`
	Kind          QuestionKind `json:"kind"`
	Prompt        string       `json:"prompt"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
}

// Feedback is the per-question grading outcome returned to the student.
type Feedback struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Confidence    int    `json:"confidence,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Submission is the one-and-only persisted result for a (test, student) pair.
type Submission struct {
	ID             string              `json:"id"`
	TestID         string              `json:"testId"`
	StudentID      string              `json:"studentId"`
	StartedAt      time.Time           `json:"startedAt"`
	SubmittedAt    time.Time           `json:"submittedAt"`
	Answers        map[string]string   `json:"answers"`
	Score          int                 `json:"score"`
	ViolationCount int                 `json:"violationCount"`
	Feedback       map[string]Feedback `json:"feedback"`
}

// TotalQuestions derives the question count this submission was graded
// against from its own feedback map, so historical submissions keep their
// original denominator even if the test is edited later.
func (s Submission) TotalQuestions() int {
	return len(s.Feedback)
}

// IsPerfect reports whether every graded question was answered correctly.
func (s Submission) IsPerfect() bool {
	if len(s.Feedback) == 0 {
		return false
	}
	return s.Score == len(s.Feedback)
}

// User carries the accumulated experience points used for ranking.
type User struct {
	ID string `json:"id"`
	XP int    `json:"xp"`
}

// Badge is a named achievement from a fixed enumeration.
type Badge string

const (
	BadgeFirstSteps    Badge = "first_steps"
	BadgePerfectionist Badge = "perfectionist"
	BadgeSpeedster     Badge = "speedster"
	BadgeOnFire        Badge = "on_fire"
)

// AllBadges lists every defined badge.
var AllBadges = []Badge{BadgeFirstSteps, BadgePerfectionist, BadgeSpeedster, BadgeOnFire}

// UserBadge records a single unlock; the (UserID, BadgeID) pair is unique.
type UserBadge struct {
	UserID    string    `json:"userId"`
	BadgeID   Badge     `json:"badgeId"`
	CreatedAt time.Time `json:"createdAt"`
}
