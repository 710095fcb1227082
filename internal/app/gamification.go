package app

import (
	"context"
	"fmt"

	"assessment-engine/internal/domain"
)

const (
	xpPerCorrectAnswer = 10
	xpPassBonus        = 50
	xpPerfectBonus     = 100
	xpSpeedBonus       = 20

	onFireStreak = 3
)

// AwardResult reports what a single submission earned.
type AwardResult struct {
	XPEarned       int            `json:"xpEarned"`
	BadgesUnlocked []domain.Badge `json:"badgesUnlocked"`
	NewTotalXP     int            `json:"newTotalXp"`
}

// GamificationEngine converts graded results into XP deltas and badge
// unlocks. Badge evaluation is idempotent: the storage uniqueness
// constraint on (user, badge) is the authoritative safeguard behind the
// pre-check.
type GamificationEngine struct {
	submissions SubmissionStore
	users       UserStore
}

func NewGamificationEngine(submissions SubmissionStore, users UserStore) *GamificationEngine {
	return &GamificationEngine{submissions: submissions, users: users}
}

// Award computes the XP delta for a submission, applies it atomically, and
// unlocks any qualifying badges the user does not already hold. It is
// invoked after the submission has been persisted, so history queries
// include the triggering submission.
func (g *GamificationEngine) Award(ctx context.Context, userID, testID string, score, totalQuestions, timeTakenSeconds, totalDurationSeconds int) (AwardResult, error) {
	if totalQuestions <= 0 {
		return AwardResult{}, fmt.Errorf("award: totalQuestions must be positive")
	}

	pass := float64(score)/float64(totalQuestions) >= 0.5
	perfect := score == totalQuestions
	fast := totalDurationSeconds > 0 && float64(timeTakenSeconds) < 0.5*float64(totalDurationSeconds)

	xp := score * xpPerCorrectAnswer
	if pass {
		xp += xpPassBonus
	}
	if perfect {
		xp += xpPerfectBonus
	}
	if fast && pass {
		xp += xpSpeedBonus
	}

	total, err := g.users.AddXP(ctx, userID, xp)
	if err != nil {
		return AwardResult{}, fmt.Errorf("add xp: %w", err)
	}

	result := AwardResult{XPEarned: xp, NewTotalXP: total, BadgesUnlocked: []domain.Badge{}}

	qualified, err := g.qualifyingBadges(ctx, userID, perfect, fast && pass)
	if err != nil {
		return result, err
	}
	for _, badge := range qualified {
		held, err := g.users.HasBadge(ctx, userID, badge)
		if err != nil {
			return result, fmt.Errorf("check badge %s: %w", badge, err)
		}
		if held {
			continue
		}
		created, err := g.users.AwardBadge(ctx, userID, badge)
		if err != nil {
			return result, fmt.Errorf("award badge %s: %w", badge, err)
		}
		if created {
			result.BadgesUnlocked = append(result.BadgesUnlocked, badge)
		}
	}
	return result, nil
}

func (g *GamificationEngine) qualifyingBadges(ctx context.Context, userID string, perfect, speedy bool) ([]domain.Badge, error) {
	var qualified []domain.Badge

	count, err := g.submissions.CountSubmissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	if count >= 1 {
		qualified = append(qualified, domain.BadgeFirstSteps)
	}
	if perfect {
		qualified = append(qualified, domain.BadgePerfectionist)
	}
	if speedy {
		qualified = append(qualified, domain.BadgeSpeedster)
	}

	recent, err := g.submissions.RecentSubmissions(ctx, userID, onFireStreak)
	if err != nil {
		return nil, fmt.Errorf("recent submissions: %w", err)
	}
	if len(recent) == onFireStreak && allPerfect(recent) {
		qualified = append(qualified, domain.BadgeOnFire)
	}
	return qualified, nil
}

// allPerfect checks each submission against its own question count, so a
// test edited after some students took it does not retroactively change
// whether their results count as perfect.
func allPerfect(subs []domain.Submission) bool {
	for _, sub := range subs {
		if !sub.IsPerfect() {
			return false
		}
	}
	return true
}
