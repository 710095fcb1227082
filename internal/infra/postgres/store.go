// Package postgres implements the app storage interfaces on pgx. The
// at-most-once submission invariant lives here: a check-then-insert
// transaction plus the uniqueness constraint on (test_id, student_id) as
// the correctness backstop.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"assessment-engine/internal/domain"
)

const uniqueViolationCode = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) LoadTest(ctx context.Context, testID string) (domain.Test, error) {
	var (
		test      domain.Test
		policyRaw []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, duration_minutes, policy, mode, status, current_question_index
		FROM tests WHERE id=$1`, testID).
		Scan(&test.ID, &test.Title, &test.DurationMinutes, &policyRaw,
			&test.Live.Mode, &test.Live.Status, &test.Live.CurrentQuestionIndex)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Test{}, domain.ErrTestNotFound
	}
	if err != nil {
		return domain.Test{}, fmt.Errorf("load test: %w", err)
	}
	if len(policyRaw) > 0 {
		if err := json.Unmarshal(policyRaw, &test.Policy); err != nil {
			return domain.Test{}, fmt.Errorf("unmarshal policy: %w", err)
		}
	}
	return test, nil
}

func (s *Store) LoadQuestions(ctx context.Context, testID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, test_id, kind, prompt, options, correct_answer
		FROM questions WHERE test_id=$1 ORDER BY id`, testID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q          domain.Question
			optionsRaw []byte
		)
		if err := rows.Scan(&q.ID, &q.TestID, &q.Kind, &q.Prompt, &optionsRaw, &q.CorrectAnswer); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if len(optionsRaw) > 0 {
			if err := json.Unmarshal(optionsRaw, &q.Options); err != nil {
				return nil, fmt.Errorf("unmarshal options: %w", err)
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CreateSubmission re-checks for an existing result immediately before the
// insert, inside one transaction, and relies on the uniqueness constraint
// to close the remaining race window at lower isolation levels.
func (s *Store) CreateSubmission(ctx context.Context, sub domain.Submission) error {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	feedback, err := json.Marshal(sub.Feedback)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM submissions WHERE test_id=$1 AND student_id=$2)`,
		sub.TestID, sub.StudentID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check existing submission: %w", err)
	}
	if exists {
		return domain.ErrDuplicateSubmission
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO submissions
			(id, test_id, student_id, started_at, submitted_at, answers, score, violation_count, feedback)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		sub.ID, sub.TestID, sub.StudentID, sub.StartedAt, sub.SubmittedAt,
		answers, sub.Score, sub.ViolationCount, feedback)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSubmission
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) RecentSubmissions(ctx context.Context, studentID string, limit int) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, test_id, student_id, started_at, submitted_at, answers, score, violation_count, feedback
		FROM submissions WHERE student_id=$1
		ORDER BY submitted_at DESC LIMIT $2`, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent submissions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		var (
			sub         domain.Submission
			answersRaw  []byte
			feedbackRaw []byte
		)
		if err := rows.Scan(&sub.ID, &sub.TestID, &sub.StudentID, &sub.StartedAt, &sub.SubmittedAt,
			&answersRaw, &sub.Score, &sub.ViolationCount, &feedbackRaw); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if err := json.Unmarshal(answersRaw, &sub.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		if err := json.Unmarshal(feedbackRaw, &sub.Feedback); err != nil {
			return nil, fmt.Errorf("unmarshal feedback: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *Store) CountSubmissions(ctx context.Context, studentID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE student_id=$1`, studentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}

// AddXP upserts atomically so a user's first submission creates the row
// and concurrent increments for different users never interfere.
func (s *Store) AddXP(ctx context.Context, userID string, delta int) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, xp) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET xp = users.xp + excluded.xp
		RETURNING xp`, userID, delta).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("add xp: %w", err)
	}
	return total, nil
}

func (s *Store) HasBadge(ctx context.Context, userID string, badge domain.Badge) (bool, error) {
	var held bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_badges WHERE user_id=$1 AND badge_id=$2)`,
		userID, string(badge)).Scan(&held)
	if err != nil {
		return false, fmt.Errorf("check badge: %w", err)
	}
	return held, nil
}

// AwardBadge inserts with ON CONFLICT DO NOTHING; the constraint, not the
// pre-check, is what makes unlocks idempotent under races.
func (s *Store) AwardBadge(ctx context.Context, userID string, badge domain.Badge) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO user_badges (user_id, badge_id) VALUES ($1, $2)
		ON CONFLICT (user_id, badge_id) DO NOTHING`, userID, string(badge))
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) GetLiveState(ctx context.Context, testID string) (domain.LiveState, error) {
	var state domain.LiveState
	err := s.pool.QueryRow(ctx,
		`SELECT mode, status, current_question_index FROM tests WHERE id=$1`, testID).
		Scan(&state.Mode, &state.Status, &state.CurrentQuestionIndex)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LiveState{}, domain.ErrTestNotFound
	}
	if err != nil {
		return domain.LiveState{}, fmt.Errorf("get live state: %w", err)
	}
	return state, nil
}

func (s *Store) UpdateLiveState(ctx context.Context, testID string, state domain.LiveState) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tests SET status=$2, current_question_index=$3 WHERE id=$1`,
		testID, state.Status, state.CurrentQuestionIndex)
	if err != nil {
		return fmt.Errorf("update live state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTestNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
