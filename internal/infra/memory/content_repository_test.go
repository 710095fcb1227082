package memory

import (
	"context"
	"testing"
	"time"

	"assessment-engine/internal/domain"
)

func TestContentRepositoryCaches(t *testing.T) {
	loader := &countingLoader{ContentLoader: seededStore()}
	repo := NewContentRepository(loader, time.Minute)

	if _, err := repo.GetTest(context.Background(), "test-1"); err != nil {
		t.Fatalf("get test: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	// Both reads come from the same cached bundle.
	questions, err := repo.GetQuestions(context.Background(), "test-1")
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestContentRepositoryPropagatesNotFound(t *testing.T) {
	repo := NewContentRepository(seededStore(), time.Minute)
	if _, err := repo.GetTest(context.Background(), "missing"); err != domain.ErrTestNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	ContentLoader
	calls int
}

func (l *countingLoader) LoadTest(ctx context.Context, testID string) (domain.Test, error) {
	l.calls++
	return l.ContentLoader.LoadTest(ctx, testID)
}

func seededStore() *Store {
	store := NewStore()
	store.SeedTest(domain.Test{ID: "test-1", Title: "Geography", DurationMinutes: 10},
		[]domain.Question{{ID: "q1", TestID: "test-1", Kind: domain.KindChoice, Prompt: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectAnswer: "Paris"}})
	return store
}
