package grading

import (
	"strings"
	"testing"
)

func TestGradeChoiceIsByteExact(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		correct string
		want    bool
	}{
		{name: "identical", answer: "Mitosis", correct: "Mitosis", want: true},
		{name: "case differs", answer: "mitosis", correct: "Mitosis", want: false},
		{name: "trailing space differs", answer: "Mitosis ", correct: "Mitosis", want: false},
		{name: "empty answer", answer: "", correct: "Mitosis", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := GradeChoice(tc.answer, tc.correct); got != tc.want {
				t.Fatalf("GradeChoice(%q, %q) = %v, want %v", tc.answer, tc.correct, got, tc.want)
			}
		})
	}
}

func TestGradeTextExactAfterNormalization(t *testing.T) {
	grade := GradeText("Paris", "paris")
	if grade.Score != 100 || !grade.Correct {
		t.Fatalf("expected exact match, got %+v", grade)
	}
	if grade.Reason != "Exact match" {
		t.Fatalf("expected exact match reason, got %q", grade.Reason)
	}
}

func TestGradeTextSubstring(t *testing.T) {
	grade := GradeText("The capital is Paris", "Paris")
	if grade.Score != 95 || !grade.Correct {
		t.Fatalf("expected substring match with score 95, got %+v", grade)
	}
}

func TestGradeTextMissingInput(t *testing.T) {
	for _, pair := range [][2]string{{"", "Paris"}, {"Paris", ""}, {"   ", "Paris"}} {
		grade := GradeText(pair[0], pair[1])
		if grade.Score != 0 || grade.Correct {
			t.Fatalf("GradeText(%q, %q) = %+v, want score 0 incorrect", pair[0], pair[1], grade)
		}
		if grade.Reason != "Missing input" {
			t.Fatalf("expected missing input reason, got %q", grade.Reason)
		}
	}
}

func TestGradeTextSimilarityBoost(t *testing.T) {
	// One edit away over max length 5: similarity lands exactly on 80,
	// which triggers the near-miss boost.
	grade := GradeText("Pari", "Paris")
	if grade.Score < 80 {
		t.Fatalf("expected boosted score >= 80, got %+v", grade)
	}
	if !grade.Correct {
		t.Fatalf("expected boosted answer to pass, got %+v", grade)
	}
}

func TestGradeTextRecallBoost(t *testing.T) {
	// All model keywords present in a reworded answer: recall is total,
	// so the score floors at 85 even with poor character similarity.
	grade := GradeText("energy is produced by the mitochondria inside every cell", "cell energy mitochondria")
	if grade.Score < 85 || !grade.Correct {
		t.Fatalf("expected recall boost to >= 85, got %+v", grade)
	}
}

func TestGradeTextUnrelatedAnswerFails(t *testing.T) {
	grade := GradeText("seven", "photosynthesis converts light into chemical energy")
	if grade.Correct {
		t.Fatalf("expected unrelated answer to fail, got %+v", grade)
	}
	if !strings.Contains(grade.Reason, "recall") {
		t.Fatalf("expected audit reason with recall, got %q", grade.Reason)
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"pari", "paris", 1},
		{"same", "same", 0},
	}
	for _, tc := range tests {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Fatalf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
