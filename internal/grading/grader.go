// Package grading scores student answers against answer keys. All functions
// are pure and safe for concurrent use.
package grading

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// TextGrade is the outcome of grading a free-text answer.
type TextGrade struct {
	Score      int
	Correct    bool
	Confidence int
	Reason     string
}

// GradeChoice compares a submitted option against the stored option text.
// Matching is byte-exact; option strings are authored, not typed.
func GradeChoice(answer, correctAnswer string) bool {
	return answer == correctAnswer
}

// GradeText grades a free-text answer with a lenient lexical heuristic.
// Exact and substring matches short-circuit; otherwise the score blends
// keyword recall with edit-distance similarity, so minor misspellings
// still pass.
func GradeText(student, model string) TextGrade {
	if strings.TrimSpace(student) == "" || strings.TrimSpace(model) == "" {
		return TextGrade{Score: 0, Correct: false, Confidence: 0, Reason: "Missing input"}
	}

	s := strings.ToLower(strings.TrimSpace(student))
	m := strings.ToLower(strings.TrimSpace(model))

	if s == m {
		return TextGrade{Score: 100, Correct: true, Confidence: 100, Reason: "Exact match"}
	}
	if strings.Contains(s, m) {
		return TextGrade{Score: 95, Correct: true, Confidence: 90, Reason: "Answer contains the expected response"}
	}

	recall := tokenRecall(s, m)

	maxLen := len([]rune(s))
	if l := len([]rune(m)); l > maxLen {
		maxLen = l
	}
	similarity := 100 - 100*float64(levenshtein(s, m))/float64(maxLen)

	final := 0.7*recall*100 + 0.3*similarity
	if recall == 1 && final < 85 {
		final = 85
	}
	if similarity >= 80 && final < 80 {
		final = 80
	}

	score := int(math.Round(final))
	return TextGrade{
		Score:      score,
		Correct:    final >= 60,
		Confidence: score,
		Reason: fmt.Sprintf("Keyword recall %d%%, character similarity %d%%, combined %d%%",
			int(math.Round(recall*100)), int(math.Round(similarity)), score),
	}
}

// tokenRecall is the fraction of the model's significant tokens found in
// the student's token set. Tokens shorter than three characters are noise.
func tokenRecall(student, model string) float64 {
	modelTokens := tokenize(model)
	if len(modelTokens) == 0 {
		return 0
	}
	studentTokens := tokenize(student)
	hits := 0
	for token := range modelTokens {
		if _, ok := studentTokens[token]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(modelTokens))
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, token := range strings.FieldsFunc(text, isNonWord) {
		if len([]rune(token)) > 2 {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}

func isNonWord(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

// levenshtein computes the minimum single-character edit count between two
// strings, rune-based, with a two-row table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
