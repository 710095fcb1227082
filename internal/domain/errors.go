package domain

import "errors"

var (
	// ErrTestNotFound indicates the test content could not be loaded.
	ErrTestNotFound = errors.New("test not found")
	// ErrQuestionNotFound indicates a test has no gradable questions.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrDuplicateSubmission is returned when a result already exists for the (test, student) pair.
	ErrDuplicateSubmission = errors.New("submission already exists for this test")
	// ErrUnauthenticated is returned when no caller identity is available.
	ErrUnauthenticated = errors.New("caller identity missing")
	// ErrIdentityMismatch is returned when a caller submits for someone else without privilege.
	ErrIdentityMismatch = errors.New("caller identity does not match student")
	// ErrInvalidTransition is returned for illegal live-session actions.
	ErrInvalidTransition = errors.New("invalid live session action")
	// ErrInvalidInput covers malformed or missing request fields.
	ErrInvalidInput = errors.New("missing or malformed input")
)
