package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Test session ──────────────────────────────────────────────────
	ErrNoSession           ErrCode = "NO_SESSION"
	ErrInvalidTransition   ErrCode = "INVALID_TRANSITION"
	ErrAnswersFrozen       ErrCode = "ANSWERS_FROZEN"
	ErrUnknownQuestion     ErrCode = "UNKNOWN_QUESTION"
	ErrUnansweredQuestions ErrCode = "UNANSWERED_QUESTIONS"
	ErrInvalidPassword     ErrCode = "INVALID_PASSWORD"
	ErrAttemptsExhausted   ErrCode = "ATTEMPTS_EXHAUSTED"
	ErrTestNotActive       ErrCode = "TEST_NOT_ACTIVE"
	ErrSubmitRejected      ErrCode = "SUBMIT_REJECTED"
	ErrUpstreamUnavailable ErrCode = "UPSTREAM_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrTokenRequired:
		return "Please sign in first."
	case ErrTokenExpired:
		return "Your session has expired. Please sign in again."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrStudentAccessOnly:
		return "Only students can take tests."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Test session ──────────────────────────────────────────────────
	case ErrNoSession:
		return "This test is not open. Open it first."
	case ErrInvalidTransition:
		return "That action is not possible right now."
	case ErrAnswersFrozen:
		return "Answers can no longer be changed."
	case ErrUnknownQuestion:
		return "That question is not part of this test."
	case ErrUnansweredQuestions:
		return "Some questions are unanswered. Confirm to submit anyway."
	case ErrInvalidPassword:
		return "Incorrect test password."
	case ErrAttemptsExhausted:
		return "You have used all attempts for this test."
	case ErrTestNotActive:
		return "This test is not currently available."
	case ErrSubmitRejected:
		return "Failed to submit test"
	case ErrUpstreamUnavailable:
		return "The test service could not be reached. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
