package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAccountRequired ErrCode = "ACCOUNT_REQUIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam runner ───────────────────────────────────────────────────
	ErrExamNotFound         ErrCode = "EXAM_NOT_FOUND"
	ErrNoQuestions          ErrCode = "NO_QUESTIONS"
	ErrAttemptLimitReached  ErrCode = "ATTEMPT_LIMIT_REACHED"
	ErrSessionNotActive     ErrCode = "SESSION_NOT_ACTIVE"
	ErrConfirmationRequired ErrCode = "CONFIRMATION_REQUIRED"

	// ─── Results ───────────────────────────────────────────────────────
	ErrResultsNotReady ErrCode = "RESULTS_NOT_READY"
	ErrAttemptNotFound ErrCode = "ATTEMPT_NOT_FOUND"

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
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is not valid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrAccountRequired:
		return "This action requires a registered account."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The identifier format is not valid."
	case ErrInvalidPayload:
		return "The request payload is not valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The resource was not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Exam runner ───────────────────────────────────────────────────
	case ErrExamNotFound:
		return "The exam was not found."
	case ErrNoQuestions:
		return "This exam has no questions yet."
	case ErrAttemptLimitReached:
		return "You have used all attempts allowed for this exam."
	case ErrSessionNotActive:
		return "There is no exam in progress. Start the exam first."
	case ErrConfirmationRequired:
		return "Finishing the exam requires explicit confirmation."

	// ─── Results ───────────────────────────────────────────────────────
	case ErrResultsNotReady:
		return "No finished exam was found to show results for."
	case ErrAttemptNotFound:
		return "The exam attempt was not found."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
