package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
	ErrCodeExchangeFailed ErrCode = "CODE_EXCHANGE_FAILED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrAttemptNotFound      ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptMismatch      ErrCode = "ATTEMPT_MISMATCH"
	ErrAttemptFinished      ErrCode = "ATTEMPT_FINISHED"
	ErrExitConfirmRequired  ErrCode = "EXIT_CONFIRMATION_REQUIRED"
	ErrUnknownQuestion      ErrCode = "UNKNOWN_QUESTION"
	ErrInvalidAnswerLetter  ErrCode = "INVALID_ANSWER_LETTER"
	ErrSubmissionNotFound   ErrCode = "SUBMISSION_NOT_FOUND"
	ErrNoQuestions          ErrCode = "NO_QUESTIONS"
	ErrNotEnoughQuestions   ErrCode = "NOT_ENOUGH_QUESTIONS"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Upstream collaborators ────────────────────────────────────────
	ErrUpstream     ErrCode = "UPSTREAM_ERROR"
	ErrChatOffTopic ErrCode = "CHAT_OFF_TOPIC"
	ErrChatEmpty    ErrCode = "CHAT_EMPTY"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is not valid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrCodeExchangeFailed:
		return "Sign-in could not be completed. Please try again."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The identifier format is not valid."
	case ErrInvalidPayload:
		return "The request payload is not valid."

	case ErrAttemptNotFound:
		return "No active exam attempt was found for this session."
	case ErrAttemptMismatch:
		return "The stored attempt does not match the requested exam."
	case ErrAttemptFinished:
		return "This exam attempt has already finished."
	case ErrExitConfirmRequired:
		return "An exam is in progress. Confirm before leaving — unsaved answers will be discarded."
	case ErrUnknownQuestion:
		return "The question does not belong to this exam."
	case ErrInvalidAnswerLetter:
		return "The selected option letter is not valid for this question."
	case ErrSubmissionNotFound:
		return "No submission was found for this exam."
	case ErrNoQuestions:
		return "No questions are available to build an exam yet."
	case ErrNotEnoughQuestions:
		return "The question bank does not contain enough questions to assemble a full exam."

	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "The file type is not supported."
	case ErrFileTooLarge:
		return "The file exceeds the size limit."

	case ErrUpstream:
		return "An external service failed to respond. Your input was preserved — please retry."
	case ErrChatOffTopic:
		return "The assistant only answers questions about this exam question."
	case ErrChatEmpty:
		return "The assistant returned an empty response. Please retry."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
