package response

// ErrCode is a machine-readable error code returned in the error envelope.
type ErrCode string

const (
	ErrValidation   ErrCode = "VALIDATION_ERROR"
	ErrUnauthorized ErrCode = "UNAUTHORIZED"
	ErrForbidden    ErrCode = "FORBIDDEN"
	ErrNotFound     ErrCode = "NOT_FOUND"
	ErrConflict     ErrCode = "CONFLICT"
	ErrInternal     ErrCode = "INTERNAL_ERROR"
	ErrRateLimited  ErrCode = "RATE_LIMITED"

	ErrInvalidCredentials  ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired       ErrCode = "TOKEN_REQUIRED"
	ErrTokenExpired        ErrCode = "TOKEN_EXPIRED"
	ErrTokenInvalid        ErrCode = "TOKEN_INVALID"
	ErrCandidateAccessOnly ErrCode = "CANDIDATE_ACCESS_ONLY"
	ErrAdminAccessOnly     ErrCode = "ADMIN_ACCESS_ONLY"
	ErrPermissionDenied    ErrCode = "PERMISSION_DENIED"
	ErrSessionInvalidated  ErrCode = "SESSION_INVALIDATED"

	ErrEmailTaken               ErrCode = "EMAIL_TAKEN"
	ErrJobNotOpen               ErrCode = "JOB_NOT_OPEN"
	ErrAlreadyApplied           ErrCode = "ALREADY_APPLIED"
	ErrInvalidApplicationStatus ErrCode = "INVALID_APPLICATION_STATUS"
	ErrAssessmentNotAvailable   ErrCode = "ASSESSMENT_NOT_AVAILABLE"
	ErrAssessmentFinished       ErrCode = "ASSESSMENT_FINISHED"
	ErrSessionActive            ErrCode = "SESSION_ACTIVE"
	ErrSubmissionInFlight       ErrCode = "SUBMISSION_IN_FLIGHT"
)

var errMessages = map[ErrCode]string{
	ErrValidation:   "The request contains invalid fields.",
	ErrUnauthorized: "Authentication is required to access this resource.",
	ErrForbidden:    "You do not have permission to perform this action.",
	ErrNotFound:     "The requested resource was not found.",
	ErrConflict:     "The request conflicts with the current state of the resource.",
	ErrInternal:     "An unexpected error occurred. Please try again later.",
	ErrRateLimited:  "Too many requests. Please slow down.",

	ErrInvalidCredentials:  "Incorrect email or password.",
	ErrTokenRequired:       "An authentication token is required.",
	ErrTokenExpired:        "Your session has expired. Please sign in again.",
	ErrTokenInvalid:        "The provided token is invalid.",
	ErrCandidateAccessOnly: "This resource is only available to candidates.",
	ErrAdminAccessOnly:     "This resource is only available to administrators.",
	ErrPermissionDenied:    "You do not have the required permission.",
	ErrSessionInvalidated:  "Your account was signed in from another device.",

	ErrEmailTaken:               "An account with this email already exists.",
	ErrJobNotOpen:               "This job is not accepting applications.",
	ErrAlreadyApplied:           "You have already applied to this job.",
	ErrInvalidApplicationStatus: "The application is not in a state that allows this action.",
	ErrAssessmentNotAvailable:   "The assessment is not available for this application.",
	ErrAssessmentFinished:       "The assessment has already been completed or terminated.",
	ErrSessionActive:            "An assessment session is already active for this application.",
	ErrSubmissionInFlight:       "A submission is already being processed.",
}

// GetMessage returns the human-readable message for an error code.
func GetMessage(code ErrCode) string {
	if msg, ok := errMessages[code]; ok {
		return msg
	}
	return errMessages[ErrInternal]
}
