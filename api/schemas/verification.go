package schemas

import "time"

// Platform identifies one of the external hiring systems credentials can be
// verified against.
type Platform string

const (
	PlatformAirWork Platform = "airwork"
	PlatformEngage  Platform = "engage"
)

// Valid reports whether p names a supported platform.
func (p Platform) Valid() bool {
	return p == PlatformAirWork || p == PlatformEngage
}

// StatusCategory is the closed taxonomy every verification outcome maps into,
// regardless of which strategy produced it.
type StatusCategory string

const (
	StatusSuccess            StatusCategory = "success"
	StatusInvalidCredentials StatusCategory = "invalid_credentials"
	StatusAccountLocked      StatusCategory = "account_locked"
	StatusRateLimited        StatusCategory = "rate_limited"
	StatusMaintenance        StatusCategory = "maintenance"
	StatusNetworkError       StatusCategory = "network_error"
	StatusAutomationError    StatusCategory = "automation_error"
	StatusUnknownError       StatusCategory = "unknown_error"
)

// OutcomeCode is the machine-readable tag attached to an outcome. Codes are
// finer grained than categories; each code belongs to exactly one category.
type OutcomeCode string

const (
	CodeAuthSuccess           OutcomeCode = "AUTH_SUCCESS"
	CodeAuthFailed            OutcomeCode = "AUTH_FAILED"
	CodeInvalidCredentials    OutcomeCode = "INVALID_CREDENTIALS"
	CodeMissingCredentials    OutcomeCode = "MISSING_CREDENTIALS"
	CodeAccountLocked         OutcomeCode = "ACCOUNT_LOCKED"
	CodeRateLimit             OutcomeCode = "RATE_LIMIT"
	CodeMaintenance           OutcomeCode = "MAINTENANCE"
	CodeNetworkError          OutcomeCode = "NETWORK_ERROR"
	CodeFormNotFound          OutcomeCode = "FORM_NOT_FOUND"
	CodeNavigationTimeout     OutcomeCode = "NAVIGATION_TIMEOUT"
	CodeAutomationUnavailable OutcomeCode = "AUTOMATION_UNAVAILABLE"
	CodeAutomationFailed      OutcomeCode = "AUTOMATION_ERROR"
	CodeUnconfirmed           OutcomeCode = "AUTH_UNCONFIRMED"
	CodeProcessingError       OutcomeCode = "PROCESSING_ERROR"
)

// Category returns the StatusCategory an OutcomeCode belongs to.
func (c OutcomeCode) Category() StatusCategory {
	switch c {
	case CodeAuthSuccess:
		return StatusSuccess
	case CodeAuthFailed, CodeInvalidCredentials, CodeMissingCredentials:
		return StatusInvalidCredentials
	case CodeAccountLocked:
		return StatusAccountLocked
	case CodeRateLimit:
		return StatusRateLimited
	case CodeMaintenance:
		return StatusMaintenance
	case CodeNetworkError:
		return StatusNetworkError
	case CodeFormNotFound, CodeNavigationTimeout, CodeAutomationUnavailable, CodeAutomationFailed:
		return StatusAutomationError
	default:
		return StatusUnknownError
	}
}

// VerificationRequest carries one credential pair to check against one
// platform. Credentials live only for the duration of a single verification
// call; nothing in the core persists them.
type VerificationRequest struct {
	Platform Platform `json:"platform"`
	Username string   `json:"username"`
	Password string   `json:"password"`
}

// VerificationOutcome is the normalized result returned to every caller.
type VerificationOutcome struct {
	Success bool `json:"success"`
	// Message is safe to show to an operator. It may be upstream sourced and
	// localized, but never contains the plaintext password.
	Message     string         `json:"message"`
	Category    StatusCategory `json:"status"`
	Code        OutcomeCode    `json:"code"`
	Timestamp   time.Time      `json:"timestamp"`
	ObservedURL string         `json:"url,omitempty"`
	// Diagnostic carries operator-facing detail (probe results, wrapped error
	// text). Never surfaced to end users verbatim.
	Diagnostic string `json:"error,omitempty"`
}

// NewOutcome builds an outcome for the given code, stamping it at call time.
func NewOutcome(code OutcomeCode, message string) VerificationOutcome {
	return VerificationOutcome{
		Success:   code == CodeAuthSuccess,
		Message:   message,
		Category:  code.Category(),
		Code:      code,
		Timestamp: time.Now().UTC(),
	}
}

// VerifyResponse is the wire shape existing dashboard callers expect.
type VerifyResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Details VerifyDetails `json:"details"`
}

// VerifyDetails nests the machine-readable portion of a VerifyResponse.
type VerifyDetails struct {
	Status    StatusCategory `json:"status"`
	Code      OutcomeCode    `json:"code"`
	Timestamp string         `json:"timestamp"`
	URL       string         `json:"url,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// ToResponse converts an outcome into the compatibility wire shape.
func (o VerificationOutcome) ToResponse() VerifyResponse {
	return VerifyResponse{
		Success: o.Success,
		Message: o.Message,
		Details: VerifyDetails{
			Status:    o.Category,
			Code:      o.Code,
			Timestamp: o.Timestamp.UTC().Format(time.RFC3339),
			URL:       o.ObservedURL,
			Error:     o.Diagnostic,
		},
	}
}
