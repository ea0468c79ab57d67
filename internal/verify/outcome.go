package verify

import (
	"fmt"
	"net/http"

	"github.com/scoutflow/credverify/api/schemas"
	"github.com/scoutflow/credverify/internal/apilogin"
)

// outcomeForRejection maps a semantic HTTP rejection from a login API onto
// the outcome taxonomy. Only statuses the platforms are known to use get a
// specific category; anything else is surfaced as unexpected rather than
// guessed at.
func outcomeForRejection(rej *apilogin.RejectedError) schemas.VerificationOutcome {
	switch rej.Status {
	case http.StatusUnauthorized:
		return schemas.NewOutcome(schemas.CodeInvalidCredentials,
			"the platform rejected the username or password")
	case http.StatusLocked:
		return schemas.NewOutcome(schemas.CodeAccountLocked,
			"the account is locked; it must be unlocked on the platform before verification can succeed")
	case http.StatusTooManyRequests:
		msg := "the platform is rate limiting login attempts; retry later"
		if rej.RetryAfter != "" {
			msg = fmt.Sprintf("the platform is rate limiting login attempts; retry after %s", rej.RetryAfter)
		}
		return schemas.NewOutcome(schemas.CodeRateLimit, msg)
	case http.StatusServiceUnavailable:
		return schemas.NewOutcome(schemas.CodeMaintenance,
			"the platform is under maintenance; retry later")
	default:
		out := schemas.NewOutcome(schemas.CodeProcessingError,
			fmt.Sprintf("the login API answered with unexpected status %d", rej.Status))
		out.Diagnostic = fmt.Sprintf("status=%d", rej.Status)
		return out
	}
}
