package schemas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformValid(t *testing.T) {
	assert.True(t, PlatformAirWork.Valid())
	assert.True(t, PlatformEngage.Valid())
	assert.False(t, Platform("linkedin").Valid())
	assert.False(t, Platform("").Valid())
}

func TestOutcomeCodeCategory(t *testing.T) {
	testCases := []struct {
		code     OutcomeCode
		expected StatusCategory
	}{
		{CodeAuthSuccess, StatusSuccess},
		{CodeAuthFailed, StatusInvalidCredentials},
		{CodeInvalidCredentials, StatusInvalidCredentials},
		{CodeMissingCredentials, StatusInvalidCredentials},
		{CodeAccountLocked, StatusAccountLocked},
		{CodeRateLimit, StatusRateLimited},
		{CodeMaintenance, StatusMaintenance},
		{CodeNetworkError, StatusNetworkError},
		{CodeFormNotFound, StatusAutomationError},
		{CodeNavigationTimeout, StatusAutomationError},
		{CodeAutomationUnavailable, StatusAutomationError},
		{CodeAutomationFailed, StatusAutomationError},
		{CodeUnconfirmed, StatusUnknownError},
		{CodeProcessingError, StatusUnknownError},
		{OutcomeCode("SOMETHING_NEW"), StatusUnknownError},
	}

	for _, tc := range testCases {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.code.Category())
		})
	}
}

func TestNewOutcome(t *testing.T) {
	before := time.Now().UTC()
	out := NewOutcome(CodeAuthSuccess, "authentication succeeded")

	assert.True(t, out.Success)
	assert.Equal(t, StatusSuccess, out.Category)
	assert.Equal(t, CodeAuthSuccess, out.Code)
	assert.False(t, out.Timestamp.Before(before))

	failed := NewOutcome(CodeInvalidCredentials, "rejected")
	assert.False(t, failed.Success)
	assert.Equal(t, StatusInvalidCredentials, failed.Category)
}

func TestToResponse(t *testing.T) {
	out := NewOutcome(CodeNetworkError, "could not reach the airwork login API")
	out.Diagnostic = "probe: unreachable"
	out.ObservedURL = "https://example.com/login"

	resp := out.ToResponse()

	assert.False(t, resp.Success)
	assert.Equal(t, "could not reach the airwork login API", resp.Message)
	assert.Equal(t, StatusNetworkError, resp.Details.Status)
	assert.Equal(t, CodeNetworkError, resp.Details.Code)
	assert.Equal(t, "probe: unreachable", resp.Details.Error)
	assert.Equal(t, "https://example.com/login", resp.Details.URL)

	parsed, err := time.Parse(time.RFC3339, resp.Details.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, out.Timestamp, parsed, time.Second)
}
