package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutflow/credverify/api/schemas"
	"github.com/scoutflow/credverify/internal/config"
)

func TestResolveKnownPlatforms(t *testing.T) {
	airwork, err := Resolve(schemas.PlatformAirWork, nil)
	require.NoError(t, err)
	assert.True(t, airwork.HasLoginAPI())
	assert.Equal(t, "account", airwork.UserField)
	assert.Equal(t, "password", airwork.PassField)
	assert.Equal(t, "success", airwork.SuccessField)
	assert.NotEmpty(t, airwork.Form.Username)
	assert.NotEmpty(t, airwork.Form.Password)
	assert.NotEmpty(t, airwork.Form.Submit)

	engage, err := Resolve(schemas.PlatformEngage, nil)
	require.NoError(t, err)
	assert.False(t, engage.HasLoginAPI())
	assert.Equal(t, "/company/manage", engage.SuccessURLSubstring)
	assert.NotEmpty(t, engage.ErrorSelector)
}

func TestResolveUnknownPlatform(t *testing.T) {
	_, err := Resolve(schemas.Platform("workday"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported platform")
}

func TestResolveAppliesOverrides(t *testing.T) {
	overrides := map[string]config.PlatformOverride{
		"airwork": {
			LoginURL:    "https://staging.example.com/login",
			APILoginURL: "https://staging.example.com/api/login",
		},
	}

	p, err := Resolve(schemas.PlatformAirWork, overrides)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com/login", p.LoginURL)
	assert.Equal(t, "https://staging.example.com/api/login", p.APILoginURL)

	// Selectors are code-owned and never overridden.
	assert.Equal(t, `input[name="account"]`, p.Form.Username[0].Query)
}

func TestResolveOverridesDoNotLeak(t *testing.T) {
	overrides := map[string]config.PlatformOverride{
		"airwork": {LoginURL: "https://staging.example.com/login"},
	}
	_, err := Resolve(schemas.PlatformAirWork, overrides)
	require.NoError(t, err)

	// A later resolve without overrides sees the pristine profile.
	p, err := Resolve(schemas.PlatformAirWork, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://ats.rct.airwork.net/airplf/login", p.LoginURL)
}

func TestSupported(t *testing.T) {
	supported := Supported()
	assert.Len(t, supported, 2)
	for _, p := range supported {
		assert.True(t, p.Valid())
	}
}
