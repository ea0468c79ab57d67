// File: internal/platform/profile.go
package platform

import (
	"fmt"

	"github.com/scoutflow/credverify/api/schemas"
	"github.com/scoutflow/credverify/internal/config"
)

// LocatorKind distinguishes how a locator query should be interpreted.
type LocatorKind string

const (
	ByCSS   LocatorKind = "css"
	ByXPath LocatorKind = "xpath"
)

// Locator is one candidate strategy for finding an element on a login page.
type Locator struct {
	Kind  LocatorKind
	Query string
}

// FormLocators holds the ordered fallback lists for the three login form
// elements. Candidates are tried in sequence; the first match wins.
type FormLocators struct {
	Username []Locator
	Password []Locator
	Submit   []Locator
}

// Profile is the static per-platform configuration: where to log in, how the
// direct API wants its payload shaped, and which signals mark success or
// failure after a browser-driven attempt.
type Profile struct {
	Platform schemas.Platform

	LoginURL string
	// APILoginURL is empty for platforms without a known direct API; those
	// platforms are always verified through browser automation.
	APILoginURL string

	// UserField and PassField name the JSON keys the login API expects.
	UserField string
	PassField string
	// SuccessField is the JSON body field that must be true on an HTTP 200
	// for the attempt to count as an authenticated session.
	SuccessField string

	Form FormLocators

	// SuccessURLSubstring marks success when the post-login URL contains it.
	SuccessURLSubstring string
	// SuccessSelector marks success when this element exists post-login.
	// Secondary to the URL match; kept for pages that re-render in place.
	SuccessSelector string
	// ErrorSelector points at the element whose text is the upstream error
	// message shown on a rejected login.
	ErrorSelector string

	// RuntimeConfigMarker is a string the prober looks for in the landing
	// page to confirm the client-side app bootstrapped.
	RuntimeConfigMarker string
}

// HasLoginAPI reports whether the platform exposes a usable direct API.
func (p Profile) HasLoginAPI() bool { return p.APILoginURL != "" }

var profiles = map[schemas.Platform]Profile{
	schemas.PlatformAirWork: {
		Platform:     schemas.PlatformAirWork,
		LoginURL:     "https://ats.rct.airwork.net/airplf/login",
		APILoginURL:  "https://ats.rct.airwork.net/airplf/api/v1/auth/login",
		UserField:    "account",
		PassField:    "password",
		SuccessField: "success",
		Form: FormLocators{
			Username: []Locator{
				{ByCSS, `input[name="account"]`},
				{ByCSS, `#account`},
				{ByXPath, `//input[@type='text' or @type='email']`},
			},
			Password: []Locator{
				{ByCSS, `input[name="password"]`},
				{ByCSS, `#password`},
				{ByXPath, `//input[@type='password']`},
			},
			Submit: []Locator{
				{ByCSS, `button[type="submit"]`},
				{ByXPath, `//button[contains(., 'ログイン')]`},
				{ByXPath, `//input[@type='submit']`},
			},
		},
		SuccessURLSubstring: "/airplf/manage",
		SuccessSelector:     `[data-test="global-header"]`,
		ErrorSelector:       `.error-message, [role="alert"]`,
		RuntimeConfigMarker: "window.__AIRPLF_CONFIG__",
	},
	schemas.PlatformEngage: {
		Platform: schemas.PlatformEngage,
		LoginURL: "https://en-gage.net/company_login/login/",
		// No stable direct API is known for engage; verification always goes
		// through the browser.
		APILoginURL: "",
		Form: FormLocators{
			Username: []Locator{
				{ByCSS, `input[name="loginID"]`},
				{ByCSS, `input[type="email"]`},
				{ByXPath, `//input[contains(@name, 'login') or contains(@name, 'mail')]`},
			},
			Password: []Locator{
				{ByCSS, `input[name="password"]`},
				{ByXPath, `//input[@type='password']`},
			},
			Submit: []Locator{
				{ByCSS, `button[type="submit"]`},
				{ByCSS, `#login-button`},
				{ByXPath, `//button[contains(., 'ログイン')]`},
			},
		},
		// The redirect path is the stable signal; the framework-generated
		// button class below changes with every upstream UI release and is
		// only consulted when the URL never leaves the login origin.
		SuccessURLSubstring: "/company/manage",
		SuccessSelector:     `.MuiButtonBase-root.MuiButton-containedPrimary[href*="dashboard"]`,
		ErrorSelector:       `.js_error, .error_text`,
		RuntimeConfigMarker: "window.__ENGAGE_ENV__",
	},
}

// Resolve returns the profile for the requested platform with any configured
// URL overrides applied.
func Resolve(p schemas.Platform, overrides map[string]config.PlatformOverride) (Profile, error) {
	profile, ok := profiles[p]
	if !ok {
		return Profile{}, fmt.Errorf("unsupported platform %q", p)
	}
	if ov, ok := overrides[string(p)]; ok {
		if ov.LoginURL != "" {
			profile.LoginURL = ov.LoginURL
		}
		if ov.APILoginURL != "" {
			profile.APILoginURL = ov.APILoginURL
		}
	}
	return profile, nil
}

// Supported lists the platforms this build can verify against.
func Supported() []schemas.Platform {
	return []schemas.Platform{schemas.PlatformAirWork, schemas.PlatformEngage}
}
