package server

import (
	"sort"
	"strings"
)

// CSPMode selects the content security policy profile.
type CSPMode string

const (
	// CSPStrict is the minimal-permission production policy.
	CSPStrict CSPMode = "strict"
	// CSPPermissive loosens script/style sources for development.
	CSPPermissive CSPMode = "permissive"
	// CSPOff disables the header entirely.
	CSPOff CSPMode = "off"
)

var cspStrict = map[string][]string{
	"default-src":     {"'self'"},
	"img-src":         {"'self'", "data:"},
	"script-src":      {"'self'"},
	"style-src":       {"'self'", "'unsafe-inline'"}, // inline styles required by the frontend toolkit
	"connect-src":     {"'self'", "ws:", "wss:"},
	"font-src":        {"'self'", "data:"},
	"frame-ancestors": {"'none'"},
	"form-action":     {"'self'"},
	"base-uri":        {"'self'"},
	"object-src":      {"'none'"},
}

var cspPermissive = map[string][]string{
	"default-src":     {"'self'"},
	"img-src":         {"'self'", "data:", "https:"},
	"script-src":      {"'self'", "'unsafe-inline'", "'unsafe-eval'"},
	"style-src":       {"'self'", "'unsafe-inline'"},
	"frame-ancestors": {"'self'"},
	"form-action":     {"'self'"},
	"connect-src":     {"'self'", "ws:", "wss:"},
}

// BuildCSP renders the policy string for mode. Unknown modes fall back to
// strict; CSPOff yields "".
func BuildCSP(mode CSPMode) string {
	var directives map[string][]string
	switch mode {
	case CSPOff:
		return ""
	case CSPPermissive:
		directives = cspPermissive
	default:
		directives = cspStrict
	}

	names := make([]string, 0, len(directives))
	for name := range directives {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+strings.Join(directives[name], " "))
	}
	return strings.Join(parts, "; ")
}
