package permissions

import (
	"runtime"
	"strings"

	"github.com/caarlos0/env/v6"
)

// Status enumerates coarse permission results for OS-level input access.
type Status string

const (
	// StatusUnknown indicates no explicit signal about permission state.
	StatusUnknown Status = "unknown"
	// StatusGranted signals that permission was previously granted.
	StatusGranted Status = "granted"
	// StatusDenied indicates the user has explicitly denied access.
	StatusDenied Status = "denied"
	// StatusPromptRequired means the platform will prompt at runtime.
	StatusPromptRequired Status = "prompt"
	// StatusUnavailable reports that the capability is not supported.
	StatusUnavailable Status = "unavailable"
)

// ProbeResult represents the coarse state for a permission surface.
type ProbeResult struct {
	Status   Status
	Message  string
	Guidance string
}

// overrides collects the environment switches that pre-answer permission probes.
type overrides struct {
	Accessibility string `env:"REPLAYCTL_ACCESSIBILITY"`
	Injection     string `env:"REPLAYCTL_INJECTION"`
	Display       string `env:"DISPLAY"`
}

// goos is declared for swapping in tests.
var goos = runtime.GOOS

// loadOverrides parses the overrides from environ, or from the process
// environment when environ is nil.
func loadOverrides(environ map[string]string) overrides {
	var o overrides
	opts := env.Options{Environment: environ}
	if err := env.Parse(&o, opts); err != nil {
		return overrides{}
	}
	return o
}

// ProbeAccessibility reports whether global input listeners may be attached.
func ProbeAccessibility(environ map[string]string) ProbeResult {
	o := loadOverrides(environ)
	if strings.TrimSpace(o.Accessibility) != "" {
		return interpretPermissionFlag("accessibility", o.Accessibility)
	}
	switch goos {
	case "darwin":
		return ProbeResult{Status: StatusPromptRequired, Message: "accessibility trust required for global input listeners"}
	case "linux":
		if strings.TrimSpace(o.Display) == "" {
			return ProbeResult{Status: StatusUnavailable, Message: "no X11 display for global input listeners", Guidance: "export DISPLAY or pipe notifications with --source stdin"}
		}
		return ProbeResult{Status: StatusGranted, Message: "X11 display available"}
	default:
		return ProbeResult{Status: StatusGranted, Message: "no permission gate on this platform"}
	}
}

// ProbeInjection reports whether synthetic pointer and keyboard input may be posted.
func ProbeInjection(environ map[string]string) ProbeResult {
	o := loadOverrides(environ)
	if strings.TrimSpace(o.Injection) != "" {
		return interpretPermissionFlag("input injection", o.Injection)
	}
	switch goos {
	case "darwin":
		return ProbeResult{Status: StatusPromptRequired, Message: "accessibility trust required to post synthetic input"}
	case "linux":
		if strings.TrimSpace(o.Display) == "" {
			return ProbeResult{Status: StatusUnavailable, Message: "no X11 display for input injection", Guidance: "use --injector dry-run or --injector stdout"}
		}
		return ProbeResult{Status: StatusGranted, Message: "X11 display available"}
	default:
		return ProbeResult{Status: StatusGranted, Message: "no permission gate on this platform"}
	}
}

func interpretPermissionFlag(name, value string) ProbeResult {
	normalised := strings.ToLower(strings.TrimSpace(value))
	switch normalised {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Status: StatusGranted, Message: name + " permission pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{Status: StatusDenied, Message: name + " permission denied via env override", Guidance: "grant access in the OS privacy settings or update REPLAYCTL_* env to re-test"}
	case "prompt", "ask":
		return ProbeResult{Status: StatusPromptRequired, Message: name + " permission will prompt at runtime"}
	case "unavailable", "unsupported":
		return ProbeResult{Status: StatusUnavailable, Message: name + " permission unavailable on this platform"}
	default:
		return ProbeResult{Status: StatusUnknown, Message: name + " permission state unknown"}
	}
}

// StatusString returns the string representation used in diagnostics output.
func (p ProbeResult) StatusString() string {
	if p.Status == "" {
		return string(StatusUnknown)
	}
	return string(p.Status)
}

// Usable reports whether the capability can be attempted.
func (p ProbeResult) Usable() bool {
	return p.Status != StatusDenied && p.Status != StatusUnavailable
}
