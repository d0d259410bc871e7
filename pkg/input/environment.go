package input

import (
	"os/exec"

	"github.com/offlinefirst/input-replay/pkg/permissions"
)

// Environment summarises capture and injection backend support.
type Environment struct {
	Provider   string
	Available  bool
	Permission string
	Message    string
	Guidance   string
}

// Backend identifiers accepted by configuration.
const (
	SourceSynthetic = "synthetic"
	SourceStdin     = "stdin"

	InjectorDryRun  = "dry-run"
	InjectorStdout  = "stdout"
	InjectorXdotool = "xdotool"
)

// lookPath is declared for swapping in tests.
var lookPath = exec.LookPath

// DetectCaptureEnvironment reports whether the configured capture source can run.
func DetectCaptureEnvironment(provider string, environ map[string]string) Environment {
	probe := permissions.ProbeAccessibility(environ)
	env := Environment{
		Provider:   provider,
		Permission: probe.StatusString(),
		Message:    probe.Message,
		Guidance:   probe.Guidance,
		Available:  true,
	}
	switch provider {
	case SourceSynthetic:
		env.Permission = "not_applicable"
		env.Message = "scripted demo timeline"
		env.Guidance = ""
	case SourceStdin:
		env.Message = "JSON-lines notifications from an external hook process"
		env.Available = probe.Status != permissions.StatusDenied
	default:
		env.Available = false
		env.Message = "unknown capture source"
	}
	return env
}

// DetectInjectionEnvironment reports whether the configured injector can run.
func DetectInjectionEnvironment(provider string, environ map[string]string) Environment {
	probe := permissions.ProbeInjection(environ)
	env := Environment{
		Provider:   provider,
		Permission: probe.StatusString(),
		Message:    probe.Message,
		Guidance:   probe.Guidance,
		Available:  true,
	}
	switch provider {
	case InjectorDryRun, InjectorStdout:
		env.Permission = "not_applicable"
		env.Message = "no OS input is posted"
		env.Guidance = ""
	case InjectorXdotool:
		if _, err := lookPath("xdotool"); err != nil {
			env.Available = false
			env.Message = "xdotool not found on PATH"
			env.Guidance = "install xdotool or use --injector dry-run"
			return env
		}
		env.Available = probe.Usable()
	default:
		env.Available = false
		env.Message = "unknown injector"
	}
	return env
}
