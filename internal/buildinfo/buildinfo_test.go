package buildinfo

import "testing"

func TestSetVersionOverridesDefault(t *testing.T) {
	original := version
	t.Cleanup(func() { version = original })

	SetVersion("")
	if version != original {
		t.Fatalf("empty version should be ignored, got %q", version)
	}
	SetVersion("v1.4.0")
	if got := Version(); got != "v1.4.0" {
		t.Fatalf("expected v1.4.0, got %q", got)
	}
}
