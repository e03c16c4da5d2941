package monitoring

import (
	"fmt"
	"testing"
)

func TestWarnf(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Warnf("frame %d failed", 3)
	if got != "warning: frame 3 failed" {
		t.Errorf("Expected prefixed message, got %q", got)
	}

	got = ""
	SetLogger(nil)
	Warnf("muted")
	if got != "" {
		t.Errorf("No-op logger should not write, got %q", got)
	}
}
