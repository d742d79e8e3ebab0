package observability

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	log.Info("login attempt", "username", "alice", "password", "hunter2", "Token", "eyJhbGciOi")

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "eyJhbGciOi") {
		t.Fatalf("credentials leaked into log: %s", out)
	}
	if !strings.Contains(out, `"username":"alice"`) {
		t.Fatalf("expected username in log: %s", out)
	}
}

func TestLogger_DebugOnlyInDev(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "prod").Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug must be off outside dev, got %s", buf.String())
	}

	newLogger(&buf, "dev").Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("debug must be on in dev")
	}
}
