package logging

import (
	"log/slog"
	"strings"
	"testing"
)

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{"regular address", "guest@example.com"},
		{"another address", "host@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnonymizeEmail(tt.email)
			if !strings.HasPrefix(got, "user:") {
				t.Errorf("AnonymizeEmail(%q) = %q, want user: prefix", tt.email, got)
			}
			if strings.Contains(got, "@") {
				t.Errorf("AnonymizeEmail(%q) = %q leaks the address", tt.email, got)
			}
			// Stable: same input, same hash.
			if again := AnonymizeEmail(tt.email); again != got {
				t.Errorf("AnonymizeEmail not stable: %q vs %q", got, again)
			}
		})
	}

	if got := AnonymizeEmail(""); got != "" {
		t.Errorf("AnonymizeEmail(\"\") = %q, want empty", got)
	}

	if AnonymizeEmail("a@example.com") == AnonymizeEmail("b@example.com") {
		t.Error("distinct addresses must not collide")
	}
}

func TestErrNilIsOmittable(t *testing.T) {
	attr := Err(nil)
	if attr.Value.Kind() != slog.KindGroup {
		t.Errorf("Err(nil) kind = %v, want group", attr.Value.Kind())
	}
	if len(attr.Value.Group()) != 0 {
		t.Error("Err(nil) should be an empty group")
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"empty", "", "<empty>"},
		{"short", "abc", "[token:3 chars]"},
		{"long", strings.Repeat("x", 64), "[token:64 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestSetupLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		if logger := Setup(level); logger == nil {
			t.Errorf("Setup(%q) returned nil", level)
		}
	}
}
