package middleware

import "testing"

func TestParseRouteInfo(t *testing.T) {
	tests := []struct {
		path, method   string
		module, action string
	}{
		{"/api/learning/reset", "POST", "learning", "post_reset"},
		{"/api/learning/resume", "POST", "learning", "post_resume"},
		{"/api/artifacts", "POST", "artifacts", "post"},
		{"/api/artifacts/:id", "DELETE", "artifacts", "delete"},
		{"/api/system-logs/cleanup", "POST", "system-logs", "post_cleanup"},
		{"", "POST", "unknown", "post"},
	}

	for _, tt := range tests {
		module, action := parseRouteInfo(tt.path, tt.method)
		if module != tt.module || action != tt.action {
			t.Errorf("parseRouteInfo(%q, %q) = (%q, %q), expected (%q, %q)",
				tt.path, tt.method, module, action, tt.module, tt.action)
		}
	}
}

func TestMaskSensitiveFields(t *testing.T) {
	tests := []struct {
		input, expected string
	}{
		{`{"token":"abc"}`, `{"token":"***"}`},
		{`{"password": "hunter2", "name":"x"}`, `{"password": "***", "name":"x"}`},
		{`{"reason":"drift"}`, `{"reason":"drift"}`},
		{`{"secret":42}`, `{"secret":42}`},
	}

	for _, tt := range tests {
		if got := maskSensitiveFields(tt.input); got != tt.expected {
			t.Errorf("maskSensitiveFields(%s) = %s, expected %s", tt.input, got, tt.expected)
		}
	}
}

func TestFormatAuditMessage(t *testing.T) {
	if got := formatAuditMessage("admin", "POST", "/api/learning/reset", 200); got != "[Audit] admin POST /api/learning/reset OK" {
		t.Errorf("unexpected message %q", got)
	}
	if got := formatAuditMessage("", "POST", "/api/learning/reset", 403); got != "[Audit] anonymous POST /api/learning/reset Failed" {
		t.Errorf("unexpected message %q", got)
	}
}
