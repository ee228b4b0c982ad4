package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services"
)

const maxAuditBody = 2000

// AuditLog records admin write operations (POST/PUT/DELETE) to system_logs.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodDelete {
			c.Next()
			return
		}

		var bodySnippet string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			bodySnippet = string(bodyBytes)
			if len(bodySnippet) > maxAuditBody {
				bodySnippet = bodySnippet[:maxAuditBody] + "...[truncated]"
			}
			bodySnippet = maskSensitiveFields(bodySnippet)
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)
		message := formatAuditMessage(GetUsername(c), method, c.Request.URL.Path, status)

		services.LogInfo(module, action, message, GetUserIDPtr(c), c.GetString(ContextRequestID), map[string]interface{}{
			"method": method,
			"path":   c.Request.URL.Path,
			"status": status,
			"body":   bodySnippet,
			"audit":  true,
		})
	}
}

// parseRouteInfo extracts module and action from a Gin route pattern.
// e.g. "/api/learning/reset" + "POST" → module="learning", action="post_reset"
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.Trim(strings.TrimPrefix(fullPath, "/api/"), "/")
	parts := strings.Split(path, "/")

	module = parts[0]
	if module == "" {
		module = "unknown"
	}

	action = strings.ToLower(method)
	for i := len(parts) - 1; i > 0; i-- {
		if !strings.HasPrefix(parts[i], ":") {
			action += "_" + strings.ReplaceAll(parts[i], "-", "_")
			break
		}
	}
	return module, action
}

func formatAuditMessage(username, method, path string, status int) string {
	if username == "" {
		username = "anonymous"
	}
	var b strings.Builder
	b.WriteString("[Audit] ")
	b.WriteString(username)
	b.WriteString(" ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(path)
	if status >= 200 && status < 300 {
		b.WriteString(" OK")
	} else {
		b.WriteString(" Failed")
	}
	return b.String()
}

// maskSensitiveFields replaces sensitive values in JSON body
func maskSensitiveFields(body string) string {
	sensitiveKeys := []string{"password", "secret", "token", "access_token"}
	lower := strings.ToLower(body)
	for _, key := range sensitiveKeys {
		if strings.Contains(lower, key) {
			body = maskJSONValue(body, key)
		}
	}
	return body
}

// maskJSONValue does a best-effort mask of the first JSON string value for key
func maskJSONValue(body, key string) string {
	lower := strings.ToLower(body)
	idx := strings.Index(lower, "\""+key+"\"")
	if idx == -1 {
		return body
	}

	colonIdx := strings.Index(body[idx+len(key)+2:], ":")
	if colonIdx == -1 {
		return body
	}
	valueStart := idx + len(key) + 2 + colonIdx + 1

	for valueStart < len(body) && (body[valueStart] == ' ' || body[valueStart] == '\t') {
		valueStart++
	}
	if valueStart >= len(body) || body[valueStart] != '"' {
		return body
	}

	endQuote := strings.Index(body[valueStart+1:], "\"")
	if endQuote == -1 {
		return body
	}
	return body[:valueStart+1] + "***" + body[valueStart+1+endQuote:]
}
