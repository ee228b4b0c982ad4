package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services"
)

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"gin": c.GetString(ContextRequestID),
			"ctx": services.RequestIDFrom(c.Request.Context()),
		})
	})

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"propagates caller id", "abc-123", true},
		{"generates when missing", "", false},
		{"replaces oversized id", strings.Repeat("x", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/test", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			router.ServeHTTP(w, req)

			got := w.Header().Get(HeaderRequestID)
			if got == "" {
				t.Fatal("response should carry X-Request-ID")
			}
			if tt.keep && got != tt.incoming {
				t.Errorf("X-Request-ID = %q, expected %q", got, tt.incoming)
			}
			if !tt.keep && got == tt.incoming {
				t.Errorf("X-Request-ID should be regenerated, got %q", got)
			}
			expected := `{"ctx":"` + got + `","gin":"` + got + `"}`
			if w.Body.String() != expected {
				t.Errorf("body = %s, expected %s", w.Body.String(), expected)
			}
		})
	}
}
