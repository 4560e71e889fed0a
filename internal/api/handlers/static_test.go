package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSPAHandler(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o600); err != nil {
		t.Fatal(err)
	}
	h := NewSPAHandler(dir)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"asset", http.MethodGet, "/assets/app.js", http.StatusOK, "console.log(1)"},
		{"root", http.MethodGet, "/", http.StatusOK, "<html>app</html>"},
		{"client route", http.MethodGet, "/admin/profiles", http.StatusOK, "<html>app</html>"},
		{"traversal", http.MethodGet, "/../../etc/passwd", http.StatusOK, "<html>app</html>"},
		{"unknown api", http.MethodGet, "/api/unknown", http.StatusNotFound, "NOT_FOUND"},
		{"post", http.MethodPost, "/admin", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, ожидается %d", rr.Code, tt.wantStatus)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("тело = %q, ожидается %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}
