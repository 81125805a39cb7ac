package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEnrichValidation(t *testing.T) {
	h := NewHandler(nil)

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"malformed body", http.MethodPost, "{", http.StatusBadRequest},
		{"latitude out of range", http.MethodPost, `{"lat": 95, "lon": 0}`, http.StatusBadRequest},
		{"longitude out of range", http.MethodPost, `{"lat": 0, "lon": 181}`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/enrich", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			h.Enrich(w, req)
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}
}
