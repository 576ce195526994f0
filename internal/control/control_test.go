// +build !windows

package control

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wlmux/wlmux/internal/object"
)

func TestHandleVersionReturnsCurrent(t *testing.T) {
	s := New(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	s.handleVersion(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected a non-empty version string")
	}
}

func TestHandlePingOK(t *testing.T) {
	s := New(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	s.handlePing(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleAuditEmptyWithoutAudit(t *testing.T) {
	s := New(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	rec := httptest.NewRecorder()
	s.handleAudit(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() == "" {
		t.Fatal("expected a JSON body even with no audit wired")
	}
}

func TestHandleAuditReportsRecentDeletes(t *testing.T) {
	audit := object.NewAudit()
	audit.RecordDelete(9, "wl_subsurface")
	s := New(nil, audit, nil)
	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	rec := httptest.NewRecorder()
	s.handleAudit(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); !contains(got, "9") {
		t.Fatalf("expected recorded id 9 in response, got %s", got)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
