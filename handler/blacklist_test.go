package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seclab-kr/blacklist-collector/common/models"
)

type entriesEnvelope struct {
	Data []models.BlacklistEntry `json:"data"`
	Meta models.MetaResponse     `json:"meta"`
}

func TestActiveListIsNewlineDelimited(t *testing.T) {
	h := NewBlacklistHandler(&fakeBlacklist{activeIPs: []string{"203.0.113.5", "198.51.100.9"}})

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/active", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q, want text/plain", ct)
	}
	if got, want := rec.Body.String(), "203.0.113.5\n198.51.100.9\n"; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestActiveListEmpty(t *testing.T) {
	h := NewBlacklistHandler(&fakeBlacklist{})

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/active", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestActiveListUnavailable(t *testing.T) {
	h := NewBlacklistHandler(&fakeBlacklist{activeErr: errFakeDown})

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/active", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestListEntriesPagination(t *testing.T) {
	blacklist := &fakeBlacklist{
		entries: []models.BlacklistEntry{{ID: 1, IPAddress: "203.0.113.5", Source: "REGTECH"}},
		total:   101,
	}
	h := NewBlacklistHandler(blacklist)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entries?source=regtech&page=3&per_page=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if blacklist.lastSource != "REGTECH" {
		t.Errorf("source filter = %q, want uppercased REGTECH", blacklist.lastSource)
	}
	if !blacklist.lastActiveOnly {
		t.Error("active-only should default to true")
	}
	if blacklist.lastLimit != 10 || blacklist.lastOffset != 20 {
		t.Errorf("limit/offset = %d/%d, want 10/20", blacklist.lastLimit, blacklist.lastOffset)
	}

	var envelope entriesEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if envelope.Meta.Total != 101 {
		t.Errorf("meta total = %d, want 101", envelope.Meta.Total)
	}
	if envelope.Meta.LastPage != 11 {
		t.Errorf("meta last page = %d, want 11", envelope.Meta.LastPage)
	}
	if len(envelope.Data) != 1 {
		t.Errorf("entries = %d, want 1", len(envelope.Data))
	}
}

func TestListEntriesIncludesInactiveWithAll(t *testing.T) {
	blacklist := &fakeBlacklist{}
	h := NewBlacklistHandler(blacklist)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entries?all=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if blacklist.lastActiveOnly {
		t.Error("all=1 should include deactivated rows")
	}
}

func TestListEntriesCapsPerPage(t *testing.T) {
	blacklist := &fakeBlacklist{}
	h := NewBlacklistHandler(blacklist)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/entries?per_page=99999", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if blacklist.lastLimit != maxPerPage {
		t.Errorf("limit = %d, want capped at %d", blacklist.lastLimit, maxPerPage)
	}
}
