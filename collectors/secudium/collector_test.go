package secudium

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/seclab-kr/blacklist-collector/common"
	"github.com/seclab-kr/blacklist-collector/common/collector"
	"github.com/seclab-kr/blacklist-collector/common/credentials"
)

const errorPage = `<html><body>접근 권한이 없습니다</body></html>`

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// newPortal stands in for the SECUDIUM portal: a JSON login endpoint plus
// caller-provided feed, board listing and download endpoints.
func newPortal(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(loginPagePath, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body><form id="loginForm"></form></body></html>`)
	})
	mux.HandleFunc("/login/loginProcess", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.PostFormValue("username") != "analyst" || r.PostFormValue("password") != "secret" {
			io.WriteString(w, `{"result":false,"message":"로그인 실패"}`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "SECUDIUM_SESSION", Value: "sess-7", Path: "/"})
		io.WriteString(w, `{"result":true}`)
	})
	for path, handler := range handlers {
		mux.HandleFunc(path, handler)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestCollector(t *testing.T, baseURL string) *Collector {
	t.Helper()
	cfg := collector.DefaultConfig(common.SourceSecudium)
	cfg.BaseURL = baseURL
	deps := collector.Deps{
		Credentials: credentials.NewStaticStore(map[string]credentials.Credentials{
			common.SourceSecudium: {Username: "analyst", Password: "secret"},
		}),
	}

	c := NewCollector(cfg, deps)
	if err := c.Setup(context.Background()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { _ = c.Teardown(context.Background()) })
	return c
}

func TestFetchPrefersJSONFeed(t *testing.T) {
	var (
		mu        sync.Mutex
		feedQuery url.Values
		boardHits int
	)
	srv := newPortal(t, map[string]http.HandlerFunc{
		ipFeedPath: func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			feedQuery = r.URL.Query()
			mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"list":[
				{"ip":"203.0.113.10","country":"KR","reason":"C2 서버","detectDt":"2026-08-01"},
				{"ipAddr":"198.51.100.3","country":"US","reason":"Bruteforce"}
			]}`)
		},
		boardListPath: func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			boardHits++
			mu.Unlock()
		},
	})
	c := newTestCollector(t, srv.URL)

	window := collector.NewDateRange(7)
	records, err := c.Fetch(context.Background(), window)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].IPAddress != "203.0.113.10" || records[0].Source != common.SourceSecudium {
		t.Errorf("first record = %q from %q", records[0].IPAddress, records[0].Source)
	}
	if records[0].Confidence != confidence {
		t.Errorf("Confidence = %d, want %d", records[0].Confidence, confidence)
	}
	if records[0].DetectionDate == nil {
		t.Error("DetectionDate not taken from detectDt key")
	}
	if records[1].IPAddress != "198.51.100.3" {
		t.Errorf("second record = %q", records[1].IPAddress)
	}

	mu.Lock()
	defer mu.Unlock()
	if boardHits != 0 {
		t.Errorf("board endpoint hit %d times, want 0", boardHits)
	}
	wantFrom, wantTo := window.Strings()
	if got := feedQuery.Get("startDate"); got != wantFrom {
		t.Errorf("startDate = %q, want %q", got, wantFrom)
	}
	if got := feedQuery.Get("endDate"); got != wantTo {
		t.Errorf("endDate = %q, want %q", got, wantTo)
	}
}

func TestFetchFallsBackToBoardAttachment(t *testing.T) {
	workbook := buildWorkbook(t, [][]interface{}{
		{"IP", "국가", "사유", "등록일"},
		{"203.0.113.77", "KR", "악성 봇넷", "2026-08-10"},
		{"192.0.2.8", "RU", "", "2026-08-11"},
	})

	var downloadQuery atomic.Value
	srv := newPortal(t, map[string]http.HandlerFunc{
		ipFeedPath: func(w http.ResponseWriter, r *http.Request) {
			// Feed backend down, the gateway serves its HTML error page
			io.WriteString(w, errorPage)
		},
		boardListPath: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"list":[
				{"articleNo":941,"title":"주간 공지","regDt":"2026-08-12"},
				{"articleNo":"940","title":"주간 차단 IP 목록","atchFileId":"F-77","regDt":"2026-08-10"}
			]}`)
		},
		fileDownloadPath: func(w http.ResponseWriter, r *http.Request) {
			downloadQuery.Store(r.URL.Query())
			w.Header().Set("Content-Type", xlsxContentType)
			w.Write(workbook)
		},
	})
	c := newTestCollector(t, srv.URL)

	records, err := c.Fetch(context.Background(), collector.NewDateRange(7))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].IPAddress != "203.0.113.77" {
		t.Errorf("first record = %q", records[0].IPAddress)
	}
	if records[1].Reason != defaultReason {
		t.Errorf("empty reason = %q, want placeholder", records[1].Reason)
	}

	query, ok := downloadQuery.Load().(url.Values)
	if !ok {
		t.Fatal("attachment was never downloaded")
	}
	if got := query.Get("atchFileId"); got != "F-77" {
		t.Errorf("atchFileId = %q, want the post with an attachment", got)
	}
}

func TestBrowserRescueRefreshesSession(t *testing.T) {
	workbook := buildWorkbook(t, [][]interface{}{
		{"IP", "사유"},
		{"198.51.100.60", "Credential Stuffing"},
	})

	var rescued atomic.Bool
	var browserLogins atomic.Int32
	srv := newPortal(t, map[string]http.HandlerFunc{
		ipFeedPath: func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, errorPage)
		},
		boardListPath: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"list":[{"articleNo":12,"title":"차단 IP","atchFileId":"F-12"}]}`)
		},
		fileDownloadPath: func(w http.ResponseWriter, r *http.Request) {
			if !rescued.Load() {
				io.WriteString(w, errorPage)
				return
			}
			w.Header().Set("Content-Type", xlsxContentType)
			w.Write(workbook)
		},
	})
	c := newTestCollector(t, srv.URL)
	c.browserLogin = func(ctx context.Context, client *http.Client, opts collector.BrowserOptions, pageURL string, fields map[string]string, submit string) error {
		browserLogins.Add(1)
		if fields["#userId"] != "analyst" || fields["#userPw"] != "secret" {
			t.Errorf("browser form fields = %v", fields)
		}
		rescued.Store(true)
		return nil
	}

	records, err := c.Fetch(context.Background(), collector.NewDateRange(7))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(records) != 1 || records[0].IPAddress != "198.51.100.60" {
		t.Fatalf("records = %+v, want the rescued attachment row", records)
	}
	if got := browserLogins.Load(); got != 1 {
		t.Errorf("browser login ran %d times, want 1", got)
	}
}

func TestFetchAuthFailureSkipsEndpoints(t *testing.T) {
	var endpointHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(loginPagePath, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body></body></html>`)
	})
	mux.HandleFunc("/login/loginProcess", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"result":false}`)
	})
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"result":"fail"}`)
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		endpointHits.Add(1)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := newTestCollector(t, srv.URL)

	_, err := c.Fetch(context.Background(), collector.NewDateRange(7))
	if !errors.Is(err, collector.ErrAuthenticationFailed) {
		t.Fatalf("err = %v, want ErrAuthenticationFailed", err)
	}
	if got := endpointHits.Load(); got != 0 {
		t.Errorf("data endpoints hit %d times after failed login", got)
	}
}
