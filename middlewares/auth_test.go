package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAccessTime(t *testing.T) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	stale := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"fresh", now, http.StatusOK},
		{"stale", stale, http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "yesterday", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/thing", nil)
			if tt.header != "" {
				req.Header.Set("X-ACCESS-TIME", tt.header)
			}

			rec := httptest.NewRecorder()
			AccessTime()(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestApiKey(t *testing.T) {
	const key, salt = "backend-key", "pepper"

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid digest", ApiKeyDigest(key, salt), http.StatusOK},
		{"raw key rejected", key, http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/thing", nil)
			if tt.header != "" {
				req.Header.Set("X-API-KEY", tt.header)
			}

			rec := httptest.NewRecorder()
			ApiKey(key, salt)(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequestSignature(t *testing.T) {
	const salt = "pepper"
	accessTime := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/api/scheduler/restart", nil)
	req.Header.Set("X-ACCESS-TIME", accessTime)
	req.Header.Set("X-REQUEST-SIGNATURE", SignRequest(http.MethodPost, "/api/scheduler/restart", accessTime, salt))

	rec := httptest.NewRecorder()
	RequestSignature(salt)(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid signature rejected: %d", rec.Code)
	}

	// Signing a different path must not pass.
	forged := httptest.NewRequest(http.MethodPost, "/api/scheduler/restart", nil)
	forged.Header.Set("X-ACCESS-TIME", accessTime)
	forged.Header.Set("X-REQUEST-SIGNATURE", SignRequest(http.MethodPost, "/api/other", accessTime, salt))

	rec = httptest.NewRecorder()
	RequestSignature(salt)(okHandler()).ServeHTTP(rec, forged)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged signature accepted: %d", rec.Code)
	}
}

func TestSignRequestIsDeterministic(t *testing.T) {
	a := SignRequest("GET", "/x", "123", "salt")
	b := SignRequest("GET", "/x", "123", "salt")
	if a != b {
		t.Fatal("signature not deterministic")
	}
	if a == SignRequest("GET", "/x", "123", "other-salt") {
		t.Fatal("salt does not affect signature")
	}
}
