package middlewares

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/seclab-kr/blacklist-collector/common/utils"
)

// accessTimeSkew is how far X-ACCESS-TIME may drift from server time
const accessTimeSkew = 5 * time.Minute

// AccessTime requires a fresh X-ACCESS-TIME unix timestamp on the request,
// rejecting replays with stale timestamps before the signature check runs
func AccessTime() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-ACCESS-TIME")
			if raw == "" {
				utils.WriteError(w, http.StatusUnauthorized, "Missing access time")
				return
			}

			ts, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, "Invalid access time")
				return
			}

			drift := time.Since(time.Unix(ts, 0))
			if drift > accessTimeSkew || drift < -accessTimeSkew {
				utils.WriteError(w, http.StatusUnauthorized, "Access time out of range")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ApiKey checks X-API-KEY against the salted digest of the backend key.
// Clients hold both the key and the salt and send hex(sha256(key+salt)).
func ApiKey(apiKey, salt string) func(http.Handler) http.Handler {
	expected := ApiKeyDigest(apiKey, salt)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-API-KEY")
			if provided == "" || !hmac.Equal([]byte(provided), []byte(expected)) {
				utils.WriteError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestSignature verifies X-REQUEST-SIGNATURE, an HMAC-SHA256 over
// "<method>:<path>:<access-time>" keyed with the server salt
func RequestSignature(salt string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-REQUEST-SIGNATURE")
			if provided == "" {
				utils.WriteError(w, http.StatusUnauthorized, "Missing request signature")
				return
			}

			expected := SignRequest(r.Method, r.URL.Path, r.Header.Get("X-ACCESS-TIME"), salt)
			if !hmac.Equal([]byte(provided), []byte(expected)) {
				utils.WriteError(w, http.StatusUnauthorized, "Invalid request signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ApiKeyDigest computes the value clients send in X-API-KEY
func ApiKeyDigest(apiKey, salt string) string {
	sum := sha256.Sum256([]byte(apiKey + salt))
	return hex.EncodeToString(sum[:])
}

// SignRequest computes the value clients send in X-REQUEST-SIGNATURE
func SignRequest(method, path, accessTime, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(method + ":" + path + ":" + accessTime))
	return hex.EncodeToString(mac.Sum(nil))
}
