package middlewares

import (
	"crypto/subtle"
	"net/http"

	"github.com/LexiconIndonesia/crypto-news-crawler/common/utils"
	"github.com/rs/zerolog/log"
)

const apiKeyHeader = "X-API-KEY"

// ApiKey rejects requests whose X-API-KEY header does not match key.
// An empty key disables the check.
func ApiKey(key string) func(http.Handler) http.Handler {
	if key == "" {
		log.Warn().Msg("BACKEND_API_KEY is empty, API key check disabled")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get(apiKeyHeader)
			if got == "" {
				utils.WriteError(w, http.StatusUnauthorized, "Missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				log.Warn().Str("remote", r.RemoteAddr).Str("path", r.URL.Path).Msg("Rejected request with invalid API key")
				utils.WriteError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
