package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/worldwidefm/wwfm-live/internal/models"
)

const (
	apiKeyHeader     = "X-API-Key"
	apiKeyQueryParam = "api-key"
	bearerPrefix     = "Bearer "
)

// Middleware enforces an access key on the wrapped handler.
// In open mode every request passes. Otherwise the key is taken from the
// X-API-Key header, a Bearer token, or the api-key query parameter.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsOpenMode() {
			next.ServeHTTP(w, r)
			return
		}

		if s.VerifyKey(requestKey(r)) {
			next.ServeHTTP(w, r)
			return
		}

		if !s.failures.Allow() {
			deny(w, &models.AppError{
				Code:    "TOO_MANY_REQUESTS",
				Message: "too many failed authentication attempts",
				Status:  http.StatusTooManyRequests,
			})
			return
		}
		deny(w, &models.AppError{
			Code:    "UNAUTHORIZED",
			Message: "missing or invalid access key",
			Status:  http.StatusUnauthorized,
		})
	})
}

func requestKey(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}
	return r.URL.Query().Get(apiKeyQueryParam)
}

func deny(w http.ResponseWriter, e *models.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
}
