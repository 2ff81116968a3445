package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tuanvumaihuynh/pantry-sync/internal/apperr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/auth"
	"github.com/tuanvumaihuynh/pantry-sync/internal/http/apierr"
)

// Auth requires a bearer token signed with secret and stores its subject as
// the request owner.
func Auth(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	res := apierr.New(apperr.UnauthorizedErr)
	body, err := json.Marshal(res)
	if err != nil {
		panic(err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				writeUnauthorized(w, res.StatusCode, body)
				return
			}

			claims, err := auth.ValidateToken(secret, tokenStr)
			if err != nil {
				log.InfoContext(r.Context(), "rejected bearer token", slog.Any("error", err))
				writeUnauthorized(w, res.StatusCode, body)
				return
			}

			ctx := auth.NewContext(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="pantry"`)
	w.WriteHeader(status)
	//nolint:errcheck
	w.Write(body)
}
