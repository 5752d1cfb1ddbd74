package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

const SystemTokenHeader = "X-System-Token"

// SystemToken protege rotas de sistema. Sem token configurado, nada passa.
func SystemToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := r.Header.Get(SystemTokenHeader)
			if token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error":   map[string]string{"code": "UNAUTHORIZED", "message": "unauthorized system access"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
