package middleware

import (
	"net/http"

	"mt5bridge/pkg/crypto"
)

// APIKeyAuth - middleware для аутентификации запросов по API ключу
//
// Назначение:
// Защищает торговые endpoints от неавторизованного доступа.
// Клиент передает ключ в заголовке X-API-Key, сервер сверяет его
// с bcrypt хэшем из конфигурации (API_KEY_HASH).
//
// Безопасность:
// - В конфигурации хранится только хэш, не сам ключ
// - bcrypt сравнение устойчиво к timing attacks
// - При пустом хэше все запросы отклоняются (fail closed)
//
// Использование:
//
//	api := router.PathPrefix("/api/v1").Subrouter()
//	api.Use(middleware.APIKeyAuth(cfg.Security.APIKeyHash))
func APIKeyAuth(apiKeyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKeyHash == "" {
				unauthorized(w, "API key authentication is not configured")
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				unauthorized(w, "missing X-API-Key header")
				return
			}

			if !crypto.CheckAPIKeyMatch(apiKeyHash, key) {
				unauthorized(w, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"error_kind":"unauthorized","error_msg":"` + msg + `"}`))
}
