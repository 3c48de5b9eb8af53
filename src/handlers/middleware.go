package handlers

import (
	"net/http"
	"strings"

	"github.com/username/idxflow/backend/src/logger"
	"github.com/username/idxflow/backend/src/security"
	"github.com/username/idxflow/backend/src/utils"
)

// ServiceAuthMiddleware guards mutating endpoints with a bearer service
// token (HS256), presented by the scheduler or admin tooling.
func ServiceAuthMiddleware(authService *security.AuthService) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				utils.SendJSONError(w, "missing or malformed Authorization header", http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")
			subject, err := authService.ValidateToken(token)
			if err != nil {
				logger.L.Warn("Rejected service token", "path", r.URL.Path, "error", err)
				utils.SendJSONError(w, "invalid service token", http.StatusUnauthorized)
				return
			}
			logger.L.Debug("Service token accepted", "subject", subject, "path", r.URL.Path)
			next(w, r)
		}
	}
}
