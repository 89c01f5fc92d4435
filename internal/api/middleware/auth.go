package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/AustinWheel/diving-duck-sub000/internal/api/auth"
	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

// Context keys for storing authentication results.
type contextKey string

const tenantKey contextKey = "tenant"

// GetTenant returns the authenticated tenant from context, or nil.
func GetTenant(ctx context.Context) *models.Tenant {
	if t, ok := ctx.Value(tenantKey).(*models.Tenant); ok {
		return t
	}
	return nil
}

// jsonUnauthorized writes an unauthorized error response.
func jsonUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// bearerToken extracts the Bearer credential from the request.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// APIKeyAuth authenticates event producers by their ingestion key
// ("wd_<keyID>_<secret>") and stores the owning tenant in the context.
func APIKeyAuth(store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plain := bearerToken(r)
			if plain == "" {
				jsonUnauthorized(w, "missing api key")
				return
			}

			keyID, secret, err := models.ParseAPIKey(plain)
			if err != nil {
				jsonUnauthorized(w, "invalid api key")
				return
			}

			key, err := store.APIKeys().GetByID(r.Context(), keyID)
			if err != nil {
				log.Printf("api key lookup %s: %v", keyID, err)
				jsonUnauthorized(w, "invalid api key")
				return
			}
			if key == nil || !key.IsValid() || !key.VerifySecret(secret) {
				jsonUnauthorized(w, "invalid api key")
				return
			}

			tenant, err := store.Tenants().GetByID(r.Context(), key.TenantID)
			if err != nil || tenant == nil {
				log.Printf("tenant lookup for key %s: %v", keyID, err)
				jsonUnauthorized(w, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), tenantKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DashboardAuth authenticates dashboard reads by JWT and stores the
// token's tenant in the context.
func DashboardAuth(jwtService *auth.JWTService, store storage.Storage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				jsonUnauthorized(w, "missing token")
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				log.Printf("dashboard auth failed for %s: %v", r.RemoteAddr, err)
				jsonUnauthorized(w, "invalid or expired token")
				return
			}

			tenant, err := store.Tenants().GetByID(r.Context(), claims.TenantID)
			if err != nil || tenant == nil {
				jsonUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), tenantKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
