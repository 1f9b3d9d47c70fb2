package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/underwriter/pkg/telemetry/logging"
)

// APIKeyHeader is checked before the Authorization header.
const APIKeyHeader = "X-API-Key"

var (
	errMissingKey  = errors.New("missing API key")
	errInvalidKey  = errors.New("invalid API key")
	errDisabledKey = errors.New("API key disabled")
)

// APIKey is one client credential.
type APIKey struct {
	Key string
	// Organization, when set, overrides X-Organization for requests made
	// with this key.
	Organization string
	Enabled      bool
}

// KeySet validates presented API keys.
type KeySet struct {
	keys []APIKey
}

// NewKeySet returns a KeySet over keys. Empty keys are ignored.
func NewKeySet(keys []APIKey) *KeySet {
	ks := &KeySet{}
	for _, k := range keys {
		if k.Key != "" {
			ks.keys = append(ks.keys, k)
		}
	}
	return ks
}

// Validate returns the key matching presented. Every configured key is
// compared so the lookup time does not depend on which key matched.
func (ks *KeySet) Validate(presented string) (APIKey, error) {
	var (
		found APIKey
		ok    bool
	)
	for _, k := range ks.keys {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(presented)) == 1 {
			found, ok = k, true
		}
	}
	if !ok {
		return APIKey{}, errInvalidKey
	}
	if !found.Enabled {
		return APIKey{}, errDisabledKey
	}
	return found, nil
}

// Authenticate rejects requests that do not carry a valid key in
// X-API-Key or an "Authorization: Bearer" header.
func Authenticate(keys *KeySet, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := extractKey(r)
			if presented == "" {
				logger.WarnContext(r.Context(), "request without API key",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				writeUnauthorized(w, errMissingKey)
				return
			}

			key, err := keys.Validate(presented)
			if err != nil {
				logger.WarnContext(r.Context(), "API key rejected",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				writeUnauthorized(w, err)
				return
			}

			ctx := r.Context()
			if key.Organization != "" {
				ctx = logging.WithOrganization(ctx, key.Organization)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractKey(r *http.Request) string {
	if v := r.Header.Get(APIKeyHeader); v != "" {
		return v
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="underwriter"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"message": err.Error(),
			"type":    "authentication_error",
			"code":    "invalid_api_key",
		},
	})
}
