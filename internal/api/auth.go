package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"

	"roomsync/internal/config"
	"roomsync/internal/domain"
	"roomsync/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type principalKey struct{}

// CurrentUser returns the authenticated principal, or nil when the request
// carried no identity.
func CurrentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(principalKey{}).(*models.User)
	return user
}

// HTTPAuth resolves API keys to caller identities and applies per-key rate
// limiting. The key list is the authentication context: each key maps to a
// user id, name, email and role from config.
type HTTPAuth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	users    domain.UserService
	limiters sync.Map // map[string]*rate.Limiter
	logger   zerolog.Logger
}

func NewHTTPAuth(cfg config.APIConfig, users domain.UserService, logger *zerolog.Logger) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "http-auth").Logger()
	}
	return &HTTPAuth{cfg: cfg, clients: m, users: users, logger: log}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := devPrincipal
		if a.cfg.Auth.IsEnabled() {
			resolved, err := a.resolve(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			user = resolved
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		// Keep the requester registry current; failures must not block
		// the request.
		if a.users != nil {
			if err := a.users.SaveUser(r.Context(), user); err != nil {
				a.logger.Warn().Err(err).Int64("user_id", user.ID).Msg("save requester")
			}
		}

		ctx := context.WithValue(r.Context(), principalKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// devPrincipal is used only when authentication is disabled in config.
var devPrincipal = &models.User{ID: 1, Name: "dev", Role: models.RoleAdmin}

var (
	errMissingAPIKey = errors.New("missing api key header")
	errInvalidAPIKey = errors.New("invalid api key")
	errRateLimited   = errors.New("rate limit exceeded")
)

func (a *HTTPAuth) resolve(r *http.Request) (*models.User, error) {
	apiKey := strings.TrimSpace(r.Header.Get(a.headerName()))
	if apiKey == "" {
		return nil, errMissingAPIKey
	}

	// Constant-time scan keeps key comparison timing-independent.
	var matched *config.APIClientKey
	for key, client := range a.clients {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			c := client
			matched = &c
		}
	}
	if matched == nil {
		return nil, errInvalidAPIKey
	}

	role := matched.Role
	if role == "" {
		role = models.RoleUser
	}
	return &models.User{
		ID:    matched.UserID,
		Name:  matched.Name,
		Email: matched.Email,
		Role:  role,
	}, nil
}

func (a *HTTPAuth) headerName() string {
	header := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = "x-api-key"
	}
	return header
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	key := a.clientKey(r)
	lim := a.getLimiter(key)
	if !lim.Allow() {
		return errRateLimited
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.headerName())); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
