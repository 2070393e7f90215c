package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

var (
	ErrMissingToken = errors.New("bearer token not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// GuardConfig configures Guard. An empty Secret disables authentication and a
// non-positive RequestsPerSecond disables rate limiting.
type GuardConfig struct {
	Secret            string
	Issuer            string
	RequestsPerSecond float64
	Burst             int
}

// Guard authenticates and throttles admin requests.
type Guard struct {
	secret  []byte
	issuer  string
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewGuard(cfg GuardConfig, logger *slog.Logger) *Guard {
	g := &Guard{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		logger: logger,
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return g
}

func (g *Guard) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.limiter != nil && !g.limiter.Allow() {
			g.logger.Warn("Admin rate limit exceeded",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, ErrRateLimited)
			return
		}

		if len(g.secret) > 0 {
			if err := g.authenticate(r); err != nil {
				g.logger.Warn("Admin request rejected",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("error", err.Error()))
				writeError(w, http.StatusUnauthorized, ErrUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (g *Guard) authenticate(r *http.Request) error {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if g.issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	}, opts...)
	if err != nil {
		return err
	}

	if !token.Valid {
		return errors.New("invalid token")
	}

	return nil
}
