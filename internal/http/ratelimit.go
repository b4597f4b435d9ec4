package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig configures the per-client limiter in front of /stream.
type RateLimitConfig struct {
	RequestLimit int
	WindowSize   time.Duration
	// KeyFunc defaults to the client IP.
	KeyFunc func(r *http.Request) (string, error)
	// OnLimited is called for every rejected request.
	OnLimited func()
}

// RateLimit returns an httprate sliding-window limiter answering 429 with a JSON body.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}
	onLimited := cfg.OnLimited
	if onLimited == nil {
		onLimited = func() {}
	}

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			onLimited()
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cfg.WindowSize.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, errorBody{Detail: "Too many requests. Please try again later."})
		}),
	)
}
