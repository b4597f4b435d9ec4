package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"cantio/internal/core"
	"cantio/pkg/text"
)

type errorBody struct {
	Detail any `json:"detail"`
}

type exhaustedDetail struct {
	Reason         string   `json:"reason"`
	PlatformsTried []string `json:"platforms_tried"`
}

type streamHandler struct {
	resolver Resolver
	guard    URLGuard
	metrics  *Metrics
	parser   *text.Parser
	deadline time.Duration
	logger   *zap.Logger
}

func newStreamHandler(deps Dependencies, logger *zap.Logger) *streamHandler {
	return &streamHandler{
		resolver: deps.Resolver,
		guard:    deps.Guard,
		metrics:  deps.Metrics,
		parser:   text.NewParser(),
		deadline: deps.RequestDeadline,
		logger:   logger,
	}
}

func (h *streamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if strings.TrimSpace(raw) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Detail: "missing url parameter"})
		return
	}

	target := h.parser.NormalizeURL(raw)

	if h.guard != nil && !h.guard.Allow(target) {
		h.logger.Info("Same-URL limit reached", zap.String("url", target))
		if h.metrics != nil {
			h.metrics.RecordRateLimited("url")
		}
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, errorBody{Detail: "this URL was requested too often, try again later"})
		return
	}

	ctx := r.Context()
	if h.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.deadline)
		defer cancel()
	}

	result, err := h.resolver.Resolve(ctx, core.ResolutionRequest{URL: target})
	if err != nil {
		status, body := errorResponse(err)
		h.logger.Info("Resolution failed",
			zap.String("url", target),
			zap.Int("status", status),
			zap.Error(err))
		writeJSON(w, status, body)
		return
	}

	h.logger.Info("Resolution succeeded",
		zap.String("url", target),
		zap.String("platform", result.Platform),
		zap.Bool("fallback", result.FallbackUsed))
	writeJSON(w, http.StatusOK, result)
}

// statusForKind maps the failure taxonomy onto HTTP status codes.
func statusForKind(kind core.ErrorKind) int {
	switch kind {
	case core.KindValidation, core.KindFatal:
		return http.StatusBadRequest
	case core.KindBlocked:
		return http.StatusForbidden
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindFallbackExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) (int, errorBody) {
	var re *core.ResolutionError
	if !errors.As(err, &re) {
		return http.StatusInternalServerError, errorBody{Detail: err.Error()}
	}

	status := statusForKind(re.Kind)
	if re.Kind == core.KindFallbackExhausted {
		platforms := re.Platforms
		if platforms == nil {
			platforms = []string{}
		}
		return status, errorBody{Detail: exhaustedDetail{Reason: re.Reason, PlatformsTried: platforms}}
	}
	return status, errorBody{Detail: re.Reason}
}
