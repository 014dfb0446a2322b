package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/senyabanana/tender-workflow/internal/auth"
	"github.com/senyabanana/tender-workflow/internal/metrics"
	"github.com/senyabanana/tender-workflow/internal/models"
	"github.com/senyabanana/tender-workflow/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Authenticate проверяет bearer-токен и кладёт пользователя в контекст запроса.
func Authenticate(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				logger.Debug("request without token", zap.String("path", r.URL.Path), zap.Error(auth.ErrMissingToken))
				utils.SendErrorResponse(w, logger, models.NewErrorResponse(http.StatusUnauthorized, "authentication required"))
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				logger.Warn("invalid token", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
				utils.SendErrorResponse(w, logger, models.NewErrorResponse(http.StatusUnauthorized, "invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(models.WithCaller(r.Context(), claims.Caller())))
		})
	}
}

// RequestLogger логирует запросы и считает их в метриках.
func RequestLogger(logger *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())
			logger.Info("handled request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", duration),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
