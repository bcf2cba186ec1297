package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Spok95/bqs/internal/ctxutil"
	"github.com/Spok95/bqs/internal/metrics"
	"github.com/Spok95/bqs/internal/models"
)

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// accessLog: строка в zap и счётчик по шаблону маршрута.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
			s.log.Info("http request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// identify: вызывающий из X-User-ID / X-User-Role, сверенный со справочником.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(headerUserID))
		if id == "" {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "X-User-ID header is required")
			return
		}
		u, ok := s.deps.Directory.Get(id)
		if !ok || !u.IsActive {
			respondError(w, http.StatusForbidden, "forbidden", "unknown or inactive user")
			return
		}

		c := ctxutil.Caller{UserID: id}
		if raw := r.Header.Get(headerUserRole); raw != "" {
			role, ok := models.ParseRole(raw)
			if !ok {
				respondError(w, http.StatusUnprocessableEntity, "validation", "unknown role "+raw)
				return
			}
			if !u.HasRole(role) {
				respondError(w, http.StatusForbidden, "forbidden", "user does not hold role "+string(role))
				return
			}
			c.Role = role
		}
		next.ServeHTTP(w, r.WithContext(ctxutil.WithCaller(r.Context(), c)))
	})
}

func (s *Server) requireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, _ := ctxutil.CallerFrom(r.Context())
			if c.Role != role {
				respondError(w, http.StatusForbidden, "forbidden", "this endpoint requires role "+string(role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
