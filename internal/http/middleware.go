package http

import (
	"context"
	"fmt"
	"net"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const (
	rateLimitMessage   = "Too many requests. Please wait a moment and try again."
	unknownPathMessage = "Nothing lives at this address."
	sentryFlushWait    = 2 * time.Second
)

type middleware = func(huma.Context, func(huma.Context))

func (s *Server) sentryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		hub := s.sentry.Clone()
		scope := hub.Scope()
		scope.SetTag("http.method", ctx.Method())
		if op := ctx.Operation(); op != nil {
			scope.SetTag("http.route", op.Path)
		}
		if req, _ := humago.Unwrap(ctx); req != nil {
			scope.SetRequest(req)
		}

		ctx = huma.WithContext(ctx, sentry.SetHubOnContext(ctx.Context(), hub))
		defer hub.Flush(sentryFlushWait)

		next(ctx)
	}
}

func (s *Server) recoveryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", rec)
			}
			s.recordError(ctx.Context(), eris.Wrap(err, "panic recovered"), "panic recovered", nil)

			if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
				hub.RecoverWithContext(ctx.Context(), rec)
			}

			ctx.SetHeader("Content-Type", "text/plain; charset=utf-8")
			ctx.SetStatus(stdhttp.StatusInternalServerError)
			_, _ = ctx.BodyWriter().Write([]byte("internal server error"))
		}()

		next(ctx)
	}
}

func (s *Server) requestIDMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		reqID := strings.TrimSpace(ctx.Header("X-Request-ID"))
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.NewString()
		}

		goCtx := withRequestID(ctx.Context(), reqID)
		ctx = huma.WithContext(ctx, goCtx)
		ctx.SetHeader("X-Request-ID", reqID)

		if hub := sentry.GetHubFromContext(goCtx); hub != nil {
			hub.Scope().SetTag("request_id", reqID)
		}

		next(ctx)
	}
}

func (s *Server) rateLimitMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		req, _ := humago.Unwrap(ctx)
		if s.rateLimiter == nil || req == nil {
			next(ctx)
			return
		}

		ip := clientIPFromRequest(req)
		if s.rateLimiter.Allow(ip) {
			next(ctx)
			return
		}

		fields := s.requestFields(ctx.Context(), logrus.Fields{"ip": ip, "path": req.URL.Path})
		if s.logger != nil {
			s.logger.WithFields(fields).Warn("request rate limited")
		}

		resp := s.renderErrorResponse(ctx.Context(), stdhttp.StatusTooManyRequests, rateLimitMessage)

		ctx.SetHeader("Retry-After", "1")
		ctx.SetHeader("Content-Type", resp.ContentType)
		ctx.SetStatus(stdhttp.StatusTooManyRequests)
		_, _ = ctx.BodyWriter().Write(resp.Body)
	}
}

// exactRootMiddleware answers 404 for paths that only reach the index operation
// because ServeMux treats "GET /" as a catch-all.
func (s *Server) exactRootMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		req, _ := humago.Unwrap(ctx)
		if op == nil || req == nil || op.Path != "/" || req.URL.Path == "/" {
			next(ctx)
			return
		}

		resp := s.renderErrorResponse(ctx.Context(), stdhttp.StatusNotFound, unknownPathMessage)
		ctx.SetHeader("Content-Type", resp.ContentType)
		ctx.SetStatus(stdhttp.StatusNotFound)
		_, _ = ctx.BodyWriter().Write(resp.Body)
	}
}

func (s *Server) loggingMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.logger == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		fields := logrus.Fields{
			"method":      ctx.Method(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		}
		if op := ctx.Operation(); op != nil {
			fields["route"] = op.Path
		}
		if req, _ := humago.Unwrap(ctx); req != nil {
			fields["path"] = req.URL.Path
			fields["remote_addr"] = req.RemoteAddr
		}

		entry := s.logger.WithFields(s.requestFields(ctx.Context(), fields))
		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}

func (s *Server) metricsMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.metrics == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		route := "unmatched"
		if op := ctx.Operation(); op != nil {
			route = op.Path
		}
		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		s.metrics.observe(route, ctx.Method(), status, time.Since(start).Seconds())
	}
}

// requestFields adds the component and request id to fields.
func (s *Server) requestFields(ctx context.Context, fields logrus.Fields) logrus.Fields {
	out := logrus.Fields{"component": "http"}
	for key, value := range fields {
		out[key] = value
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		out["request_id"] = requestID
	}
	return out
}

func clientIPFromRequest(req *stdhttp.Request) string {
	if req == nil {
		return ""
	}

	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if candidate := strings.TrimSpace(first); candidate != "" {
			return candidate
		}
	}

	if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
