package main

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// MiddlewareFunc is a custom type for ease of use.
type MiddlewareFunc func(httprouter.Handle) httprouter.Handle

// Middlewares is a custom type to represent a stack of
// middleware functions used to build a single chain.
type Middlewares []MiddlewareFunc

// MiddlewareMap contains middlewares chain to
// use for public-facing and ops requests.
type MiddlewareMap struct {
	public func(httprouter.Handle) httprouter.Handle
	ops    func(httprouter.Handle) httprouter.Handle
}

// Chain wraps a given httprouter.Handle with a list of middlewares.
// It does by starting from the last middleware from the list.
func (m Middlewares) Chain(h httprouter.Handle) httprouter.Handle {
	if len(m) == 0 {
		return h
	}
	lg := len(m)
	handle := m[lg-1](h)

	for i := lg - 2; i >= 0; i-- {
		handle = m[i](handle)
	}

	return handle
}

// MiddlewaresStacks returns the chains of pages and ops endpoints.
func (web *WebHandler) MiddlewaresStacks() (Middlewares, Middlewares) {
	public := Middlewares{
		web.RequestsCounterMiddleware,
		web.RequestIDMiddleware,
		web.StatsMiddleware,
		web.CoreMiddleware,
		web.PanicRecoveryMiddleware,
		web.MaintenanceModeMiddleware,
		web.VisitorMiddleware,
	}
	ops := Middlewares{
		web.RequestsCounterMiddleware,
		web.RequestIDMiddleware,
		web.StatsMiddleware,
		web.CoreMiddleware,
		web.PanicRecoveryMiddleware,
	}
	return public, ops
}

// CoreMiddleware measures the duration of each request, logs its
// outcome and provides a request scoped logger.
func (web *WebHandler) CoreMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		start := web.clock.Now()
		requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
		logger := web.logger.With(zap.String("request.id", requestID))
		r = r.WithContext(context.WithValue(r.Context(), LoggerContextKey, logger))

		logger.Info(
			"request",
			zap.Uint64("request.num", GetRequestNumberFromContext(r.Context())),
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.String("request.ip", GetRequestSourceIP(r)),
			zap.String("request.agent", r.UserAgent()),
			zap.String("request.referer", r.Referer()),
		)

		next(w, r, ps)

		fields := []zap.Field{
			zap.String("request.method", r.Method),
			zap.String("request.path", r.URL.Path),
			zap.Duration("request.duration", web.clock.Now().Sub(start)),
		}
		if cw, ok := w.(*CustomResponseWriter); ok {
			fields = append(fields, zap.Int("response.status", cw.Status()), zap.Int("response.bytes", cw.Bytes()))
		}
		logger.Info("response", fields...)
	}
}

// RequestsCounterMiddleware increments the number of received requests statistics and add this
// new value to the request context to be used during logging as `request.num` field.
func (web *WebHandler) RequestsCounterMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), RequestNumberContextKey, atomic.AddUint64(&web.stats.called, 1))
		next(w, r.WithContext(ctx), ps)
	}
}

// RequestIDMiddleware generates and add a unique id to the request context.
func (web *WebHandler) RequestIDMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		requestID := web.idsHandler.Generate(RequestIDPrefix)
		w.Header().Set("X-Request-Id", requestID)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		next(w, r.WithContext(ctx), ps)
	}
}

// StatsMiddleware records the number of responses sent per status code.
func (web *WebHandler) StatsMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		cw := NewCustomResponseWriter(w)
		next(cw, r, ps)
		web.stats.mu.Lock()
		web.stats.status[cw.Status()]++
		web.stats.mu.Unlock()
	}
}

// PanicRecoveryMiddleware catches any panic during the request lifecycle and produces
// an error log for further analysis. It renders the error page with 500.
func (web *WebHandler) PanicRecoveryMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
				web.logger.Error("panic occurred", zap.String("request.id", requestID), zap.Any("error", err))
				web.renderError(w, r, http.StatusInternalServerError, "Something went wrong", "failed to process the request.")
			}
		}()
		next(w, r, ps)
	}
}

// MaintenanceModeMiddleware renders the maintenance page while the mode is enabled.
func (web *WebHandler) MaintenanceModeMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !web.mode.enabled.Load() {
			next(w, r, ps)
			return
		}
		web.mode.mu.RLock()
		view := struct {
			Message string
			Since   string
		}{web.mode.message, web.mode.started.Format(time.RFC1123)}
		web.mode.mu.RUnlock()
		w.Header().Set("Retry-After", "120")
		web.render(w, r, http.StatusServiceUnavailable, "maintenance", "Maintenance", view)
	}
}

// VisitorMiddleware identifies the browser with its visitor cookie, issuing
// a new one when missing or forged, and attaches its state container.
func (web *WebHandler) VisitorMiddleware(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id := ""
		if c, err := r.Cookie(web.config.Session.CookieName); err == nil && web.idsHandler.IsValid(c.Value, VisitorIDPrefix) {
			id = c.Value
		}
		if id == "" {
			id = web.idsHandler.Generate(VisitorIDPrefix)
		}
		http.SetCookie(w, &http.Cookie{
			Name:     web.config.Session.CookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   web.config.Session.CookieSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		})
		v, release := web.visitors.Acquire(id)
		defer release()
		next(w, r.WithContext(context.WithValue(r.Context(), VisitorContextKey, v)), ps)
	}
}
