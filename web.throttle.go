package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// FormsThrottle limits per source IP how often the credential forms can be posted.
type FormsThrottle struct {
	clock TickerClocker
	rate  rate.Limit
	burst int
	idle  time.Duration

	mu       sync.Mutex
	limiters map[string]*ipLimiter
}

// NewFormsThrottle provides a throttle allowing rps submissions per second with burst.
func NewFormsThrottle(clock TickerClocker, rps float64, burst int) *FormsThrottle {
	return &FormsThrottle{
		clock:    clock,
		rate:     rate.Limit(rps),
		burst:    burst,
		idle:     5 * time.Minute,
		limiters: make(map[string]*ipLimiter),
	}
}

// Allow reports whether ip may submit now.
func (ft *FormsThrottle) Allow(ip string) bool {
	now := ft.clock.Now()
	ft.mu.Lock()
	l, ok := ft.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(ft.rate, ft.burst)}
		ft.limiters[ip] = l
	}
	l.lastSeen = now
	ft.mu.Unlock()
	return l.limiter.AllowN(now, 1)
}

// Cleanup forgets the limiters of the IPs not seen recently.
func (ft *FormsThrottle) Cleanup() {
	now := ft.clock.Now()
	ft.mu.Lock()
	defer ft.mu.Unlock()
	for ip, l := range ft.limiters {
		if now.Sub(l.lastSeen) > ft.idle {
			delete(ft.limiters, ip)
		}
	}
}

// Run cleans up idle limiters until ctx is done.
func (ft *FormsThrottle) Run(ctx context.Context) error {
	ticker := ft.clock.NewTicker(ft.idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			ft.Cleanup()
		}
	}
}

// Throttled rejects credential form submissions coming too fast from the same IP.
func (web *WebHandler) Throttled(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ip := GetRemoteIP(r)
		if web.config.Auth.FormsTrustProxy {
			ip = GetRequestSourceIP(r)
		}
		if web.throttle.Allow(ip) {
			next(w, r, ps)
			return
		}
		web.logger.Info("form submission throttled",
			zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)),
			zap.String("request.ip", ip),
		)
		w.Header().Set("Retry-After", "1")
		web.renderError(w, r, http.StatusTooManyRequests, "Too many attempts", "Too many requests. Please wait a moment and try again.")
	}
}
