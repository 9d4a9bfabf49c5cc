package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Statistics holds app stats for ops.
type Statistics struct {
	version   string
	container bool
	runtime   string
	platform  string
	called    uint64
	started   time.Time
	status    map[int]uint64
	mu        *sync.RWMutex
}

// Maintenance holds app maintenance mode infos.
type Maintenance struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	message string
	started time.Time
}

// WebHandler renders the pages of the book club web client.
type WebHandler struct {
	logger     *zap.Logger
	config     *Config
	stats      *Statistics
	mode       *Maintenance
	clock      Clocker
	idsHandler UIDHandler
	visitors   *VisitorRegistry
	views      *Views
	throttle   *FormsThrottle
}

// NewWebHandler provides a new instance of WebHandler.
func NewWebHandler(
	logger *zap.Logger,
	config *Config,
	stats *Statistics,
	clock Clocker,
	idsHandler UIDHandler,
	visitors *VisitorRegistry,
	views *Views,
	throttle *FormsThrottle,
) *WebHandler {
	m := &Maintenance{}
	m.enabled.Store(false)
	stats.status = make(map[int]uint64)
	stats.mu = &sync.RWMutex{}
	return &WebHandler{
		logger:     logger,
		config:     config,
		stats:      stats,
		mode:       m,
		clock:      clock,
		idsHandler: idsHandler,
		visitors:   visitors,
		views:      views,
		throttle:   throttle,
	}
}

// render builds the page data from the visitor of the request and writes the page.
func (web *WebHandler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, content interface{}) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	data := &PageData{Title: title, RequestID: requestID, Content: content}
	if v := GetVisitorFromContext(r.Context()); v != nil {
		data.Session = v.Session.Snapshot()
		data.Flashes = v.PopFlashes()
	}
	web.writePage(w, r, status, page, data)
}

func (web *WebHandler) writePage(w http.ResponseWriter, r *http.Request, status int, page string, data *PageData) {
	if err := r.Context().Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			w.WriteHeader(http.StatusGatewayTimeout)
		} else {
			w.WriteHeader(StatusClientClosedRequest)
		}
		return
	}
	if err := web.views.Render(w, status, page, data); err != nil {
		web.logger.Error("failed to render page",
			zap.String("request.id", data.RequestID),
			zap.String("page", page),
			zap.Error(err),
		)
		http.Error(w, "failed to render the page.", http.StatusInternalServerError)
	}
}

// renderError shows the error page with the given status and message.
func (web *WebHandler) renderError(w http.ResponseWriter, r *http.Request, status int, heading, message string) {
	web.render(w, r, status, "error", heading, ErrorView{Heading: heading, Message: message})
}

// redirect sends the browser to location with a 303 so a refresh never replays a form.
func (web *WebHandler) redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// storeFailure logs a failed store operation, drops the session when the API
// rejected the token and returns the message to display.
func (web *WebHandler) storeFailure(r *http.Request, v *Visitor, err error, fallback string) string {
	LoggerFromContext(r.Context(), web.logger).Error("page operation failed", zap.String("visitor.id", v.ID), zap.Error(err))
	if IsUnauthorized(err) {
		v.Session.Invalidate(r.Context())
	}
	return ErrorMessage(err, fallback)
}

// currentUser returns the confirmed user of the visitor or nil.
func currentUser(v *Visitor) *Profile {
	snap := v.Session.Snapshot()
	if !snap.Authenticated() {
		return nil
	}
	return snap.User
}
