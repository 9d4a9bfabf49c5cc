package main

import (
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Status provides basics details about the application to the public users.
func (web *WebHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	resp := StatusResponse{
		RequestID: requestID,
		Status:    fmt.Sprintf("up & running since %.0f mins", web.clock.Now().Sub(web.stats.started).Minutes()),
		Message:   "Hello. Book club web client is available. Enjoy :)",
	}
	if err := WriteJSONResponse(r.Context(), w, http.StatusOK, resp); err != nil {
		web.logger.Error("failed to send status response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// Maintenance handles request to enable or disable the maintenance mode of the service.
// Enable the maintenance mode : /ops/maintenance?status=enable&msg=message-to-be-displayed-to-users
// Disable the maintenance mode: /ops/maintenance?status=disable
// Show the current mode       : /ops/maintenance?status=show
func (web *WebHandler) Maintenance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	q := r.URL.Query()
	status := http.StatusOK
	var response map[string]interface{}

	switch q.Get("status") {
	case "enable":
		msg, started := q.Get("msg"), web.clock.Now().UTC()
		web.mode.mu.Lock()
		web.mode.message = msg
		web.mode.started = started
		web.mode.mu.Unlock()
		web.mode.enabled.Store(true)
		response = map[string]interface{}{
			"requestid":           requestID,
			"maintenance.started": started.Format(time.RFC1123),
			"maintenance.message": msg,
			"message":             "Maintenance mode enabled successfully.",
		}
		web.logger.Info("maintenance mode enabled", zap.String("request.id", requestID))

	case "disable":
		web.mode.enabled.Store(false)
		web.mode.mu.Lock()
		web.mode.started = time.Time{}
		web.mode.message = ""
		web.mode.mu.Unlock()
		response = map[string]interface{}{
			"requestid": requestID,
			"message":   "Maintenance mode disabled successfully.",
		}
		web.logger.Info("maintenance mode disabled", zap.String("request.id", requestID))

	case "show", "":
		web.mode.mu.RLock()
		response = map[string]interface{}{
			"requestid": requestID,
			"enabled":   web.mode.enabled.Load(),
			"reason":    web.mode.message,
			"since":     web.mode.started.Format(time.RFC1123),
		}
		web.mode.mu.RUnlock()

	default:
		status = http.StatusBadRequest
		response = map[string]interface{}{
			"requestid": requestID,
			"message":   "status must be one of enable, disable or show.",
		}
	}

	if err := WriteJSONResponse(r.Context(), w, status, response); err != nil {
		web.logger.Error("failed to send maintenance response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// export goroutines to be used by expvar handler.
var goroutines = expvar.NewInt("goroutines")

// GetMemStats returns memory statistics with number of goroutines in json.
func GetMemStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	goroutines.Set(int64(runtime.NumGoroutine()))
	expvar.Handler().ServeHTTP(w, r)
}

// RunGC forces the run of the garbage collector asynchronously.
func (web *WebHandler) RunGC(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	go runtime.GC()
	if err := WriteJSONResponse(r.Context(), w, http.StatusOK, map[string]string{"called": "go runtime.GC()"}); err != nil {
		web.logger.Error("failed to send run gc response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// FreeOSMemory forces the garbage collector to and tries to returns the memory
// back to the operating system in an asynchronous fashion.
func (web *WebHandler) FreeOSMemory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	go debug.FreeOSMemory()
	if err := WriteJSONResponse(r.Context(), w, http.StatusOK, map[string]string{"called": "go debug.FreeOSMemory()"}); err != nil {
		web.logger.Error("failed to send free os memory response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetStatistics provides useful details about the application to the internal ops users.
// The stats returns by this handler do not contain the ops request which triggered that.
func (web *WebHandler) GetStatistics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	web.mode.mu.RLock()
	maintenanceStarted := ""
	if !web.mode.started.IsZero() {
		maintenanceStarted = web.mode.started.Format(time.RFC1123)
	}
	maintenance := map[string]interface{}{
		"enabled": web.mode.enabled.Load(),
		"started": maintenanceStarted,
		"message": web.mode.message,
	}
	web.mode.mu.RUnlock()

	web.stats.mu.RLock()
	status := make(map[int]uint64, len(web.stats.status))
	for code, n := range web.stats.status {
		status[code] = n
	}
	web.stats.mu.RUnlock()

	err := WriteJSONResponse(r.Context(), w, http.StatusOK,
		map[string]interface{}{
			"requestid":       requestID,
			"app.version":     web.stats.version,
			"app.container":   web.stats.container,
			"app.platform":    web.stats.platform,
			"go.version":      web.stats.runtime,
			"called":          atomic.LoadUint64(&web.stats.called) - 1,
			"started":         web.stats.started.Format(time.RFC1123),
			"uptime":          fmt.Sprintf("%.0f mins", web.clock.Now().Sub(web.stats.started).Minutes()),
			"visitors.active": web.visitors.Len(),
			"maintenance":     maintenance,
			"status":          status,
		},
	)
	if err != nil {
		web.logger.Error("failed to send statistics response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// GetConfigs serves current in-use configurations. Secrets are not serialized.
func (web *WebHandler) GetConfigs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	if err := WriteJSONResponse(r.Context(), w, http.StatusOK, map[string]interface{}{"configs": web.config}); err != nil {
		web.logger.Error("failed to send settings response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// OpsHandlerWrapper adapts a standard handler to the router.
func (web *WebHandler) OpsHandlerWrapper(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}

func (web *WebHandler) GetCPUProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Profile(w, r)
}

func (web *WebHandler) GetTraceProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Trace(w, r)
}

func (web *WebHandler) GetSymbol(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Symbol(w, r)
}

func (web *WebHandler) GetCmdLine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Cmdline(w, r)
}
