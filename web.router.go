package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

// SetupRoutes injects the pages and the ops endpoints if required.
func (web *WebHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.NotFound = web.NotFound(m)
	web.SetupPageRoutes(router, m)
	router.GET("/status", m.ops(web.Status))
	if web.config.OpsEndpointsEnable {
		web.SetupOpsRoutes(router, m)
	}
	return router
}

// SetupPageRoutes injects the pages. Protected ones go through the session guard.
func (web *WebHandler) SetupPageRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	page := m.public
	protected := func(h httprouter.Handle) httprouter.Handle { return m.public(web.RequireSession(h)) }
	throttled := func(h httprouter.Handle) httprouter.Handle { return m.public(web.Throttled(h)) }

	router.GET("/", page(web.Home))
	router.GET("/login", page(web.LoginPage))
	router.POST("/login", throttled(web.Login))
	router.POST("/login/provider/:provider", throttled(web.ProviderLogin))
	router.GET("/register", page(web.RegisterPage))
	router.POST("/register", throttled(web.Register))
	router.POST("/logout", page(web.Logout))

	router.GET("/search", page(web.Search))
	router.GET("/books/:id", page(web.BookDetail))
	router.POST("/books/:id/reviews", protected(web.AddReview))
	router.POST("/books/:id/reviews/:reviewId/delete", protected(web.DeleteReview))
	router.POST("/books/:id/reading-lists", protected(web.AddToReadingList))

	router.GET("/profile", protected(web.Profile))
	router.GET("/users/:id", protected(web.UserProfile))
	router.POST("/users/:id/follow", protected(web.Follow))
	router.POST("/users/:id/unfollow", protected(web.Unfollow))

	router.GET("/reading-lists", protected(web.ReadingLists))
	router.POST("/reading-lists", protected(web.CreateReadingList))
	router.GET("/reading-lists/:id", protected(web.ReadingListDetail))
	router.GET("/reading-lists/:id/books/:bookId/remove", protected(web.ConfirmRemoveBook))
	router.POST("/reading-lists/:id/books/:bookId/remove", protected(web.RemoveBook))
	return router
}

// SetupOpsRoutes injects internal operations related endpoints.
func (web *WebHandler) SetupOpsRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/ops/configs", m.ops(web.GetConfigs))
	router.GET("/ops/stats", m.ops(web.GetStatistics))
	router.GET("/ops/maintenance", m.ops(web.Maintenance))
	router.GET("/ops/debug/vars", m.ops(GetMemStats))
	router.GET("/ops/debug/gc", m.ops(web.RunGC))
	router.GET("/ops/debug/fos", m.ops(web.FreeOSMemory))

	if web.config.ProfilerEndpointsEnable {
		router.GET("/ops/debug/pprof/", m.ops(web.OpsHandlerWrapper(http.HandlerFunc(pprof.Index))))
		router.GET("/ops/debug/pprof/profile", m.ops(web.GetCPUProfile))
		router.GET("/ops/debug/pprof/trace", m.ops(web.GetTraceProfile))
		router.GET("/ops/debug/pprof/symbol", m.ops(web.GetSymbol))
		router.GET("/ops/debug/pprof/cmdline", m.ops(web.GetCmdLine))
		router.GET("/ops/debug/pprof/heap", m.ops(web.OpsHandlerWrapper(pprof.Handler("heap"))))
		router.GET("/ops/debug/pprof/allocs", m.ops(web.OpsHandlerWrapper(pprof.Handler("allocs"))))
		router.GET("/ops/debug/pprof/goroutine", m.ops(web.OpsHandlerWrapper(pprof.Handler("goroutine"))))
		router.GET("/ops/debug/pprof/block", m.ops(web.OpsHandlerWrapper(pprof.Handler("block"))))
		router.GET("/ops/debug/pprof/mutex", m.ops(web.OpsHandlerWrapper(pprof.Handler("mutex"))))
	}
	return router
}

// NotFound renders the error page for unknown paths, through the pages chain.
func (web *WebHandler) NotFound(m *MiddlewareMap) http.Handler {
	h := m.public(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		web.renderError(w, r, http.StatusNotFound, "Page not found", "The page you are looking for does not exist.")
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r, nil)
	})
}
