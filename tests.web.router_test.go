package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

// newStubEndpoints returns API mocks answering every call with empty data.
func newStubEndpoints() *testEndpoints {
	lists := newTestReadingListEndpoints()
	lists.CreateReadingListFunc = func(ctx context.Context, input ReadingListInput) (*ReadingList, error) {
		return &ReadingList{ID: "l3", Title: input.Title}, nil
	}
	lists.AddBookFunc = func(ctx context.Context, listID string, input AddBookInput) (*ReadingList, error) {
		l := testReadingList()
		return &l, nil
	}
	return &testEndpoints{
		books: newTestBookEndpoints(),
		reviews: &MockReviewEndpoints{
			GetBookReviewsFunc: func(ctx context.Context, bookID string) ([]Review, error) { return nil, nil },
			DeleteReviewFunc:   func(ctx context.Context, reviewID string) error { return nil },
		},
		lists: lists,
		users: &MockUserEndpoints{
			GetUserFunc: func(ctx context.Context, userID string) (*Profile, error) {
				return &Profile{ID: userID, Name: "Ada"}, nil
			},
			GetFollowersFunc: func(ctx context.Context, userID string) ([]UserRef, error) { return nil, nil },
			GetFollowingFunc: func(ctx context.Context, userID string) ([]UserRef, error) { return nil, nil },
			GetActivityFunc:  func(ctx context.Context, userID string) ([]Activity, error) { return nil, nil },
			FollowFunc:       func(ctx context.Context, userID string) error { return nil },
			UnfollowFunc:     func(ctx context.Context, userID string) error { return nil },
		},
	}
}

// attachVisitor is a pages chain member giving every request the same visitor.
func attachVisitor(v *Visitor) MiddlewareFunc {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			next(w, withVisitor(r, v), ps)
		}
	}
}

// TestSetupPageRoutes ensures all expected pages are implemented.
func TestSetupPageRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		request     *http.Request
		implemented bool
	}{
		{"home page", httptest.NewRequest(http.MethodGet, "/", nil), true},
		{"status endpoint", httptest.NewRequest(http.MethodGet, "/status", nil), true},
		{"login page", httptest.NewRequest(http.MethodGet, "/login", nil), true},
		{"login form", httptest.NewRequest(http.MethodPost, "/login", nil), true},
		{"provider login form", httptest.NewRequest(http.MethodPost, "/login/provider/google", nil), true},
		{"register page", httptest.NewRequest(http.MethodGet, "/register", nil), true},
		{"register form", httptest.NewRequest(http.MethodPost, "/register", nil), true},
		{"search page", httptest.NewRequest(http.MethodGet, "/search?query=dune", nil), true},
		{"book page", httptest.NewRequest(http.MethodGet, "/books/b1", nil), true},
		{"add review", httptest.NewRequest(http.MethodPost, "/books/b1/reviews", nil), true},
		{"delete review", httptest.NewRequest(http.MethodPost, "/books/b1/reviews/r1/delete", nil), true},
		{"add to reading list", httptest.NewRequest(http.MethodPost, "/books/b1/reading-lists", nil), true},
		{"own profile", httptest.NewRequest(http.MethodGet, "/profile", nil), true},
		{"user profile", httptest.NewRequest(http.MethodGet, "/users/u9", nil), true},
		{"follow user", httptest.NewRequest(http.MethodPost, "/users/u9/follow", nil), true},
		{"unfollow user", httptest.NewRequest(http.MethodPost, "/users/u9/unfollow", nil), true},
		{"reading lists page", httptest.NewRequest(http.MethodGet, "/reading-lists", nil), true},
		{"create reading list", httptest.NewRequest(http.MethodPost, "/reading-lists", nil), true},
		{"reading list page", httptest.NewRequest(http.MethodGet, "/reading-lists/l1", nil), true},
		{"confirm book removal", httptest.NewRequest(http.MethodGet, "/reading-lists/l1/books/b1/remove", nil), true},
		{"remove book", httptest.NewRequest(http.MethodPost, "/reading-lists/l1/books/b1/remove", nil), true},
		{"logout", httptest.NewRequest(http.MethodPost, "/logout", nil), true},
		{"unknown page", httptest.NewRequest(http.MethodGet, "/books", nil), false},
		{"unknown nested page", httptest.NewRequest(http.MethodGet, "/reading-lists/l1/books", nil), false},
		{"ops disabled", httptest.NewRequest(http.MethodGet, "/ops/stats", nil), false},
	}

	web := newTestWebHandler(t)
	v := newAuthenticatedTestVisitor(t, newStubEndpoints())
	router := httprouter.New()
	m := &MiddlewareMap{public: (Middlewares{attachVisitor(v)}).Chain, ops: (Middlewares{}).Chain}
	web.SetupRoutes(router, m)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, http.StatusNotFound, w.Code)
			} else {
				assert.Equal(t, http.StatusNotFound, w.Code)
			}
		})
	}
}

// TestSetupOpsRoutes ensures ops endpoints exist only when enabled.
func TestSetupOpsRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		profiler    bool
		path        string
		implemented bool
	}{
		{"configs endpoint", false, "/ops/configs", true},
		{"stats endpoint", false, "/ops/stats", true},
		{"maintenance endpoint", false, "/ops/maintenance?status=show", true},
		{"memory stats endpoint", false, "/ops/debug/vars", true},
		{"profiler disabled", false, "/ops/debug/pprof/heap", false},
		{"profiler enabled", true, "/ops/debug/pprof/heap", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			web := newTestWebHandler(t)
			web.config.OpsEndpointsEnable = true
			web.config.ProfilerEndpointsEnable = tc.profiler
			v := newTestVisitor(testVisitorID, &MockAuthEndpoints{}, nil)
			router := httprouter.New()
			m := &MiddlewareMap{public: (Middlewares{attachVisitor(v)}).Chain, ops: (Middlewares{}).Chain}
			web.SetupRoutes(router, m)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if tc.implemented {
				assert.NotEqual(t, http.StatusNotFound, w.Code)
			} else {
				assert.Equal(t, http.StatusNotFound, w.Code)
			}
		})
	}
}

// TestNotFound ensures unknown paths get the html error page.
func TestNotFound(t *testing.T) {
	web := newTestWebHandler(t)
	v := newTestVisitor(testVisitorID, &MockAuthEndpoints{}, nil)
	router := httprouter.New()
	m := &MiddlewareMap{public: (Middlewares{attachVisitor(v)}).Chain, ops: (Middlewares{}).Chain}
	web.SetupRoutes(router, m)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Page not found")
}
