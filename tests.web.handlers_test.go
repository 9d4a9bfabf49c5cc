package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEndpoints groups the API mocks a test visitor talks to.
type testEndpoints struct {
	books   BookEndpoints
	reviews ReviewEndpoints
	lists   ReadingListEndpoints
	users   UserEndpoints
}

func newTestWebHandler(t *testing.T) *WebHandler {
	t.Helper()
	clock := NewMockClocker()
	views, err := NewViews(clock)
	require.NoError(t, err)
	config := &Config{
		Session: SessionConfig{CookieName: DefaultCookieName, ResolveWait: 50 * time.Millisecond, IdleTTL: time.Minute, SweepInterval: time.Minute},
		Auth:    AuthConfig{Strategies: []string{PasswordStrategy, IdentityProviderKey}, Providers: []string{"google"}},
	}
	visitors := NewVisitorRegistry(zap.NewNop(), clock, &config.Session, func(id string) *Visitor {
		return newTestVisitor(id, &MockAuthEndpoints{}, nil)
	})
	return NewWebHandler(
		zap.NewNop(),
		config,
		&Statistics{started: clock.Now()},
		clock,
		NewMockUIDHandler("abc", true),
		visitors,
		views,
		NewFormsThrottle(clock, 1000, 1000),
	)
}

func newTestVisitor(id string, auth AuthEndpoints, eps *testEndpoints) *Visitor {
	if eps == nil {
		eps = &testEndpoints{}
	}
	if eps.books == nil {
		eps.books = &MockBookEndpoints{}
	}
	if eps.reviews == nil {
		eps.reviews = &MockReviewEndpoints{}
	}
	if eps.lists == nil {
		eps.lists = &MockReadingListEndpoints{}
	}
	if eps.users == nil {
		eps.users = &MockUserEndpoints{}
	}
	clock := NewMockClocker()
	return &Visitor{
		ID:      id,
		Session: NewSessionStore(zap.NewNop(), id, NewMockTokenStore(nil), auth, clock, NewPasswordStrategy(auth), NewIdentityProviderStrategy(auth, clock, []string{"google"}, "")),
		Books:   NewBookStore(zap.NewNop(), eps.books, eps.reviews),
		Lists:   NewReadingListStore(zap.NewNop(), eps.lists),
		Users:   eps.users,
	}
}

func newAuthenticatedTestVisitor(t *testing.T, eps ...*testEndpoints) *Visitor {
	t.Helper()
	var e *testEndpoints
	if len(eps) > 0 {
		e = eps[0]
	}
	v := newTestVisitor(testVisitorID, testLoginEndpoints(), e)
	_, err := v.Session.Login(context.Background(), Credentials{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	return v
}

func withVisitor(r *http.Request, v *Visitor) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), VisitorContextKey, v))
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func flashesOf(v *Visitor) []Flash {
	return v.PopFlashes()
}

// TestAddReviewHandler ensures a valid review is created and announced.
func TestAddReviewHandler(t *testing.T) {
	var received ReviewInput
	reviews := &MockReviewEndpoints{
		CreateReviewFunc: func(ctx context.Context, bookID string, input ReviewInput) (*Review, error) {
			received = input
			return &Review{ID: "r1", BookID: bookID, Rating: input.Rating, Comment: input.Comment, User: UserRef{ID: "u1"}}, nil
		},
	}
	web := newTestWebHandler(t)

	t.Run("should pass: rating and comment", func(t *testing.T) {
		v := newAuthenticatedTestVisitor(t, &testEndpoints{reviews: reviews})
		req := withVisitor(postForm("/books/b1/reviews", url.Values{"rating": {"5"}, "comment": {"Great"}}), v)
		w := httptest.NewRecorder()
		web.AddReview(w, req, httprouter.Params{{Key: "id", Value: "b1"}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/books/b1", w.Header().Get("Location"))
		assert.Equal(t, ReviewInput{Rating: 5, Comment: "Great"}, received)
		assert.Contains(t, flashesOf(v), Flash{Kind: FlashSuccess, Message: "Review submitted!"})
	})

	t.Run("should fail: missing rating", func(t *testing.T) {
		received = ReviewInput{}
		v := newAuthenticatedTestVisitor(t, &testEndpoints{reviews: reviews})
		req := withVisitor(postForm("/books/b1/reviews", url.Values{"comment": {"Great"}}), v)
		w := httptest.NewRecorder()
		web.AddReview(w, req, httprouter.Params{{Key: "id", Value: "b1"}})

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, ReviewInput{}, received)
		flashes := flashesOf(v)
		require.Len(t, flashes, 1)
		assert.Equal(t, FlashError, flashes[0].Kind)
	})

	t.Run("should fail: api failure", func(t *testing.T) {
		failing := &MockReviewEndpoints{
			CreateReviewFunc: func(ctx context.Context, bookID string, input ReviewInput) (*Review, error) {
				return nil, &HTTPError{Status: http.StatusInternalServerError}
			},
		}
		v := newAuthenticatedTestVisitor(t, &testEndpoints{reviews: failing})
		req := withVisitor(postForm("/books/b1/reviews", url.Values{"rating": {"4"}}), v)
		w := httptest.NewRecorder()
		web.AddReview(w, req, httprouter.Params{{Key: "id", Value: "b1"}})

		assert.Contains(t, flashesOf(v), Flash{Kind: FlashError, Message: "Failed to submit review"})
		assert.Equal(t, "Failed to add review", v.Books.Snapshot().Error)
	})
}

// TestLoginHandler ensures credentials are checked and the original page is restored.
func TestLoginHandler(t *testing.T) {
	web := newTestWebHandler(t)

	t.Run("should pass: valid credentials", func(t *testing.T) {
		v := newTestVisitor(testVisitorID, testLoginEndpoints(), nil)
		form := url.Values{"email": {"ada@example.com"}, "password": {"secret1"}, "from": {"/reading-lists"}}
		w := httptest.NewRecorder()
		web.Login(w, withVisitor(postForm("/login", form), v), nil)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/reading-lists", w.Header().Get("Location"))
		assert.True(t, v.Session.Snapshot().Authenticated())
		assert.Contains(t, flashesOf(v), Flash{Kind: FlashSuccess, Message: "Logged in successfully"})
	})

	t.Run("should pass: foreign redirect ignored", func(t *testing.T) {
		v := newTestVisitor(testVisitorID, testLoginEndpoints(), nil)
		form := url.Values{"email": {"ada@example.com"}, "password": {"secret1"}, "from": {"https://evil.example.com"}}
		w := httptest.NewRecorder()
		web.Login(w, withVisitor(postForm("/login", form), v), nil)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("should fail: invalid credentials", func(t *testing.T) {
		v := newTestVisitor(testVisitorID, testLoginEndpoints(), nil)
		form := url.Values{"email": {"ada@example.com"}, "password": {"wrong"}}
		w := httptest.NewRecorder()
		web.Login(w, withVisitor(postForm("/login", form), v), nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid credentials")
		assert.Contains(t, w.Body.String(), `class="toast error"`)
		assert.False(t, v.Session.Snapshot().Authenticated())
	})

	t.Run("should fail: invalid email", func(t *testing.T) {
		v := newTestVisitor(testVisitorID, testLoginEndpoints(), nil)
		form := url.Values{"email": {"not-an-email"}, "password": {"secret1"}}
		w := httptest.NewRecorder()
		web.Login(w, withVisitor(postForm("/login", form), v), nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "email must be a valid email address")
	})
}

// TestLogoutHandler ensures logout goes home as anonymous.
func TestLogoutHandler(t *testing.T) {
	web := newTestWebHandler(t)
	v := newAuthenticatedTestVisitor(t)
	w := httptest.NewRecorder()
	web.Logout(w, withVisitor(httptest.NewRequest(http.MethodPost, "/logout", nil), v), nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, SessionAnonymous, v.Session.State())
}

// TestBookDetailHandler ensures book pages show reviews and unknown books are 404.
func TestBookDetailHandler(t *testing.T) {
	web := newTestWebHandler(t)
	reviews := &MockReviewEndpoints{
		GetBookReviewsFunc: func(ctx context.Context, bookID string) ([]Review, error) {
			return []Review{{ID: "r1", Rating: 5, Comment: "Loved it", User: UserRef{ID: "u9", Name: "Grace"}}}, nil
		},
	}
	lists := &MockReadingListEndpoints{
		GetUserReadingListsFunc: func(ctx context.Context, userID string) ([]ReadingList, error) {
			return []ReadingList{{ID: "l1", Title: "Sci-Fi Favorites"}}, nil
		},
	}

	t.Run("existing book", func(t *testing.T) {
		v := newTestVisitor(testVisitorID, &MockAuthEndpoints{}, &testEndpoints{books: newTestBookEndpoints(), reviews: reviews})
		w := httptest.NewRecorder()
		web.BookDetail(w, withVisitor(httptest.NewRequest(http.MethodGet, "/books/b1", nil), v), httprouter.Params{{Key: "id", Value: "b1"}})
		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Dune")
		assert.Contains(t, body, "Loved it")
		assert.Contains(t, body, "Grace")
		assert.NotContains(t, body, "add-to-list-modal")
	})

	t.Run("modal lists the user reading lists", func(t *testing.T) {
		v := newAuthenticatedTestVisitor(t, &testEndpoints{books: newTestBookEndpoints(), reviews: reviews, lists: lists})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/books/b1?modal=add-to-list", nil)
		web.BookDetail(w, withVisitor(req, v), httprouter.Params{{Key: "id", Value: "b1"}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Sci-Fi Favorites")
	})

	t.Run("unknown book", func(t *testing.T) {
		v := newTestVisitor(testVisitorID, &MockAuthEndpoints{}, &testEndpoints{books: newTestBookEndpoints(), reviews: reviews})
		w := httptest.NewRecorder()
		web.BookDetail(w, withVisitor(httptest.NewRequest(http.MethodGet, "/books/zz", nil), v), httprouter.Params{{Key: "id", Value: "zz"}})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "Book not found")
	})
}

// TestReadingListHandlers ensures lists are created, shown and edited by their owner.
func TestReadingListHandlers(t *testing.T) {
	web := newTestWebHandler(t)
	lists := newTestReadingListEndpoints()
	lists.CreateReadingListFunc = func(ctx context.Context, input ReadingListInput) (*ReadingList, error) {
		return &ReadingList{ID: "l3", User: UserRef{ID: "u1"}, Title: input.Title}, nil
	}

	t.Run("create list", func(t *testing.T) {
		v := newAuthenticatedTestVisitor(t, &testEndpoints{lists: lists})
		w := httptest.NewRecorder()
		web.CreateReadingList(w, withVisitor(postForm("/reading-lists", url.Values{"title": {"To read"}}), v), nil)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/reading-lists/l3", w.Header().Get("Location"))
		assert.Contains(t, flashesOf(v), Flash{Kind: FlashSuccess, Message: "Reading list created successfully!"})
	})

	t.Run("create list without title", func(t *testing.T) {
		v := newAuthenticatedTestVisitor(t, &testEndpoints{lists: lists})
		w := httptest.NewRecorder()
		web.CreateReadingList(w, withVisitor(postForm("/reading-lists", url.Values{"title": {"  "}}), v), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "title is required")
	})

	t.Run("owner sees remove actions", func(t *testing.T) {
		v := newAuthenticatedTestVisitor(t, &testEndpoints{lists: lists})
		w := httptest.NewRecorder()
		web.ReadingListDetail(w, withVisitor(httptest.NewRequest(http.MethodGet, "/reading-lists/l1", nil), v), httprouter.Params{{Key: "id", Value: "l1"}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/reading-lists/l1/books/b2/remove")
	})

	t.Run("unknown list", func(t *testing.T) {
		v := newAuthenticatedTestVisitor(t, &testEndpoints{lists: lists})
		w := httptest.NewRecorder()
		web.ReadingListDetail(w, withVisitor(httptest.NewRequest(http.MethodGet, "/reading-lists/l9", nil), v), httprouter.Params{{Key: "id", Value: "l9"}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("confirm then remove", func(t *testing.T) {
		v := newAuthenticatedTestVisitor(t, &testEndpoints{lists: lists})
		ps := httprouter.Params{{Key: "id", Value: "l1"}, {Key: "bookId", Value: "b2"}}

		w := httptest.NewRecorder()
		web.ConfirmRemoveBook(w, withVisitor(httptest.NewRequest(http.MethodGet, "/reading-lists/l1/books/b2/remove", nil), v), ps)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Are you sure you want to remove this book from the list?")

		w = httptest.NewRecorder()
		web.RemoveBook(w, withVisitor(httptest.NewRequest(http.MethodPost, "/reading-lists/l1/books/b2/remove", nil), v), ps)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/reading-lists/l1", w.Header().Get("Location"))
	})
}

// TestUserProfileHandler ensures follow state is derived from the followers.
func TestUserProfileHandler(t *testing.T) {
	web := newTestWebHandler(t)
	users := &MockUserEndpoints{
		GetUserFunc: func(ctx context.Context, userID string) (*Profile, error) {
			if userID != "u9" {
				return nil, &HTTPError{Status: http.StatusNotFound}
			}
			return &Profile{ID: "u9", Name: "Grace", Username: "grace"}, nil
		},
		GetFollowersFunc: func(ctx context.Context, userID string) ([]UserRef, error) {
			return []UserRef{{ID: "u1"}}, nil
		},
		GetFollowingFunc: func(ctx context.Context, userID string) ([]UserRef, error) { return []UserRef{}, nil },
		GetActivityFunc: func(ctx context.Context, userID string) ([]Activity, error) {
			return []Activity{{ID: "a1", Description: "Grace reviewed Dune", Date: NewMockClocker().Now()}}, nil
		},
	}
	lists := newTestReadingListEndpoints()

	t.Run("followed user", func(t *testing.T) {
		v := newAuthenticatedTestVisitor(t, &testEndpoints{users: users, lists: lists})
		w := httptest.NewRecorder()
		web.UserProfile(w, withVisitor(httptest.NewRequest(http.MethodGet, "/users/u9", nil), v), httprouter.Params{{Key: "id", Value: "u9"}})
		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Grace reviewed Dune")
		assert.Contains(t, body, "/users/u9/unfollow")
	})

	t.Run("unknown user", func(t *testing.T) {
		v := newAuthenticatedTestVisitor(t, &testEndpoints{users: users, lists: lists})
		w := httptest.NewRecorder()
		web.UserProfile(w, withVisitor(httptest.NewRequest(http.MethodGet, "/users/u0", nil), v), httprouter.Params{{Key: "id", Value: "u0"}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
