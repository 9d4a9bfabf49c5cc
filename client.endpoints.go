package main

import (
	"context"
	"net/url"
)

var (
	_ AuthEndpoints        = (*AuthAPI)(nil)
	_ BookEndpoints        = (*BookAPI)(nil)
	_ ReviewEndpoints      = (*ReviewAPI)(nil)
	_ ReadingListEndpoints = (*ReadingListAPI)(nil)
	_ UserEndpoints        = (*UserAPI)(nil)
)

type AuthEndpoints interface {
	Register(ctx context.Context, data RegisterData) (*AuthResponse, error)
	Login(ctx context.Context, creds Credentials) (*AuthResponse, error)
	LoginWithProvider(ctx context.Context, creds ProviderCredentials) (*AuthResponse, error)
	GetProfile(ctx context.Context) (*Profile, error)
}

type BookEndpoints interface {
	Search(ctx context.Context, query string) ([]Book, error)
	GetByID(ctx context.Context, id string) (*Book, error)
}

type ReviewEndpoints interface {
	GetBookReviews(ctx context.Context, bookID string) ([]Review, error)
	CreateReview(ctx context.Context, bookID string, input ReviewInput) (*Review, error)
	UpdateReview(ctx context.Context, reviewID string, input ReviewInput) (*Review, error)
	DeleteReview(ctx context.Context, reviewID string) error
}

type ReadingListEndpoints interface {
	GetUserReadingLists(ctx context.Context, userID string) ([]ReadingList, error)
	GetReadingList(ctx context.Context, listID string) (*ReadingList, error)
	CreateReadingList(ctx context.Context, input ReadingListInput) (*ReadingList, error)
	AddBook(ctx context.Context, listID string, input AddBookInput) (*ReadingList, error)
	RemoveBook(ctx context.Context, listID, bookID string) error
}

type UserEndpoints interface {
	GetUser(ctx context.Context, userID string) (*Profile, error)
	GetFollowers(ctx context.Context, userID string) ([]UserRef, error)
	GetFollowing(ctx context.Context, userID string) ([]UserRef, error)
	GetActivity(ctx context.Context, userID string) ([]Activity, error)
	Follow(ctx context.Context, userID string) error
	Unfollow(ctx context.Context, userID string) error
}

func escape(segment string) string {
	return url.PathEscape(segment)
}

// AuthAPI groups the /auth endpoints.
type AuthAPI struct{ c *APIClient }

func NewAuthAPI(c *APIClient) *AuthAPI { return &AuthAPI{c} }

func (a *AuthAPI) Register(ctx context.Context, data RegisterData) (*AuthResponse, error) {
	var resp AuthResponse
	if err := a.c.Post(ctx, "/auth/register", data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *AuthAPI) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var resp AuthResponse
	if err := a.c.Post(ctx, "/auth/login", creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoginWithProvider exchanges a third party ID token against an API token.
func (a *AuthAPI) LoginWithProvider(ctx context.Context, creds ProviderCredentials) (*AuthResponse, error) {
	var resp AuthResponse
	if err := a.c.Post(ctx, "/auth/provider/"+escape(creds.Provider), creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *AuthAPI) GetProfile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := a.c.Get(ctx, "/auth/me", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// BookAPI groups the /books endpoints.
type BookAPI struct{ c *APIClient }

func NewBookAPI(c *APIClient) *BookAPI { return &BookAPI{c} }

func (b *BookAPI) Search(ctx context.Context, query string) ([]Book, error) {
	var resp struct {
		Books []Book `json:"books" validate:"dive"`
	}
	if err := b.c.Get(ctx, "/books/search?query="+url.QueryEscape(query), &resp); err != nil {
		return nil, err
	}
	if resp.Books == nil {
		resp.Books = []Book{}
	}
	return resp.Books, nil
}

func (b *BookAPI) GetByID(ctx context.Context, id string) (*Book, error) {
	var book Book
	if err := b.c.Get(ctx, "/books/"+escape(id), &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// ReviewAPI groups the /reviews endpoints.
type ReviewAPI struct{ c *APIClient }

func NewReviewAPI(c *APIClient) *ReviewAPI { return &ReviewAPI{c} }

func (r *ReviewAPI) GetBookReviews(ctx context.Context, bookID string) ([]Review, error) {
	reviews := []Review{}
	if err := r.c.Get(ctx, "/reviews/book/"+escape(bookID), &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *ReviewAPI) CreateReview(ctx context.Context, bookID string, input ReviewInput) (*Review, error) {
	var review Review
	if err := r.c.Post(ctx, "/reviews/book/"+escape(bookID), input, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewAPI) UpdateReview(ctx context.Context, reviewID string, input ReviewInput) (*Review, error) {
	var review Review
	if err := r.c.Put(ctx, "/reviews/"+escape(reviewID), input, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewAPI) DeleteReview(ctx context.Context, reviewID string) error {
	return r.c.Delete(ctx, "/reviews/"+escape(reviewID), nil)
}

// ReadingListAPI groups the /reading-lists endpoints.
type ReadingListAPI struct{ c *APIClient }

func NewReadingListAPI(c *APIClient) *ReadingListAPI { return &ReadingListAPI{c} }

func (rl *ReadingListAPI) GetUserReadingLists(ctx context.Context, userID string) ([]ReadingList, error) {
	lists := []ReadingList{}
	if err := rl.c.Get(ctx, "/users/"+escape(userID)+"/reading-lists", &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func (rl *ReadingListAPI) GetReadingList(ctx context.Context, listID string) (*ReadingList, error) {
	var list ReadingList
	if err := rl.c.Get(ctx, "/reading-lists/"+escape(listID), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (rl *ReadingListAPI) CreateReadingList(ctx context.Context, input ReadingListInput) (*ReadingList, error) {
	var list ReadingList
	if err := rl.c.Post(ctx, "/reading-lists", input, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (rl *ReadingListAPI) AddBook(ctx context.Context, listID string, input AddBookInput) (*ReadingList, error) {
	var list ReadingList
	if err := rl.c.Post(ctx, "/reading-lists/"+escape(listID)+"/books", input, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (rl *ReadingListAPI) RemoveBook(ctx context.Context, listID, bookID string) error {
	return rl.c.Delete(ctx, "/reading-lists/"+escape(listID)+"/books/"+escape(bookID), nil)
}

// UserAPI groups the /users endpoints.
type UserAPI struct{ c *APIClient }

func NewUserAPI(c *APIClient) *UserAPI { return &UserAPI{c} }

func (u *UserAPI) GetUser(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	if err := u.c.Get(ctx, "/users/"+escape(userID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (u *UserAPI) GetFollowers(ctx context.Context, userID string) ([]UserRef, error) {
	users := []UserRef{}
	if err := u.c.Get(ctx, "/users/"+escape(userID)+"/followers", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (u *UserAPI) GetFollowing(ctx context.Context, userID string) ([]UserRef, error) {
	users := []UserRef{}
	if err := u.c.Get(ctx, "/users/"+escape(userID)+"/following", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (u *UserAPI) GetActivity(ctx context.Context, userID string) ([]Activity, error) {
	items := []Activity{}
	if err := u.c.Get(ctx, "/users/"+escape(userID)+"/activity", &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (u *UserAPI) Follow(ctx context.Context, userID string) error {
	return u.c.Post(ctx, "/users/"+escape(userID)+"/follow", nil, nil)
}

func (u *UserAPI) Unfollow(ctx context.Context, userID string) error {
	return u.c.Delete(ctx, "/users/"+escape(userID)+"/follow", nil)
}
