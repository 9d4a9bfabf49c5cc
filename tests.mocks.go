package main

import (
	"context"
	"sync"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

// MockTokenStore is an in memory TokenStore. Funcs override the map when set.
type MockTokenStore struct {
	mu     sync.Mutex
	tokens map[string]string

	GetFunc    func(ctx context.Context, visitorID string) (string, error)
	SetFunc    func(ctx context.Context, visitorID, token string) error
	DeleteFunc func(ctx context.Context, visitorID string) error
}

// NewMockTokenStore returns a store holding the given visitor tokens.
func NewMockTokenStore(tokens map[string]string) *MockTokenStore {
	if tokens == nil {
		tokens = make(map[string]string)
	}
	return &MockTokenStore{tokens: tokens}
}

// Get mocks the retrieval of a visitor token.
func (m *MockTokenStore) Get(ctx context.Context, visitorID string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, visitorID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[visitorID]
	if !ok {
		return "", ErrTokenNotFound
	}
	return token, nil
}

// Set mocks the saving of a visitor token.
func (m *MockTokenStore) Set(ctx context.Context, visitorID, token string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, visitorID, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[visitorID] = token
	return nil
}

// Delete mocks the removal of a visitor token.
func (m *MockTokenStore) Delete(ctx context.Context, visitorID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, visitorID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, visitorID)
	return nil
}

// Close does nothing.
func (m *MockTokenStore) Close() error { return nil }

// Token returns the stored token of visitorID and whether it exists.
func (m *MockTokenStore) Token(visitorID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[visitorID]
	return token, ok
}

type MockAuthEndpoints struct {
	RegisterFunc          func(ctx context.Context, data RegisterData) (*AuthResponse, error)
	LoginFunc             func(ctx context.Context, creds Credentials) (*AuthResponse, error)
	LoginWithProviderFunc func(ctx context.Context, creds ProviderCredentials) (*AuthResponse, error)
	GetProfileFunc        func(ctx context.Context) (*Profile, error)
}

func (m *MockAuthEndpoints) Register(ctx context.Context, data RegisterData) (*AuthResponse, error) {
	return m.RegisterFunc(ctx, data)
}

func (m *MockAuthEndpoints) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	return m.LoginFunc(ctx, creds)
}

func (m *MockAuthEndpoints) LoginWithProvider(ctx context.Context, creds ProviderCredentials) (*AuthResponse, error) {
	return m.LoginWithProviderFunc(ctx, creds)
}

func (m *MockAuthEndpoints) GetProfile(ctx context.Context) (*Profile, error) {
	return m.GetProfileFunc(ctx)
}

type MockBookEndpoints struct {
	SearchFunc  func(ctx context.Context, query string) ([]Book, error)
	GetByIDFunc func(ctx context.Context, id string) (*Book, error)
}

func (m *MockBookEndpoints) Search(ctx context.Context, query string) ([]Book, error) {
	return m.SearchFunc(ctx, query)
}

func (m *MockBookEndpoints) GetByID(ctx context.Context, id string) (*Book, error) {
	return m.GetByIDFunc(ctx, id)
}

type MockReviewEndpoints struct {
	GetBookReviewsFunc func(ctx context.Context, bookID string) ([]Review, error)
	CreateReviewFunc   func(ctx context.Context, bookID string, input ReviewInput) (*Review, error)
	UpdateReviewFunc   func(ctx context.Context, reviewID string, input ReviewInput) (*Review, error)
	DeleteReviewFunc   func(ctx context.Context, reviewID string) error
}

func (m *MockReviewEndpoints) GetBookReviews(ctx context.Context, bookID string) ([]Review, error) {
	return m.GetBookReviewsFunc(ctx, bookID)
}

func (m *MockReviewEndpoints) CreateReview(ctx context.Context, bookID string, input ReviewInput) (*Review, error) {
	return m.CreateReviewFunc(ctx, bookID, input)
}

func (m *MockReviewEndpoints) UpdateReview(ctx context.Context, reviewID string, input ReviewInput) (*Review, error) {
	return m.UpdateReviewFunc(ctx, reviewID, input)
}

func (m *MockReviewEndpoints) DeleteReview(ctx context.Context, reviewID string) error {
	return m.DeleteReviewFunc(ctx, reviewID)
}

type MockReadingListEndpoints struct {
	GetUserReadingListsFunc func(ctx context.Context, userID string) ([]ReadingList, error)
	GetReadingListFunc      func(ctx context.Context, listID string) (*ReadingList, error)
	CreateReadingListFunc   func(ctx context.Context, input ReadingListInput) (*ReadingList, error)
	AddBookFunc             func(ctx context.Context, listID string, input AddBookInput) (*ReadingList, error)
	RemoveBookFunc          func(ctx context.Context, listID, bookID string) error
}

func (m *MockReadingListEndpoints) GetUserReadingLists(ctx context.Context, userID string) ([]ReadingList, error) {
	return m.GetUserReadingListsFunc(ctx, userID)
}

func (m *MockReadingListEndpoints) GetReadingList(ctx context.Context, listID string) (*ReadingList, error) {
	return m.GetReadingListFunc(ctx, listID)
}

func (m *MockReadingListEndpoints) CreateReadingList(ctx context.Context, input ReadingListInput) (*ReadingList, error) {
	return m.CreateReadingListFunc(ctx, input)
}

func (m *MockReadingListEndpoints) AddBook(ctx context.Context, listID string, input AddBookInput) (*ReadingList, error) {
	return m.AddBookFunc(ctx, listID, input)
}

func (m *MockReadingListEndpoints) RemoveBook(ctx context.Context, listID, bookID string) error {
	return m.RemoveBookFunc(ctx, listID, bookID)
}

type MockUserEndpoints struct {
	GetUserFunc      func(ctx context.Context, userID string) (*Profile, error)
	GetFollowersFunc func(ctx context.Context, userID string) ([]UserRef, error)
	GetFollowingFunc func(ctx context.Context, userID string) ([]UserRef, error)
	GetActivityFunc  func(ctx context.Context, userID string) ([]Activity, error)
	FollowFunc       func(ctx context.Context, userID string) error
	UnfollowFunc     func(ctx context.Context, userID string) error
}

func (m *MockUserEndpoints) GetUser(ctx context.Context, userID string) (*Profile, error) {
	return m.GetUserFunc(ctx, userID)
}

func (m *MockUserEndpoints) GetFollowers(ctx context.Context, userID string) ([]UserRef, error) {
	return m.GetFollowersFunc(ctx, userID)
}

func (m *MockUserEndpoints) GetFollowing(ctx context.Context, userID string) ([]UserRef, error) {
	return m.GetFollowingFunc(ctx, userID)
}

func (m *MockUserEndpoints) GetActivity(ctx context.Context, userID string) ([]Activity, error) {
	return m.GetActivityFunc(ctx, userID)
}

func (m *MockUserEndpoints) Follow(ctx context.Context, userID string) error {
	return m.FollowFunc(ctx, userID)
}

func (m *MockUserEndpoints) Unfollow(ctx context.Context, userID string) error {
	return m.UnfollowFunc(ctx, userID)
}

// MockClocker implements a fake TickerClocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// NewTicker returns a real ticker of d.
func (mck *MockClocker) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}
