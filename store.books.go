package main

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// BookSnapshot is a read only copy of the book store state.
type BookSnapshot struct {
	Books   []Book
	Book    *Book
	Loading bool
	Error   string
}

// BookStore holds the last search results and the last fetched book.
// Review calls go through it but never change what it holds.
type BookStore struct {
	logger  *zap.Logger
	books   BookEndpoints
	reviews ReviewEndpoints

	mu       sync.RWMutex
	results  []Book
	book     *Book
	inflight int
	err      string
}

// NewBookStore provides an empty book store.
func NewBookStore(logger *zap.Logger, books BookEndpoints, reviews ReviewEndpoints) *BookStore {
	return &BookStore{
		logger:  logger,
		books:   books,
		reviews: reviews,
		results: []Book{},
	}
}

// Snapshot returns a copy of the current state.
func (bs *BookStore) Snapshot() BookSnapshot {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	snap := BookSnapshot{
		Books:   append([]Book(nil), bs.results...),
		Loading: bs.inflight > 0,
		Error:   bs.err,
	}
	if bs.book != nil {
		b := *bs.book
		snap.Book = &b
	}
	return snap
}

func (bs *BookStore) begin(loading bool) {
	bs.mu.Lock()
	if loading {
		bs.inflight++
	}
	bs.err = ""
	bs.mu.Unlock()
}

func (bs *BookStore) done() {
	bs.mu.Lock()
	bs.inflight--
	bs.mu.Unlock()
}

func (bs *BookStore) fail(ctx context.Context, op, fallback string, err error) error {
	msg := ErrorMessage(err, fallback)
	bs.mu.Lock()
	bs.err = msg
	bs.mu.Unlock()
	bs.logger.Error("book store operation failed",
		zap.String("request.id", GetValueFromContext(ctx, RequestIDContextKey)),
		zap.String("store.op", op),
		zap.Error(err),
	)
	return &OperationError{Op: op, Message: msg, Err: err}
}

// SearchBooks replaces the held results with the books matching query.
func (bs *BookStore) SearchBooks(ctx context.Context, query string) ([]Book, error) {
	bs.begin(true)
	defer bs.done()

	books, err := bs.books.Search(ctx, query)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, bs.fail(ctx, "search books", "Failed to search books", err)
	}

	bs.mu.Lock()
	bs.results = books
	bs.mu.Unlock()
	return append([]Book(nil), books...), nil
}

// GetBook replaces the held book. A book unknown to the API is held as nil
// and returned as nil without error.
func (bs *BookStore) GetBook(ctx context.Context, id string) (*Book, error) {
	bs.begin(true)
	defer bs.done()

	book, err := bs.books.GetByID(ctx, id)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil && !IsNotFound(err) {
		return nil, bs.fail(ctx, "get book", "Failed to fetch book", err)
	}

	bs.mu.Lock()
	bs.book = book
	bs.mu.Unlock()
	if book == nil {
		return nil, nil
	}
	out := *book
	return &out, nil
}

// GetBookReviews returns the reviews of a book without holding them.
func (bs *BookStore) GetBookReviews(ctx context.Context, bookID string) ([]Review, error) {
	bs.begin(false)
	reviews, err := bs.reviews.GetBookReviews(ctx, bookID)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, bs.fail(ctx, "get reviews", "Failed to get reviews", err)
	}
	return reviews, nil
}

// AddReview creates a review and returns it. Callers merge it into what they display.
func (bs *BookStore) AddReview(ctx context.Context, bookID string, input ReviewInput) (*Review, error) {
	bs.begin(false)
	review, err := bs.reviews.CreateReview(ctx, bookID, input)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, bs.fail(ctx, "add review", "Failed to add review", err)
	}
	return review, nil
}

// UpdateReview changes the rating and comment of a review.
func (bs *BookStore) UpdateReview(ctx context.Context, reviewID string, input ReviewInput) (*Review, error) {
	bs.begin(false)
	review, err := bs.reviews.UpdateReview(ctx, reviewID, input)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, bs.fail(ctx, "update review", "Failed to update review", err)
	}
	return review, nil
}

// DeleteReview removes a review.
func (bs *BookStore) DeleteReview(ctx context.Context, reviewID string) error {
	bs.begin(false)
	err := bs.reviews.DeleteReview(ctx, reviewID)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return bs.fail(ctx, "delete review", "Failed to delete review", err)
	}
	return nil
}
