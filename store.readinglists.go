package main

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var ErrBookAlreadyInList = errors.New("book already in the reading list")

// ReadingListSnapshot is a read only copy of the reading list store state.
type ReadingListSnapshot struct {
	Lists   []ReadingList
	List    *ReadingList
	Loading bool
	Error   string
}

// ReadingListStore holds the reading lists of a user and the last opened list.
// Every change to a list goes through it so the held copies stay in sync.
type ReadingListStore struct {
	logger *zap.Logger
	api    ReadingListEndpoints

	mu       sync.RWMutex
	lists    []ReadingList
	list     *ReadingList
	inflight int
	err      string
}

// NewReadingListStore provides an empty reading list store.
func NewReadingListStore(logger *zap.Logger, api ReadingListEndpoints) *ReadingListStore {
	return &ReadingListStore{
		logger: logger,
		api:    api,
		lists:  []ReadingList{},
	}
}

// Snapshot returns a copy of the current state.
func (rs *ReadingListStore) Snapshot() ReadingListSnapshot {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	snap := ReadingListSnapshot{
		Lists:   cloneLists(rs.lists),
		Loading: rs.inflight > 0,
		Error:   rs.err,
	}
	if rs.list != nil {
		l := cloneList(*rs.list)
		snap.List = &l
	}
	return snap
}

func cloneList(l ReadingList) ReadingList {
	l.Books = append([]ReadingListEntry(nil), l.Books...)
	l.Followers = append([]UserRef(nil), l.Followers...)
	return l
}

func cloneLists(lists []ReadingList) []ReadingList {
	out := make([]ReadingList, 0, len(lists))
	for _, l := range lists {
		out = append(out, cloneList(l))
	}
	return out
}

// withoutBook returns a copy of the list minus the first entry of bookID.
func withoutBook(l ReadingList, bookID string) ReadingList {
	out := cloneList(l)
	for i, e := range out.Books {
		if e.MatchesBook(bookID) {
			out.Books = append(out.Books[:i:i], out.Books[i+1:]...)
			return out
		}
	}
	return out
}

func (rs *ReadingListStore) begin(loading bool) {
	rs.mu.Lock()
	if loading {
		rs.inflight++
	}
	rs.err = ""
	rs.mu.Unlock()
}

func (rs *ReadingListStore) done() {
	rs.mu.Lock()
	rs.inflight--
	rs.mu.Unlock()
}

func (rs *ReadingListStore) fail(ctx context.Context, op, fallback string, err error) error {
	msg := ErrorMessage(err, fallback)
	rs.mu.Lock()
	rs.err = msg
	rs.mu.Unlock()
	rs.logger.Error("reading list store operation failed",
		zap.String("request.id", GetValueFromContext(ctx, RequestIDContextKey)),
		zap.String("store.op", op),
		zap.Error(err),
	)
	return &OperationError{Op: op, Message: msg, Err: err}
}

// GetUserReadingLists replaces the held collection with the lists of userID.
func (rs *ReadingListStore) GetUserReadingLists(ctx context.Context, userID string) ([]ReadingList, error) {
	rs.begin(true)
	defer rs.done()

	lists, err := rs.api.GetUserReadingLists(ctx, userID)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, rs.fail(ctx, "get reading lists", "Failed to fetch reading lists", err)
	}

	rs.mu.Lock()
	rs.lists = lists
	rs.mu.Unlock()
	return cloneLists(lists), nil
}

// GetReadingList replaces the held list. A list unknown to the API is held
// as nil and returned as nil without error.
func (rs *ReadingListStore) GetReadingList(ctx context.Context, listID string) (*ReadingList, error) {
	rs.begin(true)
	defer rs.done()

	list, err := rs.api.GetReadingList(ctx, listID)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil && !IsNotFound(err) {
		return nil, rs.fail(ctx, "get reading list", "Failed to fetch reading list", err)
	}

	rs.mu.Lock()
	rs.list = list
	rs.mu.Unlock()
	if list == nil {
		return nil, nil
	}
	out := cloneList(*list)
	return &out, nil
}

// CreateReadingList creates a list and appends it at the end of the held collection.
func (rs *ReadingListStore) CreateReadingList(ctx context.Context, input ReadingListInput) (*ReadingList, error) {
	rs.begin(false)
	list, err := rs.api.CreateReadingList(ctx, input)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, rs.fail(ctx, "create reading list", "Failed to create reading list", err)
	}

	rs.mu.Lock()
	rs.lists = append(rs.lists, cloneList(*list))
	rs.mu.Unlock()
	out := cloneList(*list)
	return &out, nil
}

// AddBookToReadingList places a book into a list then replaces the held
// copies of that list with the one returned by the API.
func (rs *ReadingListStore) AddBookToReadingList(ctx context.Context, listID, bookID, notes string) (*ReadingList, error) {
	rs.begin(false)

	rs.mu.RLock()
	duplicate := rs.list != nil && rs.list.ID == listID && rs.list.Contains(bookID)
	for i := range rs.lists {
		if rs.lists[i].ID == listID && rs.lists[i].Contains(bookID) {
			duplicate = true
		}
	}
	rs.mu.RUnlock()
	if duplicate {
		return nil, rs.fail(ctx, "add book to list", "Book is already in this list", ErrBookAlreadyInList)
	}

	list, err := rs.api.AddBook(ctx, listID, AddBookInput{BookID: bookID, Notes: notes})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, rs.fail(ctx, "add book to list", "Failed to add book to list", err)
	}

	rs.mu.Lock()
	if rs.list != nil && rs.list.ID == listID {
		l := cloneList(*list)
		rs.list = &l
	}
	for i := range rs.lists {
		if rs.lists[i].ID == listID {
			rs.lists[i] = cloneList(*list)
		}
	}
	rs.mu.Unlock()
	out := cloneList(*list)
	return &out, nil
}

// RemoveBookFromReadingList removes a book from a list then drops exactly one
// matching entry from the held copies of that list.
func (rs *ReadingListStore) RemoveBookFromReadingList(ctx context.Context, listID, bookID string) error {
	rs.begin(false)
	err := rs.api.RemoveBook(ctx, listID, bookID)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return rs.fail(ctx, "remove book from list", "Failed to remove book from list", err)
	}

	rs.mu.Lock()
	if rs.list != nil && rs.list.ID == listID {
		l := withoutBook(*rs.list, bookID)
		rs.list = &l
	}
	for i := range rs.lists {
		if rs.lists[i].ID == listID {
			rs.lists[i] = withoutBook(rs.lists[i], bookID)
		}
	}
	rs.mu.Unlock()
	return nil
}
