package main

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"
)

// SearchView feeds the search page.
type SearchView struct {
	Query    string
	Books    []Book
	Error    string
	Searched bool
}

// BookDetailView feeds the book page and its add to list modal.
type BookDetailView struct {
	Book         *Book
	Reviews      []Review
	ReviewsError string
	ShowModal    bool
	Lists        []ReadingList
	ListsError   string
}

// Home renders the landing page.
func (web *WebHandler) Home(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	v.Session.Await(r.Context(), web.config.Session.ResolveWait)
	web.render(w, r, http.StatusOK, "home", "Home", nil)
}

// Search renders the catalog results for the query parameter.
func (web *WebHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	view := SearchView{Query: strings.TrimSpace(r.URL.Query().Get("query"))}
	if view.Query == "" {
		web.render(w, r, http.StatusOK, "search", "Search Books", view)
		return
	}

	books, err := v.Books.SearchBooks(r.Context(), view.Query)
	if err != nil && r.Context().Err() == nil {
		view.Error = web.storeFailure(r, v, err, "Failed to search books")
		v.Notify(FlashError, "Search failed")
	}
	view.Searched = true
	view.Books = books
	web.render(w, r, http.StatusOK, "search", "Search Books", view)
}

// BookDetail renders a book with its reviews. The add to list modal is
// opened by the modal query parameter and loads the lists of the user.
func (web *WebHandler) BookDetail(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	id := ps.ByName("id")
	v.Session.Await(r.Context(), web.config.Session.ResolveWait)

	book, err := v.Books.GetBook(r.Context(), id)
	if err != nil {
		msg := web.storeFailure(r, v, err, "Failed to fetch book")
		web.renderError(w, r, http.StatusBadGateway, "Book unavailable", msg)
		return
	}
	if book == nil {
		web.renderError(w, r, http.StatusNotFound, "Book not found", "The book you are looking for does not exist.")
		return
	}

	view := BookDetailView{Book: book}
	user := currentUser(v)
	view.ShowModal = user != nil && r.URL.Query().Get("modal") == "add-to-list"

	// reviews and lists load concurrently, each with its own error.
	var g errgroup.Group
	g.Go(func() error {
		reviews, err := v.Books.GetBookReviews(r.Context(), book.RouteID())
		if err != nil {
			view.ReviewsError = ErrorMessage(err, "Failed to get reviews")
			return nil
		}
		view.Reviews = reviews
		return nil
	})
	if view.ShowModal {
		g.Go(func() error {
			lists, err := v.Lists.GetUserReadingLists(r.Context(), user.ID)
			if err != nil {
				view.ListsError = ErrorMessage(err, "Failed to fetch reading lists")
				return nil
			}
			view.Lists = lists
			return nil
		})
	}
	_ = g.Wait()

	web.render(w, r, http.StatusOK, "book_detail", book.Title, view)
}

// AddReview posts a rating and an optional comment on a book.
func (web *WebHandler) AddReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	bookID := ps.ByName("id")
	back := "/books/" + url.PathEscape(bookID)

	rating, _ := strconv.Atoi(r.PostFormValue("rating"))
	input := ReviewInput{Rating: rating, Comment: strings.TrimSpace(r.PostFormValue("comment"))}
	if err := ValidateInput(input); err != nil {
		v.Notify(FlashError, err.Error())
		web.redirect(w, r, back)
		return
	}

	if _, err := v.Books.AddReview(r.Context(), bookID, input); err != nil {
		web.storeFailure(r, v, err, "Failed to add review")
		v.Notify(FlashError, "Failed to submit review")
		web.redirect(w, r, back)
		return
	}
	v.Notify(FlashSuccess, "Review submitted!")
	web.redirect(w, r, back)
}

// DeleteReview removes a review of the user then goes back to the book.
func (web *WebHandler) DeleteReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	back := "/books/" + url.PathEscape(ps.ByName("id"))
	if err := v.Books.DeleteReview(r.Context(), ps.ByName("reviewId")); err != nil {
		v.Notify(FlashError, web.storeFailure(r, v, err, "Failed to delete review"))
		web.redirect(w, r, back)
		return
	}
	v.Notify(FlashSuccess, "Review deleted")
	web.redirect(w, r, back)
}

// AddToReadingList places the book into the selected list of the user.
func (web *WebHandler) AddToReadingList(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	bookID := ps.ByName("id")
	listID := strings.TrimSpace(r.PostFormValue("listId"))
	modal := "/books/" + url.PathEscape(bookID) + "?modal=add-to-list"

	input := AddBookInput{BookID: bookID, Notes: strings.TrimSpace(r.PostFormValue("notes"))}
	if listID == "" {
		v.Notify(FlashError, "Please select a reading list")
		web.redirect(w, r, modal)
		return
	}
	if err := ValidateInput(input); err != nil {
		v.Notify(FlashError, err.Error())
		web.redirect(w, r, modal)
		return
	}

	if _, err := v.Lists.AddBookToReadingList(r.Context(), listID, input.BookID, input.Notes); err != nil {
		msg := web.storeFailure(r, v, err, "Failed to add book to list")
		if errors.Is(err, ErrBookAlreadyInList) {
			v.Notify(FlashError, msg)
		} else {
			v.Notify(FlashError, "Failed to add book to list")
		}
		web.redirect(w, r, modal)
		return
	}
	v.Notify(FlashSuccess, "Book added to reading list!")
	web.redirect(w, r, "/reading-lists/"+url.PathEscape(listID))
}
