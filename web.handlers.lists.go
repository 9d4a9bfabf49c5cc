package main

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
)

// ReadingListsView feeds the reading lists index and its creation form.
type ReadingListsView struct {
	Lists     []ReadingList
	Error     string
	FormError string
	Input     ReadingListInput
	Errors    ValidationErrors
}

// ReadingListDetailView feeds a single reading list page.
type ReadingListDetailView struct {
	List    *ReadingList
	IsOwner bool
}

func (web *WebHandler) renderReadingLists(w http.ResponseWriter, r *http.Request, status int, v *Visitor, view ReadingListsView) {
	user := currentUser(v)
	lists, err := v.Lists.GetUserReadingLists(r.Context(), user.ID)
	if err != nil {
		view.Error = web.storeFailure(r, v, err, "Failed to fetch reading lists")
	}
	view.Lists = lists
	web.render(w, r, status, "reading_lists", "My Reading Lists", view)
}

// ReadingLists renders the lists of the user.
func (web *WebHandler) ReadingLists(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	web.renderReadingLists(w, r, http.StatusOK, GetVisitorFromContext(r.Context()), ReadingListsView{})
}

// CreateReadingList creates a list from the form then opens it.
func (web *WebHandler) CreateReadingList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	input := ReadingListInput{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		IsPublic:    r.PostFormValue("isPublic") == "true",
	}

	if err := ValidateInput(input); err != nil {
		var verrs ValidationErrors
		errors.As(err, &verrs)
		web.renderReadingLists(w, r, http.StatusBadRequest, v, ReadingListsView{Input: input, Errors: verrs})
		return
	}

	list, err := v.Lists.CreateReadingList(r.Context(), input)
	if err != nil {
		msg := web.storeFailure(r, v, err, "Failed to create reading list")
		v.Notify(FlashError, "Failed to create reading list")
		web.renderReadingLists(w, r, http.StatusBadGateway, v, ReadingListsView{Input: input, FormError: msg})
		return
	}
	v.Notify(FlashSuccess, "Reading list created successfully!")
	web.redirect(w, r, "/reading-lists/"+url.PathEscape(list.ID))
}

// ReadingListDetail renders the entries of a list. Only its owner gets the remove actions.
func (web *WebHandler) ReadingListDetail(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	list, err := v.Lists.GetReadingList(r.Context(), ps.ByName("id"))
	if err != nil {
		msg := web.storeFailure(r, v, err, "Failed to fetch reading list")
		web.renderError(w, r, http.StatusBadGateway, "Reading list unavailable", msg)
		return
	}
	if list == nil {
		web.renderError(w, r, http.StatusNotFound, "Reading list not found", "The reading list you are looking for does not exist.")
		return
	}
	user := currentUser(v)
	view := ReadingListDetailView{List: list, IsOwner: user != nil && list.User.ID == user.ID}
	web.render(w, r, http.StatusOK, "reading_list_detail", list.Title, view)
}

// ConfirmRemoveBook asks before a book leaves a list.
func (web *WebHandler) ConfirmRemoveBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	listPath := "/reading-lists/" + url.PathEscape(ps.ByName("id"))
	web.render(w, r, http.StatusOK, "confirm", "Remove Book", ConfirmView{
		Title:        "Remove Book",
		Message:      "Are you sure you want to remove this book from the list?",
		Action:       listPath + "/books/" + url.PathEscape(ps.ByName("bookId")) + "/remove",
		CancelURL:    listPath,
		ConfirmLabel: "Remove",
		CancelLabel:  "Cancel",
	})
}

// RemoveBook removes the confirmed book from the list.
func (web *WebHandler) RemoveBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v := GetVisitorFromContext(r.Context())
	listID := ps.ByName("id")
	back := "/reading-lists/" + url.PathEscape(listID)
	if err := v.Lists.RemoveBookFromReadingList(r.Context(), listID, ps.ByName("bookId")); err != nil {
		web.storeFailure(r, v, err, "Failed to remove book from list")
		v.Notify(FlashError, "Failed to remove book from list")
		web.redirect(w, r, back)
		return
	}
	v.Notify(FlashSuccess, "Book removed from reading list")
	web.redirect(w, r, back)
}
