package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Profile is the authenticated user as returned by the remote API.
type Profile struct {
	ID       string `json:"_id" validate:"required"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio,omitempty"`
}

// DisplayName returns the best human label of the profile.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Username
}

// AuthResponse is the login and register payload: a token next to the profile fields.
type AuthResponse struct {
	Token string `json:"token" validate:"required"`
	Profile
}

// UserRef points to a user. The API sends either a bare id or a populated object.
type UserRef struct {
	ID       string `json:"_id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
}

// UnmarshalJSON accepts both `"id"` and `{"_id": "id", ...}` shapes.
func (u *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*u = UserRef{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*u = UserRef{ID: id}
		return nil
	}
	type plain UserRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("user reference: %w", err)
	}
	*u = UserRef(p)
	return nil
}

// Label returns the name, the username or the id of the referenced user.
func (u UserRef) Label() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return u.Username
	default:
		return u.ID
	}
}

type ImageLinks struct {
	Thumbnail      string `json:"thumbnail,omitempty"`
	SmallThumbnail string `json:"smallThumbnail,omitempty"`
}

// Book is a catalog entry. It has a local id once stored by the
// API and always carries the external catalog id when known.
type Book struct {
	ID            string     `json:"_id,omitempty" validate:"required_without=GoogleBooksID"`
	GoogleBooksID string     `json:"googleBooksId,omitempty" validate:"required_without=ID"`
	Title         string     `json:"title" validate:"required"`
	Authors       []string   `json:"authors,omitempty"`
	Description   string     `json:"description,omitempty"`
	ImageLinks    ImageLinks `json:"imageLinks,omitempty"`
	Categories    []string   `json:"categories,omitempty"`
	Publisher     string     `json:"publisher,omitempty"`
	PublishedDate string     `json:"publishedDate,omitempty"`
	PageCount     int        `json:"pageCount,omitempty" validate:"gte=0"`
	Language      string     `json:"language,omitempty"`
	AverageRating float64    `json:"averageRating,omitempty" validate:"gte=0,lte=5"`
	ReviewCount   int        `json:"reviewCount,omitempty" validate:"gte=0"`
}

// CatalogKey identifies the book in collections: catalog id first.
func (b Book) CatalogKey() string {
	if b.GoogleBooksID != "" {
		return b.GoogleBooksID
	}
	return b.ID
}

// RouteID is the identifier used in book page links: local id first.
func (b Book) RouteID() string {
	if b.ID != "" {
		return b.ID
	}
	return b.GoogleBooksID
}

// AuthorsLabel joins the authors or returns "Unknown" when there are none.
func (b Book) AuthorsLabel() string {
	return JoinAuthors(b.Authors)
}

// JoinAuthors joins non blank author names with ", ".
func JoinAuthors(authors []string) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, a)
		}
	}
	if len(names) == 0 {
		return "Unknown"
	}
	return strings.Join(names, ", ")
}

// Review is a rated comment of a user on a book.
type Review struct {
	ID        string    `json:"_id" validate:"required"`
	BookID    string    `json:"book,omitempty"`
	User      UserRef   `json:"user"`
	Rating    int       `json:"rating" validate:"gte=1,lte=5"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// ReadingListEntry is a book placed into a reading list.
type ReadingListEntry struct {
	Book      Book      `json:"book"`
	DateAdded time.Time `json:"dateAdded,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// MatchesBook reports whether the entry holds the book known by its local or catalog id.
func (e ReadingListEntry) MatchesBook(bookID string) bool {
	return e.Book.ID == bookID || (e.Book.GoogleBooksID != "" && e.Book.GoogleBooksID == bookID)
}

// ReadingList is an ordered and owned collection of books.
type ReadingList struct {
	ID          string             `json:"_id" validate:"required"`
	User        UserRef            `json:"user"`
	Title       string             `json:"title" validate:"required"`
	Description string             `json:"description,omitempty"`
	IsPublic    bool               `json:"isPublic"`
	Books       []ReadingListEntry `json:"books" validate:"dive"`
	Followers   []UserRef          `json:"followers,omitempty"`
	CreatedAt   time.Time          `json:"createdAt,omitempty"`
}

// Contains reports whether the book is already an entry of the list.
func (rl *ReadingList) Contains(bookID string) bool {
	for _, e := range rl.Books {
		if e.MatchesBook(bookID) {
			return true
		}
	}
	return false
}

// Activity is one item of a user activity feed.
type Activity struct {
	ID          string    `json:"_id" validate:"required"`
	Description string    `json:"description"`
	Link        string    `json:"link,omitempty"`
	Date        time.Time `json:"date"`
}

// Credentials are the local login inputs.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterData are the account creation inputs.
type RegisterData struct {
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ProviderCredentials carry an ID token issued by a third party identity provider.
type ProviderCredentials struct {
	Provider string `json:"-" validate:"required"`
	IDToken  string `json:"idToken" validate:"required"`
}

// ReviewInput is the review submission payload.
type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=5000"`
}

// ReadingListInput is the reading list creation payload.
type ReadingListInput struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	IsPublic    bool   `json:"isPublic"`
}

// AddBookInput is the payload used to place a book into a list.
type AddBookInput struct {
	BookID string `json:"bookId" validate:"required"`
	Notes  string `json:"notes,omitempty" validate:"max=1000"`
}
