package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html
var templatesFS embed.FS

const DefaultCoverURL = "https://via.placeholder.com/128x192?text=No+Cover"

var pageNames = []string{
	"home", "login", "register", "search", "book_detail", "profile",
	"reading_lists", "reading_list_detail", "confirm", "loading", "error", "maintenance",
}

// PageData is the root value of every rendered page.
type PageData struct {
	Title     string
	RequestID string
	Refresh   int
	Session   SessionSnapshot
	Flashes   []Flash
	Content   interface{}
}

// ListEntryView feeds the book_list_item partial.
type ListEntryView struct {
	ListID    string
	Entry     ReadingListEntry
	Removable bool
}

// ConfirmView feeds the confirm_dialog partial.
type ConfirmView struct {
	Title        string
	Message      string
	Action       string
	CancelURL    string
	ConfirmLabel string
	CancelLabel  string
}

// ErrorView feeds the error page.
type ErrorView struct {
	Heading string
	Message string
}

// Views holds the parsed pages. Each page is the layout, the partials and its own content.
type Views struct {
	pages     map[string]*template.Template
	sanitizer *bluemonday.Policy
	clock     Clocker
}

// NewViews parses all embedded pages.
func NewViews(clock Clocker) (*Views, error) {
	v := &Views{
		pages:     make(map[string]*template.Template, len(pageNames)),
		sanitizer: bluemonday.UGCPolicy(),
		clock:     clock,
	}
	for _, name := range pageNames {
		t, err := template.New("layout").Funcs(v.funcs()).ParseFS(templatesFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s page: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

func (v *Views) funcs() template.FuncMap {
	return template.FuncMap{
		"authors":  JoinAuthors,
		"join":     strings.Join,
		"sanitize": v.Sanitize,
		"cover":    coverURL,
		"stars":    stars,
		"plural":   plural,
		"title":    capitalize,
		"date":     func(t time.Time) string { return t.Format("Jan 2, 2006") },
		"year":     func() int { return v.clock.Now().Year() },
		"entry": func(listID string, e ReadingListEntry, removable bool) ListEntryView {
			return ListEntryView{ListID: listID, Entry: e, Removable: removable}
		},
	}
}

// Sanitize keeps the safe formatting of catalog provided html.
func (v *Views) Sanitize(s string) template.HTML {
	return template.HTML(v.sanitizer.Sanitize(s)) //nolint:gosec
}

// Render executes the page into a buffer first so a template failure never
// produces a half written response.
func (v *Views) Render(w http.ResponseWriter, status int, page string, data *PageData) error {
	t, ok := v.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s page: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func coverURL(thumbnail string) string {
	if thumbnail == "" {
		return DefaultCoverURL
	}
	return thumbnail
}

// stars renders a 0 to 5 rating as filled and empty stars.
func stars(rating interface{}) string {
	var r float64
	switch n := rating.(type) {
	case int:
		r = float64(n)
	case float64:
		r = n
	}
	full := int(math.Round(math.Max(0, math.Min(5, r))))
	return strings.Repeat("★", full) + strings.Repeat("☆", 5-full)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
