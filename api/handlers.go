package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"library-lending/library"
)

type handler struct {
	lm *library.LibraryManager
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type actor struct {
	Username string `json:"username"`
}

type addBookRequest struct {
	Name     string `json:"name"`
	Author   string `json:"author"`
	Pages    int    `json:"pages"`
	Genre    string `json:"genre"`
	Username string `json:"username"`
}

func bookID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	return id, err == nil && id > 0
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.lm.Database().Ping(r.Context()); err != nil {
		loggerFrom(r.Context()).WarnContext(r.Context(), "health_check_failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
		return
	}
	ok(w, map[string]string{"status": "ok"})
}

// ---- members ----

func (h *handler) signUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(in.Username) == "" {
		badRequest(w, "username is required")
		return
	}
	id, err := h.lm.SignUp(r.Context(), in.Username, in.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	created(w, map[string]any{"user_id": id, "username": in.Username})
}

func (h *handler) signIn(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.lm.SignIn(r.Context(), in.Username, in.Password); err != nil {
		fail(w, r, err)
		return
	}
	ok(w, map[string]string{"username": in.Username})
}

func (h *handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.lm.DeleteUser(r.Context(), chi.URLParam(r, "userName")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) myBooks(w http.ResponseWriter, r *http.Request) {
	shelf, err := h.lm.Reports.MyBooks(r.Context(), chi.URLParam(r, "userName"))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, shelf)
}

func (h *handler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.lm.Reports.Statistics(r.Context(), chi.URLParam(r, "userName"))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, stats)
}

// ---- catalog ----

func (h *handler) addBook(w http.ResponseWriter, r *http.Request) {
	var in addBookRequest
	if err := decodeBody(r, &in); err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := h.lm.AddBook(r.Context(), library.NewBook{
		Name: in.Name, Author: in.Author, Pages: in.Pages, Genre: in.Genre,
	}, in.Username)
	if err != nil {
		fail(w, r, err)
		return
	}
	if res.Outcome == library.Created {
		created(w, res)
		return
	}
	ok(w, res)
}

func (h *handler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.lm.GetAllBooks(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, nonNil(books))
}

func (h *handler) getBook(w http.ResponseWriter, r *http.Request) {
	id, valid := bookID(r)
	if !valid {
		badRequest(w, "book id must be a positive integer")
		return
	}
	b, err := h.lm.GetBook(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, b)
}

// searchBooks matches q against name and author; by=name or by=author
// narrows the match to one column.
func (h *handler) searchBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	db := h.lm.Database()

	var (
		books []*library.Book
		err   error
	)
	switch r.URL.Query().Get("by") {
	case "", "any":
		books, err = db.SearchBooks(r.Context(), q)
	case "name":
		books, err = db.SearchBooksByName(r.Context(), q)
	case "author":
		books, err = db.SearchBooksByAuthor(r.Context(), q)
	default:
		badRequest(w, "by must be name or author")
		return
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, nonNil(books))
}

func (h *handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, valid := bookID(r)
	if !valid {
		badRequest(w, "book id must be a positive integer")
		return
	}
	if err := h.lm.DeleteBook(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- circulation ----

// circulate decodes the acting user and the book id, then hands both to op.
func (h *handler) circulate(op func(h *handler, r *http.Request, bookID int64, user string) (any, error), status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, valid := bookID(r)
		if !valid {
			badRequest(w, "book id must be a positive integer")
			return
		}
		var in actor
		if err := decodeBody(r, &in); err != nil {
			badRequest(w, err.Error())
			return
		}
		out, err := op(h, r, id, in.Username)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeJSON(w, status, dataEnvelope{Data: out})
	}
}

func borrow(h *handler, r *http.Request, bookID int64, user string) (any, error) {
	loanID, err := h.lm.Borrow(r.Context(), bookID, user)
	return map[string]int64{"loan_id": loanID}, err
}

func giveBack(h *handler, r *http.Request, bookID int64, user string) (any, error) {
	return h.lm.Return(r.Context(), bookID, user)
}

func markRead(h *handler, r *http.Request, bookID int64, user string) (any, error) {
	id, err := h.lm.MarkRead(r.Context(), bookID, user)
	return map[string]int64{"read_id": id}, err
}

func favorite(h *handler, r *http.Request, bookID int64, user string) (any, error) {
	id, err := h.lm.Favorite(r.Context(), bookID, user)
	return map[string]int64{"favorite_id": id}, err
}

// ---- reports ----

func (h *handler) mostReadBooks(w http.ResponseWriter, r *http.Request) {
	rows, err := h.lm.Reports.MostReadBooks(r.Context(), r.URL.Query().Get("genre"))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, rows)
}

func (h *handler) mostReadGenres(w http.ResponseWriter, r *http.Request) {
	rows, err := h.lm.Reports.MostReadGenres(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, rows)
}

func (h *handler) mostReadAuthors(w http.ResponseWriter, r *http.Request) {
	rows, err := h.lm.Reports.MostReadAuthors(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, rows)
}

func (h *handler) recentlyAdded(w http.ResponseWriter, r *http.Request) {
	rows, err := h.lm.Reports.RecentlyAdded(r.Context(), r.URL.Query().Get("genre"))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, rows)
}

func nonNil(books []*library.Book) []*library.Book {
	if books == nil {
		return []*library.Book{}
	}
	return books
}
