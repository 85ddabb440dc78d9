package book

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/my-books/internal/books"
	"github.com/EgorLis/my-books/internal/domain"
	"github.com/EgorLis/my-books/internal/infra/cache/memory"
)

// минимальный репозиторий для хендлер-тестов: только то, что дёргает сервис
type stubRepo struct {
	books []domain.Book
}

func (r *stubRepo) CountBooks(context.Context, domain.ListFilter) (int64, error) {
	return int64(len(r.books)), nil
}

func (r *stubRepo) ListBooks(_ context.Context, f domain.ListFilter) ([]domain.Book, error) {
	off := (f.Page - 1) * f.Limit
	if off >= len(r.books) {
		return []domain.Book{}, nil
	}
	end := off + f.Limit
	if end > len(r.books) {
		end = len(r.books)
	}
	return r.books[off:end], nil
}

func (r *stubRepo) BookByID(_ context.Context, id domain.BookID, _ *domain.UserID) (domain.BookDetail, error) {
	for _, b := range r.books {
		if b.ID == id {
			return domain.BookDetail{Book: b}, nil
		}
	}
	return domain.BookDetail{}, domain.ErrNotFound
}

func (r *stubRepo) CreateBook(context.Context, domain.BookInput) (domain.Book, error) {
	return domain.Book{}, nil
}
func (r *stubRepo) UpdateBook(context.Context, domain.BookID, domain.BookInput) (domain.Book, error) {
	return domain.Book{}, nil
}
func (r *stubRepo) DeleteBook(context.Context, domain.BookID) error { return nil }
func (r *stubRepo) ToggleLike(context.Context, domain.UserID, domain.BookID) (bool, int64, error) {
	return false, 0, nil
}
func (r *stubRepo) DistinctTitles(context.Context) ([]string, error) {
	out := make([]string, 0, len(r.books))
	for _, b := range r.books {
		out = append(out, b.Title)
	}
	return out, nil
}
func (r *stubRepo) IncrementViewCount(context.Context, domain.BookID, int64) error { return nil }

type stubHistory struct{}

func (stubHistory) AddView(context.Context, domain.UserID, domain.BookID) error { return nil }
func (stubHistory) ViewHistory(context.Context, domain.UserID, int) ([]domain.ViewHistoryEntry, error) {
	return []domain.ViewHistoryEntry{}, nil
}

type stubQueue struct{}

func (stubQueue) SendView(context.Context, domain.BookID) error { return nil }
func (stubQueue) ReceiveViews(context.Context, int) ([]domain.ViewMessage, error) {
	return nil, nil
}
func (stubQueue) Ping(context.Context) error { return nil }

type stubStorage struct{}

func (stubStorage) Put(context.Context, io.Reader, int64, string, string) (string, error) {
	return "", nil
}
func (stubStorage) Delete(context.Context, string) error { return nil }
func (stubStorage) Ping(context.Context) error           { return nil }

func newHandler(t *testing.T, repo *stubRepo) *Handler {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	cache := memory.New(logger)
	t.Cleanup(cache.Close)
	svc := books.New(logger, repo, stubHistory{}, cache, stubQueue{}, stubStorage{})
	return &Handler{Log: logger, Svc: svc, History: stubHistory{}, Storage: stubStorage{}}
}

func seedBooks(n int) []domain.Book {
	out := make([]domain.Book, 0, n)
	for i := n; i > 0; i-- {
		out = append(out, domain.Book{
			ID:        domain.BookID(i),
			Title:     fmt.Sprintf("Book %02d", i),
			Author:    "author",
			CreatedAt: time.Now(),
		})
	}
	return out
}

func TestListHandler_ReturnsEnvelope(t *testing.T) {
	h := newHandler(t, &stubRepo{books: seedBooks(3)})

	req := httptest.NewRequest(http.MethodGet, "/api/books?limit=2", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env domain.ListEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Len(t, env.Data, 2)
	assert.Equal(t, int64(3), env.Pagination.Total)
	assert.Equal(t, 2, env.Pagination.TotalPages)
	assert.True(t, env.Pagination.HasNext)
}

func TestGetOneHandler_BadID(t *testing.T) {
	h := newHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/books/abc", nil)
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	h.GetOne(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env domain.APIEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Equal(t, "bad params", env.Error)
}

func TestGetOneHandler_NotFound(t *testing.T) {
	h := newHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/books/42", nil)
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	h.GetOne(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var env domain.APIEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "not found", env.Error)
}

func TestGetOneHandler_OK(t *testing.T) {
	h := newHandler(t, &stubRepo{books: seedBooks(1)})

	req := httptest.NewRequest(http.MethodGet, "/api/books/1", nil)
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	h.GetOne(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Success bool              `json:"success"`
		Data    domain.BookDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "Book 01", env.Data.Title)
}

func TestLikeHandler_RequiresUser(t *testing.T) {
	h := newHandler(t, &stubRepo{books: seedBooks(1)})

	req := httptest.NewRequest(http.MethodPost, "/api/books/1/like", nil)
	req.SetPathValue("id", "1")
	rec := httptest.NewRecorder()
	h.Like(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSuggestHandler_OK(t *testing.T) {
	h := newHandler(t, &stubRepo{books: seedBooks(2)})

	req := httptest.NewRequest(http.MethodGet, "/api/books/suggestions?q=book", nil)
	rec := httptest.NewRecorder()
	h.Suggest(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Success bool     `json:"success"`
		Data    []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Len(t, env.Data, 2)
}
