package book

import (
	"net/http"
	"strconv"

	"github.com/EgorLis/my-books/internal/domain"
	"github.com/EgorLis/my-books/internal/transport/web/logx"
	"github.com/EgorLis/my-books/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-books/internal/transport/web/v1"
)

// List godoc
// @Summary     List books
// @Description Страница каталога с фильтрами и сортировкой. Ответ кешируется.
// @Tags        books
// @Produce     json
// @Param       title  query string false "substring filter by title"
// @Param       author query string false "substring filter by author"
// @Param       sort   query string false "newest|oldest|popular|like_count|view_count"
// @Param       page   query int    false "page, from 1"
// @Param       limit  query int    false "page size, 1..100"
// @Success     200 {object} domain.ListEnvelope
// @Failure     500 {object} domain.APIEnvelope
// @Router      /api/books [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "books.list"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start", "query", r.URL.RawQuery)

	q := r.URL.Query()
	f := domain.ListFilter{
		Title:  q.Get("title"),
		Author: q.Get("author"),
		Sort:   domain.NormalizeSort(q.Get("sort")),
	}
	// битые числа не отвергаем — Normalize зажмёт в дефолты
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	env, err := h.Svc.List(r.Context(), f)
	if err != nil {
		logx.Error(h.Log, reqID, op, "list failed", err)
		v1.WriteDomainError(w, r, domain.ErrUnexpected)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "returned", env.Pagination.Returned, "total", env.Pagination.Total)
	v1.WriteJSON(w, r, http.StatusOK, env)
}
