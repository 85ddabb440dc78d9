package book

import (
	"net/http"
	"strconv"

	"github.com/EgorLis/my-books/internal/books"
	"github.com/EgorLis/my-books/internal/transport/web/logx"
	"github.com/EgorLis/my-books/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-books/internal/transport/web/v1"
)

// Suggest godoc
// @Summary     Title suggestions
// @Description Автодополнение по названиям; сбои деградируют до пустого списка.
// @Tags        books
// @Produce     json
// @Param       q     query string true  "query"
// @Param       limit query int    false "max suggestions, default 10"
// @Success     200 {object} domain.APIEnvelope{data=[]string}
// @Router      /api/books/suggestions [get]
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	const op = "books.suggest"
	reqID := mw.RequestIDFromCtx(r.Context())

	q := r.URL.Query().Get("q")
	limit := books.DefaultSuggestLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	out := h.Svc.Suggest(r.Context(), q, limit)

	logx.Info(h.Log, reqID, op, "ok", "q", q, "returned", len(out))
	v1.WriteOKData(w, r, out)
}
