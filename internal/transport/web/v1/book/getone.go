package book

import (
	"net/http"

	"github.com/EgorLis/my-books/internal/domain"
	"github.com/EgorLis/my-books/internal/transport/web/logx"
	"github.com/EgorLis/my-books/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-books/internal/transport/web/v1"
)

// GetOne godoc
// @Summary     Get single book
// @Description Деталка книги; для авторизованного — с персональным is_liked,
// @Description просмотр уходит в историю и в очередь счётчика.
// @Tags        books
// @Produce     json
// @Param       id path int true "book id"
// @Success     200 {object} domain.APIEnvelope{data=domain.BookDetail}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     404 {object} domain.APIEnvelope
// @Failure     500 {object} domain.APIEnvelope
// @Router      /api/books/{id} [get]
func (h *Handler) GetOne(w http.ResponseWriter, r *http.Request) {
	const op = "books.get_one"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start", "path", r.URL.Path)

	id, err := bookIDFromPath(r)
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad book id", err, "raw", r.PathValue("id"))
		v1.WriteDomainError(w, r, err)
		return
	}

	var userID *domain.UserID
	if u, ok := mw.UserFromCtx(r.Context()); ok {
		userID = &u.ID
	}

	d, err := h.Svc.GetByID(r.Context(), id, userID)
	if err != nil {
		logx.Error(h.Log, reqID, op, "get failed", err, "book_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "book_id", id, "authed", userID != nil)
	v1.WriteOKData(w, r, d)
}
