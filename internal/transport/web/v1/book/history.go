package book

import (
	"net/http"
	"strconv"

	"github.com/EgorLis/my-books/internal/domain"
	"github.com/EgorLis/my-books/internal/transport/web/logx"
	"github.com/EgorLis/my-books/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-books/internal/transport/web/v1"
)

// ViewHistory godoc
// @Summary     Recent view history
// @Description Последние просмотренные книги текущего пользователя.
// @Tags        books
// @Produce     json
// @Param       limit query int false "1..50, default 10"
// @Success     200 {object} domain.APIEnvelope{data=[]domain.ViewHistoryEntry}
// @Failure     401 {object} domain.APIEnvelope
// @Failure     500 {object} domain.APIEnvelope
// @Security    BearerAuth
// @Router      /api/view-history [get]
func (h *Handler) ViewHistory(w http.ResponseWriter, r *http.Request) {
	const op = "books.view_history"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start")

	u, ok := mw.UserFromCtx(r.Context())
	if !ok {
		logx.Error(h.Log, reqID, op, "unauthorized", domain.ErrUnauth)
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.History.ViewHistory(r.Context(), u.ID, limit)
	if err != nil {
		logx.Error(h.Log, reqID, op, "history failed", err, "user_id", u.ID)
		v1.WriteDomainError(w, r, domain.ErrUnexpected)
		return
	}
	if entries == nil {
		entries = []domain.ViewHistoryEntry{}
	}

	logx.Info(h.Log, reqID, op, "ok", "user_id", u.ID, "returned", len(entries))
	v1.WriteOKData(w, r, entries)
}
