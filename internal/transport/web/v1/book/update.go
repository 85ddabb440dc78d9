package book

import (
	"net/http"

	"github.com/EgorLis/my-books/internal/domain"
	"github.com/EgorLis/my-books/internal/transport/web/logx"
	"github.com/EgorLis/my-books/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-books/internal/transport/web/v1"
)

// Update godoc
// @Summary     Update book
// @Description Полное обновление; новая обложка (если пришла) заменяет старую.
// @Tags        books
// @Accept      json
// @Accept      multipart/form-data
// @Produce     json
// @Param       id path int true "book id"
// @Success     200 {object} domain.APIEnvelope{data=domain.Book}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     401 {object} domain.APIEnvelope
// @Failure     404 {object} domain.APIEnvelope
// @Failure     500 {object} domain.APIEnvelope
// @Security    BearerAuth
// @Router      /api/books/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "books.update"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start", "path", r.URL.Path)

	id, err := bookIDFromPath(r)
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad book id", err, "raw", r.PathValue("id"))
		v1.WriteDomainError(w, r, err)
		return
	}

	req, fh, hdr, err := parseBookRequest(r)
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err, "book_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	if fh != nil {
		defer fh.Close()
	}

	in, err := req.toInput()
	if err != nil {
		logx.Error(h.Log, reqID, op, "validation failed", err, "book_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}

	if fh != nil {
		url, err := h.Storage.Put(r.Context(), fh, hdr.Size, hdr.Filename, coverMIME(hdr))
		if err != nil {
			logx.Error(h.Log, reqID, op, "cover upload failed", err, "filename", hdr.Filename)
			v1.WriteDomainError(w, r, domain.ErrUnexpected)
			return
		}
		in.ImageURL = &url
	}

	b, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		logx.Error(h.Log, reqID, op, "update failed", err, "book_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "book_id", b.ID, "title", b.Title)
	v1.WriteOKData(w, r, b)
}
