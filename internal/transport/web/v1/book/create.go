package book

import (
	"net/http"

	"github.com/EgorLis/my-books/internal/domain"
	"github.com/EgorLis/my-books/internal/transport/web/logx"
	"github.com/EgorLis/my-books/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-books/internal/transport/web/v1"
)

// Create godoc
// @Summary     Create book
// @Description JSON либо multipart (поля + опциональная обложка image).
// @Tags        books
// @Accept      json
// @Accept      multipart/form-data
// @Produce     json
// @Param       title       formData string true  "title"
// @Param       author      formData string true  "author"
// @Param       year        formData int    false "year"
// @Param       description formData string false "description"
// @Param       image       formData file   false "cover image"
// @Success     201 {object} domain.APIEnvelope{data=domain.Book}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     401 {object} domain.APIEnvelope
// @Failure     500 {object} domain.APIEnvelope
// @Security    BearerAuth
// @Router      /api/books [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "books.create"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start")

	req, fh, hdr, err := parseBookRequest(r)
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad request", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	if fh != nil {
		defer fh.Close()
	}

	in, err := req.toInput()
	if err != nil {
		logx.Error(h.Log, reqID, op, "validation failed", err, "title", req.Title)
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

	b, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		logx.Error(h.Log, reqID, op, "create failed", err, "title", in.Title)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "book_id", b.ID, "title", b.Title)
	v1.WriteCreatedData(w, r, b)
}
