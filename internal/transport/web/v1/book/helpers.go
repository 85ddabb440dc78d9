package book

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/EgorLis/my-books/internal/domain"
)

const maxCoverBytes = 32 << 20 // 32MB

// bookIDFromPath парсит {id} из пути.
func bookIDFromPath(r *http.Request) (domain.BookID, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrBadParams
	}
	return id, nil
}

type bookRequest struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Year        *int    `json:"year"`
	Description *string `json:"description"`
}

// parseBookRequest принимает JSON либо multipart/form-data (поля +
// опциональный файл image). Закрыть файл — забота вызывающего.
func parseBookRequest(r *http.Request) (bookRequest, multipart.File, *multipart.FileHeader, error) {
	var req bookRequest

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, nil, nil, domain.ErrBadParams
		}
		return req, nil, nil, nil
	}

	if err := r.ParseMultipartForm(maxCoverBytes); err != nil {
		return req, nil, nil, domain.ErrBadParams
	}
	req.Title = r.FormValue("title")
	req.Author = r.FormValue("author")
	if s := r.FormValue("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			return req, nil, nil, domain.ErrBadParams
		}
		req.Year = &y
	}
	if s := r.FormValue("description"); s != "" {
		req.Description = &s
	}

	fh, hdr, err := r.FormFile("image")
	if err != nil {
		return req, nil, nil, nil // файла нет — это нормально
	}
	return req, fh, hdr, nil
}

func (req bookRequest) toInput() (domain.BookInput, error) {
	title := strings.TrimSpace(req.Title)
	author := strings.TrimSpace(req.Author)
	if title == "" || author == "" {
		return domain.BookInput{}, domain.ErrBadParams
	}
	return domain.BookInput{
		Title:       title,
		Author:      author,
		Year:        req.Year,
		Description: req.Description,
	}, nil
}

func coverMIME(hdr *multipart.FileHeader) string {
	mime := hdr.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}
	return mime
}
