package book

import (
	"log"

	"github.com/EgorLis/my-books/internal/books"
	"github.com/EgorLis/my-books/internal/domain"
)

type Handler struct {
	Log     *log.Logger
	Svc     *books.Service
	History domain.HistoryRepo
	Storage domain.CoverStorage
}
