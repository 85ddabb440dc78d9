package domain

import (
	"time"

	"github.com/google/uuid"
)

// Базовые идентификаторы
type UserID = uuid.UUID

// BookID назначает база (bigserial), поэтому обычный int64.
type BookID = int64

// Пользователь
type User struct {
	ID        UserID    `json:"id"`
	Username  string    `json:"username"`
	PassHash  []byte    `json:"-"` // никогда не отдаём наружу
	CreatedAt time.Time `json:"created_at"`
}

// Книга. like_count всегда пересчитывается транзакционно при лайке,
// view_count обновляет воркер очереди (с задержкой — это нормально).
type Book struct {
	ID          BookID    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Year        *int      `json:"year,omitempty"`
	Description *string   `json:"description,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	ViewCount   int64     `json:"view_count"`
	LikeCount   int64     `json:"like_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookDetail — книга + признак «лайкнул ли её текущий пользователь».
// Для анонимов IsLiked всегда false.
type BookDetail struct {
	Book
	IsLiked bool `json:"is_liked"`
}

// Поля для создания/обновления книги (картинка грузится отдельно в storage).
type BookInput struct {
	Title       string
	Author      string
	Year        *int
	Description *string
	ImageURL    *string
}

// Запись истории просмотров
type ViewHistoryEntry struct {
	BookID   BookID    `json:"book_id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	ImageURL *string   `json:"image_url,omitempty"`
	ViewedAt time.Time `json:"viewed_at"`
}

// Pagination — метаданные страницы списка.
// totalPages = ceil(total/limit); hasNext/hasPrev считаем от него.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	Returned   int   `json:"returned"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// ListEnvelope — конверт ответа списка; он же целиком лежит в кеше.
type ListEnvelope struct {
	Success    bool       `json:"success"`
	Data       []Book     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NewPagination собирает метаданные страницы по валидированным page/limit.
func NewPagination(page, limit int, total int64, returned int) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		Returned:   returned,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
