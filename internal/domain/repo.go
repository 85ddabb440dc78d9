package domain

import (
	"context"
	"strings"
)

// Режимы сортировки списка книг
type SortMode string

const (
	SortNewest    SortMode = "newest" // по умолчанию
	SortOldest    SortMode = "oldest"
	SortPopular   SortMode = "popular"
	SortLikeCount SortMode = "like_count"
	SortViewCount SortMode = "view_count"
)

// NormalizeSort сводит произвольную строку к валидному режиму.
func NormalizeSort(s string) SortMode {
	switch SortMode(s) {
	case SortOldest, SortPopular, SortLikeCount, SortViewCount:
		return SortMode(s)
	default:
		return SortNewest
	}
}

// Фильтр и пагинация списка книг. Валидируется один раз на границе
// (Normalize), дальше по коду ходит уже типизированным.
type ListFilter struct {
	Title  string // подстрока, регистронезависимо; пусто — без фильтра
	Author string
	Sort   SortMode
	Page   int
	Limit  int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize зажимает page/limit в допустимые границы и чистит строки.
func (f ListFilter) Normalize() ListFilter {
	f.Title = strings.TrimSpace(f.Title)
	f.Author = strings.TrimSpace(f.Author)
	f.Sort = NormalizeSort(string(f.Sort))
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f
}

type UsersRepo interface {
	Close()
	Ping(context.Context) error
	CreateUser(ctx context.Context, username string, passHash []byte) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	UserByID(ctx context.Context, id UserID) (User, error)
}

type BooksRepo interface {
	// Count и List выполняются менеджером кеша параллельно;
	// оба обязаны строить один и тот же WHERE по фильтру.
	CountBooks(ctx context.Context, f ListFilter) (int64, error)
	ListBooks(ctx context.Context, f ListFilter) ([]Book, error)

	// forUser == nil — аноним, is_liked всегда false.
	BookByID(ctx context.Context, id BookID, forUser *UserID) (BookDetail, error)

	CreateBook(ctx context.Context, in BookInput) (Book, error)
	UpdateBook(ctx context.Context, id BookID, in BookInput) (Book, error)
	DeleteBook(ctx context.Context, id BookID) error

	// ToggleLike — единственная по-настоящему атомарная операция:
	// проверка/вставка-удаление/пересчёт like_count в одной транзакции.
	ToggleLike(ctx context.Context, userID UserID, bookID BookID) (liked bool, likeCount int64, err error)

	// Все различные названия, упорядоченные свежими вперёд — сид Title Index.
	DistinctTitles(ctx context.Context) ([]string, error)

	// Путь мимо кеша: батчи от воркера очереди просмотров.
	IncrementViewCount(ctx context.Context, id BookID, delta int64) error
}

type HistoryRepo interface {
	AddView(ctx context.Context, userID UserID, bookID BookID) error
	ViewHistory(ctx context.Context, userID UserID, limit int) ([]ViewHistoryEntry, error)
}
