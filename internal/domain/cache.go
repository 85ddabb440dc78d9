package domain

import (
	"context"
	"fmt"
	"strings"
)

// Ключи кеша — единое место, чтобы не расползались по коду.
//
// Схема ключей:
//   books:{title|all}:{author|all}:{sort}:p{page}:l{limit}  — страница списка
//   book:{id}                                               — деталка для анонима
//   book:{id}:user:{uid}                                    — деталка + is_liked
//   suggestions:{query}:{limit}                             — автодополнение
//   titles:all                                              — снапшот Title Index
//   jti:{jti}                                               — отозванные токены

const (
	TitleIndexKey = "titles:all"

	listKeyPrefix    = "books:"
	bookKeyPrefix    = "book:"
	suggestKeyPrefix = "suggestions:"
)

// TTL (в секундах) по форме запроса. Нефильтрованная первая страница —
// «витрина», живёт дольше всех; фильтрованные выборки мутируют чаще.
const (
	TTLListDefault  = 12 * 3600 // главная: без фильтров, первая страница, newest
	TTLListFiltered = 2 * 3600  // есть фильтр по title/author
	TTLListOther    = 6 * 3600  // остальные страницы/сортировки

	TTLBookAnon = 24 * 3600 // деталка без привязки к пользователю
	TTLBookUser = 30 * 60   // деталка с is_liked — короче, флаг персональный

	TTLSuggestShortQuery = 30 * 60 // len(query) <= 2: мало вариантов, много повторов
	TTLSuggestEmpty      = 5 * 60  // пустой результат: новая книга должна всплыть быстро
	TTLSuggestNormal     = 10 * 60

	TTLTitleIndex = 7 * 24 * 3600
)

// CacheKeyList строит детерминированный ключ страницы списка.
// Фильтры нормализуются к нижнему регистру, пустые — "all".
func CacheKeyList(f ListFilter) string {
	title := "all"
	if f.Title != "" {
		title = strings.ToLower(f.Title)
	}
	author := "all"
	if f.Author != "" {
		author = strings.ToLower(f.Author)
	}
	return fmt.Sprintf("%s%s:%s:%s:p%d:l%d", listKeyPrefix, title, author, f.Sort, f.Page, f.Limit)
}

// ListTTL выбирает ярус TTL по форме запроса. Долгий ярус получает
// ровно одна запись — «витрина» с дефолтным limit: только её политика
// инвалидации патчит по месту, любая другая нефильтрованная первая
// страница жила бы 12 часов без правок.
func ListTTL(f ListFilter) int {
	switch {
	case f.Title != "" || f.Author != "":
		return TTLListFiltered
	case CacheKeyList(f) == CacheKeyListDefault():
		return TTLListDefault
	default:
		return TTLListOther
	}
}

// CacheKeyListDefault — ключ «витрины», единственная запись списка,
// которую правим по месту вместо удаления (см. политику инвалидации).
func CacheKeyListDefault() string {
	return CacheKeyList(ListFilter{Sort: SortNewest, Page: 1, Limit: DefaultPageSize})
}

func CacheKeyBook(id BookID) string { return fmt.Sprintf("%s%d", bookKeyPrefix, id) }

func CacheKeyBookUser(id BookID, uid UserID) string {
	return fmt.Sprintf("%s%d:user:%s", bookKeyPrefix, id, uid)
}

// CacheKeyBookUserPrefix — префикс персональных записей деталки книги.
// Именно "book:{id}:user:", а не "book:{id}" — иначе префикс "book:1"
// зацепит и "book:12".
func CacheKeyBookUserPrefix(id BookID) string {
	return fmt.Sprintf("%s%d:user:", bookKeyPrefix, id)
}

func CacheKeySuggest(query string, limit int) string {
	return fmt.Sprintf("%s%s:%d", suggestKeyPrefix, strings.ToLower(strings.TrimSpace(query)), limit)
}

// CacheKeyListByTitlePrefix — префикс записей списка, отфильтрованных
// по конкретному названию; сбрасывается при переименовании книги.
func CacheKeyListByTitlePrefix(title string) string {
	return listKeyPrefix + strings.ToLower(strings.TrimSpace(title)) + ":"
}

func CacheKeyTokenJTI(jti string) string { return "jti:" + jti }

func SuggestTTL(query string, results int) int {
	switch {
	case len([]rune(query)) <= 2:
		return TTLSuggestShortQuery
	case results == 0:
		return TTLSuggestEmpty
	default:
		return TTLSuggestNormal
	}
}

// Простой k/v интерфейс. Реализации — Redis и in-process map.
//
// Контракт Get: промах (в том числе протухшая запись) — это (nil, nil),
// а не ошибка. Недоступность бэкенда на чтении трактуется вызывающим
// как промах: идём в базу, API живёт дальше.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttlSeconds int) error
	Del(ctx context.Context, keys ...string) error
	// Массовая инвалидация title-зависимых ключей
	DelByPrefix(ctx context.Context, prefix string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Для блэклиста токенов
	SetNX(ctx context.Context, key string, val []byte, ttlSeconds int) (bool, error)
	Ping(context.Context) error
	Close()
}
