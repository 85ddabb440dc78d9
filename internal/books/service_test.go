package books

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/my-books/internal/domain"
	"github.com/EgorLis/my-books/internal/infra/cache/memory"
)

// --- фейки ---

type fakeRepo struct {
	mu     sync.Mutex
	books  map[domain.BookID]domain.Book
	likes  map[string]struct{} // "{uid}|{bookID}"
	nextID domain.BookID

	listCalls     int
	countCalls    int
	distinctCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		books: make(map[domain.BookID]domain.Book),
		likes: make(map[string]struct{}),
	}
}

func (r *fakeRepo) seed(titles ...string) {
	for _, t := range titles {
		_, _ = r.CreateBook(context.Background(), domain.BookInput{Title: t, Author: "author"})
	}
}

func (r *fakeRepo) matches(b domain.Book, f domain.ListFilter) bool {
	if f.Title != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(f.Title)) {
		return false
	}
	if f.Author != "" && !strings.Contains(strings.ToLower(b.Author), strings.ToLower(f.Author)) {
		return false
	}
	return true
}

func (r *fakeRepo) filtered(f domain.ListFilter) []domain.Book {
	out := make([]domain.Book, 0, len(r.books))
	for _, b := range r.books {
		if r.matches(b, f) {
			out = append(out, b)
		}
	}
	// newest: свежие (больший id) вперёд; oldest — наоборот
	sort.Slice(out, func(i, j int) bool {
		if f.Sort == domain.SortOldest {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *fakeRepo) CountBooks(_ context.Context, f domain.ListFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countCalls++
	return int64(len(r.filtered(f))), nil
}

func (r *fakeRepo) ListBooks(_ context.Context, f domain.ListFilter) ([]domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	rows := r.filtered(f)
	off := (f.Page - 1) * f.Limit
	if off >= len(rows) {
		return []domain.Book{}, nil
	}
	end := off + f.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[off:end], nil
}

func (r *fakeRepo) BookByID(_ context.Context, id domain.BookID, forUser *domain.UserID) (domain.BookDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return domain.BookDetail{}, domain.ErrNotFound
	}
	d := domain.BookDetail{Book: b}
	if forUser != nil {
		_, d.IsLiked = r.likes[likeKey(*forUser, id)]
	}
	return d, nil
}

func (r *fakeRepo) CreateBook(_ context.Context, in domain.BookInput) (domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b := domain.Book{
		ID:          r.nextID,
		Title:       in.Title,
		Author:      in.Author,
		Year:        in.Year,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	r.books[b.ID] = b
	return b, nil
}

func (r *fakeRepo) UpdateBook(_ context.Context, id domain.BookID, in domain.BookInput) (domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return domain.Book{}, domain.ErrNotFound
	}
	b.Title = in.Title
	b.Author = in.Author
	b.Year = in.Year
	b.Description = in.Description
	if in.ImageURL != nil {
		b.ImageURL = in.ImageURL
	}
	b.UpdatedAt = time.Now().UTC()
	r.books[id] = b
	return b, nil
}

func (r *fakeRepo) DeleteBook(_ context.Context, id domain.BookID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *fakeRepo) ToggleLike(_ context.Context, userID domain.UserID, bookID domain.BookID) (bool, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[bookID]
	if !ok {
		return false, 0, domain.ErrNotFound
	}
	k := likeKey(userID, bookID)
	liked := false
	if _, has := r.likes[k]; has {
		delete(r.likes, k)
	} else {
		r.likes[k] = struct{}{}
		liked = true
	}
	// пересчёт как в базе
	var count int64
	suffix := fmt.Sprintf("|%d", bookID)
	for lk := range r.likes {
		if strings.HasSuffix(lk, suffix) {
			count++
		}
	}
	b.LikeCount = count
	r.books[bookID] = b
	return liked, count, nil
}

func (r *fakeRepo) DistinctTitles(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.distinctCalls++
	rows := r.filtered(domain.ListFilter{Sort: domain.SortNewest})
	out := make([]string, 0, len(rows))
	seen := make(map[string]struct{})
	for _, b := range rows {
		if _, dup := seen[b.Title]; dup {
			continue
		}
		seen[b.Title] = struct{}{}
		out = append(out, b.Title)
	}
	return out, nil
}

func (r *fakeRepo) IncrementViewCount(_ context.Context, id domain.BookID, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.ViewCount += delta
	r.books[id] = b
	return nil
}

func likeKey(uid domain.UserID, id domain.BookID) string {
	return fmt.Sprintf("%s|%d", uid, id)
}

type fakeHistory struct {
	mu    sync.Mutex
	views []domain.BookID
}

func (h *fakeHistory) AddView(_ context.Context, _ domain.UserID, bookID domain.BookID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.views = append(h.views, bookID)
	return nil
}

func (h *fakeHistory) ViewHistory(context.Context, domain.UserID, int) ([]domain.ViewHistoryEntry, error) {
	return nil, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	sent []domain.BookID
}

func (q *fakeQueue) SendView(_ context.Context, id domain.BookID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) ReceiveViews(context.Context, int) ([]domain.ViewMessage, error) {
	return nil, nil
}

func (q *fakeQueue) Ping(context.Context) error { return nil }

// failCache падает на каждой операции — проверяем деградацию в промах.
type failCache struct{}

var errCacheDown = errors.New("cache down")

func (failCache) Get(context.Context, string) ([]byte, error)          { return nil, errCacheDown }
func (failCache) Set(context.Context, string, []byte, int) error       { return errCacheDown }
func (failCache) Del(context.Context, ...string) error                 { return errCacheDown }
func (failCache) DelByPrefix(context.Context, string) error            { return errCacheDown }
func (failCache) Exists(context.Context, string) (bool, error)         { return false, errCacheDown }
func (failCache) SetNX(context.Context, string, []byte, int) (bool, error) {
	return false, errCacheDown
}
func (failCache) Ping(context.Context) error { return errCacheDown }
func (failCache) Close()                     {}

// brokenTitlesRepo ломает только сид индекса.
type brokenTitlesRepo struct {
	*fakeRepo
}

func (brokenTitlesRepo) DistinctTitles(context.Context) ([]string, error) {
	return nil, errors.New("store down")
}

// --- обвязка ---

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

type fakeCovers struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (c *fakeCovers) Delete(_ context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.deleted = append(c.deleted, url)
	return nil
}

func (c *fakeCovers) deletedURLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeHistory, *fakeQueue, *memory.Cache, *fakeCovers) {
	t.Helper()
	repo := newFakeRepo()
	history := &fakeHistory{}
	queue := &fakeQueue{}
	covers := &fakeCovers{}
	cache := memory.New(testLogger())
	t.Cleanup(cache.Close)
	svc := New(testLogger(), repo, history, cache, queue, covers)
	return svc, repo, history, queue, cache, covers
}

// --- тесты ---

func TestList_SecondCallServedFromCache(t *testing.T) {
	svc, repo, _, _, _, _ := newTestService(t)
	repo.seed("A", "B", "C")
	ctx := context.Background()

	first, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Len(t, first.Data, 3)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, 1, repo.countCalls)

	second, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls, "повторный запрос не должен ходить в базу")
	assert.Equal(t, 1, repo.countCalls)
}

func TestList_PaginationMath(t *testing.T) {
	svc, repo, _, _, _, _ := newTestService(t)
	for i := 0; i < 25; i++ {
		repo.seed(fmt.Sprintf("Book %02d", i))
	}
	ctx := context.Background()

	env, err := svc.List(ctx, domain.ListFilter{Page: 2, Limit: 10})
	require.NoError(t, err)
	p := env.Pagination
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, int64(25), p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 10, p.Returned)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	last, err := svc.List(ctx, domain.ListFilter{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, last.Pagination.Returned)
	assert.False(t, last.Pagination.HasNext)
	assert.True(t, last.Pagination.HasPrev)
}

func TestList_ClampsBadParams(t *testing.T) {
	svc, repo, _, _, _, _ := newTestService(t)
	repo.seed("A")
	ctx := context.Background()

	env, err := svc.List(ctx, domain.ListFilter{Page: -5, Limit: 100500})
	require.NoError(t, err)
	assert.Equal(t, 1, env.Pagination.Page)
	assert.Equal(t, domain.MaxPageSize, env.Pagination.Limit)
}

func TestCreate_PrependsIntoCachedDefaultList(t *testing.T) {
	svc, repo, _, _, cache, _ := newTestService(t)
	repo.seed("Old 1", "Old 2")
	ctx := context.Background()

	// греем «витрину»
	_, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)

	created, err := svc.Create(ctx, domain.BookInput{Title: "Brand New", Author: "a"})
	require.NoError(t, err)

	// запись патчится по месту, без похода в базу
	env, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, env.Data)
	assert.Equal(t, created.ID, env.Data[0].ID)
	assert.Equal(t, int64(3), env.Pagination.Total)
	assert.Equal(t, 1, repo.listCalls)

	// деталка новой книги уже в кеше
	b, err := cache.Get(ctx, domain.CacheKeyBook(created.ID))
	require.NoError(t, err)
	require.NotNil(t, b)
	var d domain.BookDetail
	require.NoError(t, json.Unmarshal(b, &d))
	assert.Equal(t, "Brand New", d.Title)
}

func TestCreate_NewTitleVisibleInSuggestions(t *testing.T) {
	svc, repo, _, _, _, _ := newTestService(t)
	repo.seed("Existing")
	ctx := context.Background()

	require.NoError(t, svc.WarmUp(ctx))
	_, err := svc.Create(ctx, domain.BookInput{Title: "Fresh Arrival", Author: "a"})
	require.NoError(t, err)

	got := svc.Suggest(ctx, "fresh", 10)
	assert.Equal(t, []string{"Fresh Arrival"}, got)
}

func TestUpdate_TitleChangeDropsOldTitleKeysAndReindexes(t *testing.T) {
	svc, repo, _, _, cache, _ := newTestService(t)
	repo.seed("Old Name")
	ctx := context.Background()

	// список, отфильтрованный по старому названию, в кеше
	_, err := svc.List(ctx, domain.ListFilter{Title: "Old Name"})
	require.NoError(t, err)
	oldKey := domain.CacheKeyList(domain.ListFilter{Title: "Old Name"}.Normalize())
	b, err := cache.Get(ctx, oldKey)
	require.NoError(t, err)
	require.NotNil(t, b)

	require.NoError(t, svc.WarmUp(ctx))
	_, err = svc.Update(ctx, 1, domain.BookInput{Title: "New Name", Author: "author"})
	require.NoError(t, err)

	b, err = cache.Get(ctx, oldKey)
	require.NoError(t, err)
	assert.Nil(t, b, "ключи по старому названию должны быть удалены")

	assert.Equal(t, []string{"New Name"}, svc.TitleIndexRef().Snapshot())
}

func TestUpdate_PatchesRowInCachedDefaultList(t *testing.T) {
	svc, repo, _, _, _, _ := newTestService(t)
	repo.seed("A", "B")
	ctx := context.Background()

	_, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 2, domain.BookInput{Title: "B v2", Author: "author"})
	require.NoError(t, err)

	env, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, "B v2", env.Data[0].Title)
}

func TestDelete_RemovesFromCacheAndIndex(t *testing.T) {
	svc, repo, _, _, cache, _ := newTestService(t)
	repo.seed("Gone", "Stays")
	ctx := context.Background()

	_, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	_, err = svc.GetByID(ctx, 1, nil)
	require.NoError(t, err)
	require.NoError(t, svc.WarmUp(ctx))

	require.NoError(t, svc.Delete(ctx, 1))

	b, err := cache.Get(ctx, domain.CacheKeyBook(1))
	require.NoError(t, err)
	assert.Nil(t, b)

	env, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "Stays", env.Data[0].Title)
	assert.Equal(t, int64(1), env.Pagination.Total)

	assert.Equal(t, []string{"Stays"}, svc.TitleIndexRef().Snapshot())
}

func TestToggleLike_TwiceRestoresState(t *testing.T) {
	svc, repo, _, _, _, _ := newTestService(t)
	repo.seed("Likeable")
	uid := uuid.New()
	ctx := context.Background()

	liked, count, err := svc.ToggleLike(ctx, uid, 1)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), count)

	liked, count, err = svc.ToggleLike(ctx, uid, 1)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, int64(0), count)
}

func TestToggleLike_PatchesCachedMirrors(t *testing.T) {
	svc, repo, _, _, cache, _ := newTestService(t)
	repo.seed("Likeable")
	uid := uuid.New()
	ctx := context.Background()

	_, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	_, err = svc.GetByID(ctx, 1, nil)
	require.NoError(t, err)

	_, _, err = svc.ToggleLike(ctx, uid, 1)
	require.NoError(t, err)

	// общая деталка: +1 по месту
	b, err := cache.Get(ctx, domain.CacheKeyBook(1))
	require.NoError(t, err)
	require.NotNil(t, b)
	var d domain.BookDetail
	require.NoError(t, json.Unmarshal(b, &d))
	assert.Equal(t, int64(1), d.LikeCount)

	// «витрина»: +1 по месту, без перечитывания
	env, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, int64(1), env.Data[0].LikeCount)

	// персональная деталка снесена — пересоберётся с is_liked
	pb, err := cache.Get(ctx, domain.CacheKeyBookUser(1, uid))
	require.NoError(t, err)
	assert.Nil(t, pb)
}

func TestGetByID_UserPathPopulatesBothPartitions(t *testing.T) {
	svc, repo, history, queue, cache, _ := newTestService(t)
	repo.seed("Read Me")
	uid := uuid.New()
	ctx := context.Background()

	_, _, err := svc.ToggleLike(ctx, uid, 1)
	require.NoError(t, err)

	d, err := svc.GetByID(ctx, 1, &uid)
	require.NoError(t, err)
	assert.True(t, d.IsLiked)

	// персональная запись
	b, err := cache.Get(ctx, domain.CacheKeyBookUser(1, uid))
	require.NoError(t, err)
	require.NotNil(t, b)

	// общая запись — без персонального флага
	b, err = cache.Get(ctx, domain.CacheKeyBook(1))
	require.NoError(t, err)
	require.NotNil(t, b)
	var shared domain.BookDetail
	require.NoError(t, json.Unmarshal(b, &shared))
	assert.False(t, shared.IsLiked)

	assert.Equal(t, []domain.BookID{1}, history.views)
	assert.Equal(t, []domain.BookID{1}, queue.sent)
}

func TestGetByID_AnonymousDoesNotTouchHistoryOrQueue(t *testing.T) {
	svc, repo, history, queue, _, _ := newTestService(t)
	repo.seed("Read Me")
	ctx := context.Background()

	d, err := svc.GetByID(ctx, 1, nil)
	require.NoError(t, err)
	assert.False(t, d.IsLiked)
	assert.Empty(t, history.views)
	assert.Empty(t, queue.sent)
}

func TestGetByID_NotFound(t *testing.T) {
	svc, _, _, _, _, _ := newTestService(t)

	_, err := svc.GetByID(context.Background(), 404, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_CacheDownFailsOpen(t *testing.T) {
	repo := newFakeRepo()
	repo.seed("Still Works")
	svc := New(log.New(io.Discard, "", 0), repo, &fakeHistory{}, failCache{}, &fakeQueue{}, &fakeCovers{})
	ctx := context.Background()

	env, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, env.Data, 1)

	d, err := svc.GetByID(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "Still Works", d.Title)

	// записи тоже не блокируются кешем
	_, err = svc.Create(ctx, domain.BookInput{Title: "Another", Author: "a"})
	require.NoError(t, err)
}

func TestWarmUp_PrefersCacheSnapshot(t *testing.T) {
	svc, repo, _, _, cache, _ := newTestService(t)
	ctx := context.Background()

	snap, _ := json.Marshal([]string{"From", "Snapshot"})
	require.NoError(t, cache.Set(ctx, domain.TitleIndexKey, snap, domain.TTLTitleIndex))

	require.NoError(t, svc.WarmUp(ctx))
	assert.Equal(t, 0, repo.distinctCalls, "при живом снапшоте база не нужна")
	assert.Equal(t, []string{"From", "Snapshot"}, svc.TitleIndexRef().Snapshot())

	// повторный вызов — no-op
	require.NoError(t, svc.WarmUp(ctx))
	assert.Equal(t, 0, repo.distinctCalls)
}

func TestWarmUp_FallsBackToStore(t *testing.T) {
	svc, repo, _, _, cache, _ := newTestService(t)
	repo.seed("One", "Two")
	ctx := context.Background()

	require.NoError(t, svc.WarmUp(ctx))
	assert.Equal(t, 1, repo.distinctCalls)
	assert.Equal(t, []string{"Two", "One"}, svc.TitleIndexRef().Snapshot())

	// снапшот записан для следующего рестарта
	b, err := cache.Get(ctx, domain.TitleIndexKey)
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestUpdate_ReplacedCoverRemovedFromStorage(t *testing.T) {
	svc, _, _, _, _, covers := newTestService(t)
	ctx := context.Background()

	oldURL := "https://cdn.test/covers/sha256/aaa.png"
	b, err := svc.Create(ctx, domain.BookInput{Title: "Go", Author: "Donovan", ImageURL: &oldURL})
	require.NoError(t, err)

	newURL := "https://cdn.test/covers/sha256/bbb.png"
	upd, err := svc.Update(ctx, b.ID, domain.BookInput{Title: "Go", Author: "Donovan", ImageURL: &newURL})
	require.NoError(t, err)
	require.NotNil(t, upd.ImageURL)
	assert.Equal(t, newURL, *upd.ImageURL)
	assert.Equal(t, []string{oldURL}, covers.deletedURLs(), "вытесненная обложка уходит из storage")
}

func TestUpdate_WithoutNewCoverKeepsOld(t *testing.T) {
	svc, _, _, _, _, covers := newTestService(t)
	ctx := context.Background()

	url := "https://cdn.test/covers/sha256/aaa.png"
	b, err := svc.Create(ctx, domain.BookInput{Title: "Go", Author: "Donovan", ImageURL: &url})
	require.NoError(t, err)

	upd, err := svc.Update(ctx, b.ID, domain.BookInput{Title: "Go 2nd ed", Author: "Donovan"})
	require.NoError(t, err)
	require.NotNil(t, upd.ImageURL)
	assert.Equal(t, url, *upd.ImageURL)
	assert.Empty(t, covers.deletedURLs())
}

func TestDelete_CoverRemovedFromStorage(t *testing.T) {
	svc, _, _, _, _, covers := newTestService(t)
	ctx := context.Background()

	url := "https://cdn.test/covers/sha256/aaa.png"
	b, err := svc.Create(ctx, domain.BookInput{Title: "Go", Author: "Donovan", ImageURL: &url})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, b.ID))
	assert.Equal(t, []string{url}, covers.deletedURLs())
}

func TestUpdate_CoverStorageFailureDoesNotBlock(t *testing.T) {
	svc, _, _, _, _, covers := newTestService(t)
	ctx := context.Background()

	oldURL := "https://cdn.test/covers/sha256/aaa.png"
	b, err := svc.Create(ctx, domain.BookInput{Title: "Go", Author: "Donovan", ImageURL: &oldURL})
	require.NoError(t, err)

	covers.err = errors.New("storage down")
	newURL := "https://cdn.test/covers/sha256/bbb.png"
	upd, err := svc.Update(ctx, b.ID, domain.BookInput{Title: "Go", Author: "Donovan", ImageURL: &newURL})
	require.NoError(t, err, "недоступный storage не блокирует запись")
	require.NotNil(t, upd.ImageURL)
	assert.Equal(t, newURL, *upd.ImageURL)
}
