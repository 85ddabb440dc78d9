package books

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/EgorLis/my-books/internal/domain"
)

// Service — менеджер кеша запросов поверх BooksRepo: строит ключи,
// выбирает TTL по форме запроса и держит read-through/write-through
// контракт между базой и кешем.
//
// Ошибки кеша никогда не мешают ответить из базы: на чтении промах,
// на записи — лог и дальше. Ошибки базы всегда наружу.
type Service struct {
	log     *log.Logger
	repo    domain.BooksRepo
	history domain.HistoryRepo
	cache   domain.Cache
	queue   domain.ViewQueue
	covers  CoverStore
	titles  *TitleIndex
}

// CoverStore — узкий срез хранилища обложек: сервису нужно только
// удаление вытесненных объектов.
type CoverStore interface {
	Delete(ctx context.Context, url string) error
}

func New(logger *log.Logger, repo domain.BooksRepo, history domain.HistoryRepo,
	cache domain.Cache, queue domain.ViewQueue, covers CoverStore) *Service {
	return &Service{
		log:     logger,
		repo:    repo,
		history: history,
		cache:   cache,
		queue:   queue,
		covers:  covers,
		titles:  NewTitleIndex(),
	}
}

// TitleIndexRef отдаёт индекс (нужен тестам и health-метрикам).
func (s *Service) TitleIndexRef() *TitleIndex { return s.titles }

// List — страница списка книг: кеш → (промах) → count и страница
// параллельно → конверт → кеш.
func (s *Service) List(ctx context.Context, f domain.ListFilter) (domain.ListEnvelope, error) {
	f = f.Normalize()
	key := domain.CacheKeyList(f)

	if b, err := s.cache.Get(ctx, key); err != nil {
		s.log.Printf("list: cache get %q: %v", key, err)
	} else if b != nil {
		var env domain.ListEnvelope
		if err := json.Unmarshal(b, &env); err == nil {
			return env, nil
		}
		s.log.Printf("list: broken cache entry %q, dropping", key)
		_ = s.cache.Del(ctx, key)
	}

	// count и страница — параллельно; оба строят одинаковый WHERE.
	// Мгновенное расхождение total и строк при конкурентных записях
	// допустимо и не корректируется.
	var (
		total int64
		rows  []domain.Book
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.repo.CountBooks(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = s.repo.ListBooks(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ListEnvelope{}, err
	}
	if rows == nil {
		rows = []domain.Book{}
	}

	env := domain.ListEnvelope{
		Success:    true,
		Data:       rows,
		Pagination: domain.NewPagination(f.Page, f.Limit, total, len(rows)),
	}

	if buf, err := json.Marshal(env); err == nil {
		if err := s.cache.Set(ctx, key, buf, domain.ListTTL(f)); err != nil {
			s.log.Printf("list: cache set %q: %v", key, err)
		}
	}
	return env, nil
}

// GetByID — деталка книги. Две партиции кеша: общая анонимная (без
// is_liked, длинный TTL) и персональная (c is_liked, короткий TTL).
// Аноним трогает только общую; авторизованный на промахе кладёт обе,
// пишет историю просмотров и кидает просмотр в очередь.
func (s *Service) GetByID(ctx context.Context, id domain.BookID, userID *domain.UserID) (domain.BookDetail, error) {
	key := domain.CacheKeyBook(id)
	ttl := domain.TTLBookAnon
	if userID != nil {
		key = domain.CacheKeyBookUser(id, *userID)
		ttl = domain.TTLBookUser
	}

	if b, err := s.cache.Get(ctx, key); err != nil {
		s.log.Printf("get: cache get %q: %v", key, err)
	} else if b != nil {
		var d domain.BookDetail
		if err := json.Unmarshal(b, &d); err == nil {
			return d, nil
		}
	}

	d, err := s.repo.BookByID(ctx, id, userID)
	if err != nil {
		return domain.BookDetail{}, err
	}

	if buf, err := json.Marshal(d); err == nil {
		if err := s.cache.Set(ctx, key, buf, ttl); err != nil {
			s.log.Printf("get: cache set %q: %v", key, err)
		}
	}

	if userID != nil {
		// обновляем и общую запись — без персонального флага
		shared := d
		shared.IsLiked = false
		if buf, err := json.Marshal(shared); err == nil {
			if err := s.cache.Set(ctx, domain.CacheKeyBook(id), buf, domain.TTLBookAnon); err != nil {
				s.log.Printf("get: cache set shared %d: %v", id, err)
			}
		}
		if err := s.history.AddView(ctx, *userID, id); err != nil {
			s.log.Printf("get: add view history book=%d: %v", id, err)
		}
		if err := s.queue.SendView(ctx, id); err != nil {
			s.log.Printf("get: enqueue view book=%d: %v", id, err)
		}
	}
	return d, nil
}

// WarmUp лениво засевает Title Index: сначала пробуем недельный снапшот
// из кеша, иначе полный скан базы. Зовётся в фоне при старте и на первом
// обращении к автодополнению.
func (s *Service) WarmUp(ctx context.Context) error {
	if s.titles.Ready() {
		return nil
	}

	if b, err := s.cache.Get(ctx, domain.TitleIndexKey); err != nil {
		s.log.Printf("warmup: cache get titles: %v", err)
	} else if b != nil {
		var titles []string
		if err := json.Unmarshal(b, &titles); err == nil {
			s.titles.Seed(titles)
			s.log.Printf("warmup: title index seeded from cache, %d titles", len(titles))
			return nil
		}
	}

	start := time.Now()
	titles, err := s.repo.DistinctTitles(ctx)
	if err != nil {
		return err
	}
	s.titles.Seed(titles)
	s.persistTitles(ctx)
	s.log.Printf("warmup: title index seeded from db, %d titles in %s", len(titles), time.Since(start))
	return nil
}

// persistTitles сбрасывает снапшот индекса в кеш (выживает рестарт
// процесса и греет соседние инстансы). Ошибки только логируем.
func (s *Service) persistTitles(ctx context.Context) {
	buf, err := json.Marshal(s.titles.Snapshot())
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, domain.TitleIndexKey, buf, domain.TTLTitleIndex); err != nil {
		s.log.Printf("titles: cache set snapshot: %v", err)
	}
}
